package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
)

func TestService_ValidateQuality(t *testing.T) {
	service := New(Config{})

	testCases := []struct {
		description   string
		justification string
		decisionType  string
		priority      string
		expectOK      bool
		expectFlags   []string
	}{
		{
			description:   "substantive justification passes",
			justification: "verified rollback plan and staging results before approving",
			decisionType:  model.DecisionApprove,
			priority:      model.PriorityHigh,
			expectOK:      true,
		},
		{
			description:  "empty justification rejected",
			decisionType: model.DecisionApprove,
			priority:     model.PriorityHigh,
			expectFlags:  []string{FlagEmptyJustification},
		},
		{
			description:   "two character justification rejected",
			justification: "ok",
			decisionType:  model.DecisionApprove,
			priority:      model.PriorityHigh,
			expectFlags:   []string{FlagShortJustification},
		},
		{
			description:   "escalate on low priority flagged but not rejected",
			justification: "unclear ownership, needs a second pair of eyes",
			decisionType:  model.DecisionEscalate,
			priority:      model.PriorityLow,
			expectOK:      true,
			expectFlags:   []string{FlagPolicyInconsistent},
		},
	}

	for _, testCase := range testCases {
		decision := &model.Decision{
			WorkflowID:    "wf-1",
			StepID:        "step-1",
			DeciderID:     "alice",
			Type:          testCase.decisionType,
			Justification: testCase.justification,
		}
		assessment, err := service.ValidateQuality(context.Background(), decision, testCase.priority)
		if testCase.expectOK {
			assert.NoError(t, err, testCase.description)
			assert.True(t, assessment.Acceptable, testCase.description)
		} else {
			assert.True(t, errors.Is(err, types.ErrQualityBelowThreshold), testCase.description)
			assert.False(t, assessment.Acceptable, testCase.description)
		}
		for _, flag := range testCase.expectFlags {
			assert.Contains(t, assessment.Flags, flag, testCase.description)
		}
	}
}

func TestService_ValidateQuality_boilerplate(t *testing.T) {
	service := New(Config{})
	justification := "approved per change advisory board review and rollback validation"
	service.Record(&model.Decision{
		ID:            "d-1",
		WorkflowID:    "wf-1",
		StepID:        "step-1",
		DeciderID:     "alice",
		Type:          model.DecisionApprove,
		Justification: justification,
	})
	assessment, err := service.ValidateQuality(context.Background(), &model.Decision{
		WorkflowID:    "wf-1",
		StepID:        "step-2",
		DeciderID:     "alice",
		Type:          model.DecisionApprove,
		Justification: justification,
	}, model.PriorityMedium)
	assert.NoError(t, err)
	assert.Contains(t, assessment.Flags, FlagBoilerplate)

	// a different decider reusing the text is not flagged
	assessment, err = service.ValidateQuality(context.Background(), &model.Decision{
		WorkflowID:    "wf-1",
		StepID:        "step-2",
		DeciderID:     "bob",
		Type:          model.DecisionApprove,
		Justification: justification,
	}, model.PriorityMedium)
	assert.NoError(t, err)
	assert.NotContains(t, assessment.Flags, FlagBoilerplate)
}

func TestService_CheckConsistency(t *testing.T) {
	stepOrder := map[string]int{"step-1": 0, "step-2": 1}
	service := New(Config{}, WithStepOrder(func(workflowID, stepID string) int {
		if workflowID != "wf-1" {
			return -1
		}
		order, ok := stepOrder[stepID]
		if !ok {
			return -1
		}
		return order
	}))

	service.Record(&model.Decision{ID: "d-1", WorkflowID: "wf-1", StepID: "step-1", DeciderID: "alice", Type: model.DecisionApprove})
	service.Record(&model.Decision{ID: "d-2", WorkflowID: "wf-1", StepID: "step-2", DeciderID: "bob", Type: model.DecisionApprove})

	// reject on step-2 conflicts with the approve on the same step and the
	// approve on its predecessor
	check, err := service.CheckConsistency(context.Background(), "wf-1", "step-2", model.DecisionReject, "carol")
	assert.NoError(t, err)
	assert.False(t, check.Consistent)
	assert.Len(t, check.Conflicts, 2)
	assert.True(t, check.RequiresEscalation)

	// the check is read-only: running it again yields the same outcome
	again, err := service.CheckConsistency(context.Background(), "wf-1", "step-2", model.DecisionReject, "carol")
	assert.NoError(t, err)
	assert.EqualValues(t, check, again)

	// reject on the predecessor step sees only the same-step conflict
	check, err = service.CheckConsistency(context.Background(), "wf-1", "step-1", model.DecisionReject, "carol")
	assert.NoError(t, err)
	assert.Len(t, check.Conflicts, 1)
	assert.False(t, check.RequiresEscalation)

	// delegate never opposes anything
	check, err = service.CheckConsistency(context.Background(), "wf-1", "step-2", model.DecisionDelegate, "carol")
	assert.NoError(t, err)
	assert.True(t, check.Consistent)

	// an unrelated workflow's history is not consulted
	check, err = service.CheckConsistency(context.Background(), "wf-2", "step-2", model.DecisionReject, "carol")
	assert.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestService_CheckConsistency_accumulates(t *testing.T) {
	service := New(Config{})

	// approve then reject on the same step: the first opposing proposal
	// sees one conflict and is still applicable
	service.Record(&model.Decision{ID: "d-1", WorkflowID: "wf-1", StepID: "step-1", DeciderID: "alice", Type: model.DecisionApprove})
	check, err := service.CheckConsistency(context.Background(), "wf-1", "step-1", model.DecisionReject, "bob")
	assert.NoError(t, err)
	assert.Len(t, check.Conflicts, 1)
	assert.False(t, check.RequiresEscalation)
	assert.Equal(t, 75, check.Score)

	// once the reject is committed the approve/reject pair stays on the
	// books, so a third opposing decision crosses the threshold
	service.Record(&model.Decision{ID: "d-2", WorkflowID: "wf-1", StepID: "step-1", DeciderID: "bob", Type: model.DecisionReject})
	check, err = service.CheckConsistency(context.Background(), "wf-1", "step-1", model.DecisionApprove, "carol")
	assert.NoError(t, err)
	assert.Len(t, check.Conflicts, 2)
	assert.True(t, check.RequiresEscalation)
	assert.Equal(t, 50, check.Score)

	// idempotent: conflicts and score are unchanged on a re-run
	again, err := service.CheckConsistency(context.Background(), "wf-1", "step-1", model.DecisionApprove, "carol")
	assert.NoError(t, err)
	assert.EqualValues(t, check, again)
}

func TestService_ValidateQuality_minJustification(t *testing.T) {
	service := New(Config{MinJustification: 20})

	// nineteen characters, one short of the configured minimum
	_, err := service.ValidateQuality(context.Background(), &model.Decision{
		WorkflowID:    "wf-1",
		StepID:        "step-1",
		DeciderID:     "alice",
		Type:          model.DecisionApprove,
		Justification: "insufficient detail",
	}, model.PriorityMedium)
	assert.True(t, errors.Is(err, types.ErrQualityBelowThreshold))

	// exactly the minimum clears the floor
	assessment, err := service.ValidateQuality(context.Background(), &model.Decision{
		WorkflowID:    "wf-1",
		StepID:        "step-1",
		DeciderID:     "alice",
		Type:          model.DecisionApprove,
		Justification: "reviewed the runbook",
	}, model.PriorityMedium)
	assert.NoError(t, err)
	assert.True(t, assessment.Acceptable)
}

func TestService_History(t *testing.T) {
	service := New(Config{})
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	service.Record(&model.Decision{ID: "d-1", WorkflowID: "wf-1", DeciderID: "alice", Type: model.DecisionApprove, CreatedAt: base})
	service.Record(&model.Decision{ID: "d-2", WorkflowID: "wf-1", DeciderID: "bob", Type: model.DecisionApprove, CreatedAt: base.Add(time.Minute)})
	service.Record(&model.Decision{ID: "d-3", WorkflowID: "wf-2", DeciderID: "alice", Type: model.DecisionReject, CreatedAt: base.Add(2 * time.Minute)})

	history := service.History(Filter{WorkflowID: "wf-1"})
	if assert.Len(t, history, 2) {
		assert.Equal(t, "d-2", history[0].ID)
		assert.Equal(t, "d-1", history[1].ID)
	}

	history = service.History(Filter{DeciderID: "alice"})
	if assert.Len(t, history, 2) {
		assert.Equal(t, "d-3", history[0].ID)
		assert.Equal(t, "d-1", history[1].ID)
	}
}
