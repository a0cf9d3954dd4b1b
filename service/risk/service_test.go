package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/risk/condition"
)

func TestService_Assess(t *testing.T) {
	service := New(Config{})

	testCases := []struct {
		description    string
		context        *model.WorkflowContext
		priority       string
		expectTier     string
		expectStrategy string
	}{
		{
			description:    "low priority empty context",
			context:        &model.WorkflowContext{},
			priority:       model.PriorityLow,
			expectTier:     model.TierLow,
			expectStrategy: model.StrategyAcceptance,
		},
		{
			description:    "medium priority lands in the medium band on its own",
			context:        &model.WorkflowContext{},
			priority:       model.PriorityMedium,
			expectTier:     model.TierMedium,
			expectStrategy: model.StrategyMitigation,
		},
		{
			description:    "medium priority moderate impact",
			context:        &model.WorkflowContext{BusinessImpact: 40, TechnicalImpact: 30},
			priority:       model.PriorityMedium,
			expectTier:     model.TierMedium,
			expectStrategy: model.StrategyMitigation,
		},
		{
			description:    "high priority lands in the high band on its own",
			context:        &model.WorkflowContext{},
			priority:       model.PriorityHigh,
			expectTier:     model.TierHigh,
			expectStrategy: model.StrategyMitigation,
		},
		{
			description:    "high priority moderate impact",
			context:        &model.WorkflowContext{BusinessImpact: 30, TechnicalImpact: 20},
			priority:       model.PriorityHigh,
			expectTier:     model.TierHigh,
			expectStrategy: model.StrategyMitigation,
		},
		{
			description: "urgent with maximal context saturates at critical",
			context: &model.WorkflowContext{
				BusinessImpact:  100,
				TechnicalImpact: 100,
				BudgetExposure:  250_000,
				Scope:           []string{"billing", "auth", "payments", "infra", "data", "ml"},
			},
			priority:       model.PriorityUrgent,
			expectTier:     model.TierCritical,
			expectStrategy: model.StrategyPrevention,
		},
	}

	for _, testCase := range testCases {
		assessment, err := service.Assess(context.Background(), "wf-1", testCase.context, testCase.priority)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expectTier, assessment.Tier, testCase.description)
		assert.Equal(t, testCase.expectStrategy, assessment.Strategy, testCase.description)
		assert.LessOrEqual(t, assessment.Score, 100.0, testCase.description)
		assert.NotEmpty(t, assessment.Policy.EscalationTriggers, testCase.description)
	}
}

func TestService_Assess_deterministic(t *testing.T) {
	service := New(Config{})
	workflowCtx := &model.WorkflowContext{BusinessImpact: 42, TechnicalImpact: 17, BudgetExposure: 12_500}
	first, err := service.Assess(context.Background(), "wf-1", workflowCtx, model.PriorityHigh)
	assert.NoError(t, err)
	second, err := service.Assess(context.Background(), "wf-1", workflowCtx, model.PriorityHigh)
	assert.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Tier, second.Tier)
}

func TestService_Assess_priorityMonotone(t *testing.T) {
	service := New(Config{})
	workflowCtx := &model.WorkflowContext{BusinessImpact: 20, TechnicalImpact: 20}
	var previous float64 = -1
	for _, priority := range []string{model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent} {
		assessment, err := service.Assess(context.Background(), "wf-1", workflowCtx, priority)
		if !assert.NoError(t, err, priority) {
			continue
		}
		assert.Greater(t, assessment.Score, previous, priority)
		previous = assessment.Score
	}
}

func TestService_Assess_invalidInput(t *testing.T) {
	service := New(Config{})

	testCases := []struct {
		description string
		context     *model.WorkflowContext
		priority    string
	}{
		{
			description: "negative business impact",
			context:     &model.WorkflowContext{BusinessImpact: -1},
			priority:    model.PriorityLow,
		},
		{
			description: "technical impact above scale",
			context:     &model.WorkflowContext{TechnicalImpact: 101},
			priority:    model.PriorityLow,
		},
		{
			description: "negative budget exposure",
			context:     &model.WorkflowContext{BudgetExposure: -10},
			priority:    model.PriorityLow,
		},
		{
			description: "unknown priority",
			context:     &model.WorkflowContext{},
			priority:    "extreme",
		},
	}

	for _, testCase := range testCases {
		_, err := service.Assess(context.Background(), "wf-1", testCase.context, testCase.priority)
		assert.True(t, errors.Is(err, types.ErrInvalidAssessmentInput), testCase.description)
	}
}

func TestService_synthesizePolicy(t *testing.T) {
	service := New(Config{})

	critical := service.synthesizePolicy(model.TierCritical, model.PriorityUrgent)
	assert.Equal(t, []string{"senior-approver"}, critical.MandatoryRoles)
	assert.False(t, critical.AutoApproval.Enabled)
	assert.Equal(t, 0.5, critical.DeadlineScale)

	low := service.synthesizePolicy(model.TierLow, model.PriorityLow)
	assert.Empty(t, low.MandatoryRoles)
	assert.True(t, low.AutoApproval.Enabled)
	assert.Equal(t, 1.0, low.DeadlineScale)
	for _, expr := range low.AutoApproval.Conditions {
		_, err := condition.Parse([]byte(expr))
		assert.NoError(t, err, expr)
	}
}
