package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/model"
)

type capturingHandler struct {
	warnings  []*model.TimeoutWarning
	breaches  []*model.EscalationPath
	exhausted []*model.EscalationPath
}

func (h *capturingHandler) OnWarning(_ context.Context, warning *model.TimeoutWarning) {
	h.warnings = append(h.warnings, warning)
}

func (h *capturingHandler) OnBreach(_ context.Context, path *model.EscalationPath) {
	h.breaches = append(h.breaches, path)
}

func (h *capturingHandler) OnExhausted(_ context.Context, path *model.EscalationPath) {
	h.exhausted = append(h.exhausted, path)
}

func stubClock(t *testing.T, start time.Time) func(time.Time) {
	previous := clock.NowFunc
	current := start
	clock.NowFunc = func() time.Time { return current }
	t.Cleanup(func() { clock.NowFunc = previous })
	return func(at time.Time) { current = at }
}

func approvalStep() *model.Step {
	return &model.Step{
		ID:   "step-1",
		Type: model.StepTypeApproval,
		Approvers: []*model.Approver{
			{ID: "alice", Role: "reviewer"},
			{ID: "bob", Role: "reviewer"},
		},
	}
}

func TestService_Threshold(t *testing.T) {
	service := New(Config{}, nil)
	assert.Equal(t, time.Hour, service.Threshold(model.StepTypeApproval, model.PriorityMedium))
	assert.Equal(t, 30*time.Minute, service.Threshold(model.StepTypeApproval, model.PriorityUrgent))
	assert.Equal(t, 45*time.Minute, service.Threshold(model.StepTypeApproval, model.PriorityHigh))
	assert.Equal(t, 5*time.Minute, service.Threshold(model.StepTypeSystem, model.PriorityLow))
	// unknown type falls back to the approval threshold
	assert.Equal(t, time.Hour, service.Threshold("unknown", model.PriorityLow))
}

func TestService_Sweep_warningTiers(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	advance := stubClock(t, start)
	handler := &capturingHandler{}
	service := New(Config{}, handler)
	ctx := context.Background()

	deadline := service.Register("wf-1", approvalStep(), model.PriorityMedium)
	assert.Equal(t, start.Add(time.Hour), deadline)

	// 60% remaining: no warning yet
	advance(start.Add(24 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.Empty(t, handler.warnings)

	// 45% remaining: early warning
	advance(start.Add(33 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	if assert.Len(t, handler.warnings, 1) {
		assert.Equal(t, model.WarningEarly, handler.warnings[0].Tier)
		assert.Equal(t, 0.3, handler.warnings[0].Probability)
		assert.Equal(t, []string{"alice", "bob"}, handler.warnings[0].Recipients)
	}

	// still in the early band: no duplicate
	advance(start.Add(34 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.Len(t, handler.warnings, 1)

	// 25% remaining: critical supersedes early
	advance(start.Add(45 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	if assert.Len(t, handler.warnings, 2) {
		assert.Equal(t, model.WarningCritical, handler.warnings[1].Tier)
		assert.Equal(t, 0.6, handler.warnings[1].Probability)
	}

	// 5% remaining: final
	advance(start.Add(57 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	if assert.Len(t, handler.warnings, 3) {
		assert.Equal(t, model.WarningFinal, handler.warnings[2].Tier)
		assert.Equal(t, 0.9, handler.warnings[2].Probability)
	}
	warning := service.ActiveWarning("wf-1", "step-1")
	if assert.NotNil(t, warning) {
		assert.Equal(t, model.WarningFinal, warning.Tier)
	}
	assert.Empty(t, handler.breaches)
}

func TestService_Sweep_breachIsIdempotent(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	advance := stubClock(t, start)
	handler := &capturingHandler{}
	service := New(Config{}, handler)
	ctx := context.Background()

	service.Register("wf-1", approvalStep(), model.PriorityUrgent)

	advance(start.Add(31 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.NoError(t, service.Sweep(ctx))
	if assert.Len(t, handler.breaches, 1) {
		path := handler.breaches[0]
		// approval step, urgent priority: 85 + 10
		assert.Equal(t, 95, path.UrgencyScore)
		assert.Equal(t, model.LevelCritical, path.Level)
		assert.Len(t, path.Levels, 1)
	}
	assert.Same(t, handler.breaches[0], service.Path("wf-1", "step-1"))
}

func TestService_Sweep_exhaustionAndEffectiveness(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	advance := stubClock(t, start)
	handler := &capturingHandler{}
	service := New(Config{}, handler)
	ctx := context.Background()

	service.Register("wf-1", approvalStep(), model.PriorityMedium)

	// breach at +61m opens the path; sub-timeout per level is 30m
	advance(start.Add(61 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.Len(t, handler.breaches, 1)
	path := handler.breaches[0]
	// approval step, medium priority: urgency 85 -> level_3 and critical rungs
	assert.Equal(t, model.LevelThree, path.Level)
	assert.Len(t, path.Levels, 2)

	// past both sub-timeouts the path is exhausted, exactly once
	advance(path.CreatedAt.Add(61 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.NoError(t, service.Sweep(ctx))
	assert.Len(t, handler.exhausted, 1)
	assert.True(t, path.Exhausted)

	effectiveness, err := service.EvaluateEffectiveness("wf-1", "step-1")
	assert.NoError(t, err)
	assert.Equal(t, 20.0, effectiveness.Score)
	assert.NotEmpty(t, effectiveness.Improvements)
}

func TestService_Deregister(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	advance := stubClock(t, start)
	handler := &capturingHandler{}
	service := New(Config{}, handler)
	ctx := context.Background()

	service.Register("wf-1", approvalStep(), model.PriorityMedium)

	// deregistered before the deadline: the sweep skips it entirely
	service.Deregister("wf-1", "step-1")
	advance(start.Add(2 * time.Hour))
	assert.NoError(t, service.Sweep(ctx))
	assert.Empty(t, handler.warnings)
	assert.Empty(t, handler.breaches)

	// a breached step deregistered afterwards resolves its path
	service.Register("wf-1", approvalStep(), model.PriorityMedium)
	registered := clock.Now()
	advance(registered.Add(61 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.Len(t, handler.breaches, 1)
	advance(registered.Add(70 * time.Minute))
	service.Deregister("wf-1", "step-1")
	path := service.Path("wf-1", "step-1")
	if assert.NotNil(t, path) {
		assert.True(t, path.Resolved)
	}
	effectiveness, err := service.EvaluateEffectiveness("wf-1", "step-1")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, effectiveness.Score)
}

func TestService_EvaluateEffectiveness_unknown(t *testing.T) {
	service := New(Config{}, nil)
	_, err := service.EvaluateEffectiveness("wf-1", "missing")
	assert.Error(t, err)
}

func TestService_Register_resetsWarning(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	advance := stubClock(t, start)
	handler := &capturingHandler{}
	service := New(Config{}, handler)
	ctx := context.Background()

	service.Register("wf-1", approvalStep(), model.PriorityMedium)
	advance(start.Add(33 * time.Minute))
	assert.NoError(t, service.Sweep(ctx))
	assert.NotNil(t, service.ActiveWarning("wf-1", "step-1"))

	// re-registration resets the deadline and clears the warning
	service.Register("wf-1", approvalStep(), model.PriorityMedium)
	assert.Nil(t, service.ActiveWarning("wf-1", "step-1"))
	assert.NoError(t, service.Sweep(ctx))
	assert.Len(t, handler.warnings, 1)
}
