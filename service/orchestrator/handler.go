package orchestrator

import (
	"context"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/service/escalation"
	"github.com/viant/approvals/service/notification"
)

var _ escalation.Handler = (*Service)(nil)

// OnWarning forwards a timeout warning to the step's approvers.
func (s *Service) OnWarning(ctx context.Context, warning *model.TimeoutWarning) {
	s.metrics.OnWarning(warning.Tier)
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventTimeoutWarning,
		WorkflowID: warning.WorkflowID,
		StepID:     warning.StepID,
		Recipients: warning.Recipients,
		Payload: map[string]interface{}{
			"tier":          warning.Tier,
			"timeRemaining": warning.TimeRemaining.String(),
			"probability":   warning.Probability,
		},
	})
}

// OnBreach moves the workflow into the escalated state when a step deadline
// passes.
func (s *Service) OnBreach(ctx context.Context, path *model.EscalationPath) {
	workflow, lock, err := s.lockWorkflow(path.WorkflowID)
	if err != nil {
		return
	}
	s.markEscalatedLocked(workflow)
	lock.Unlock()
	s.announceEscalation(ctx, workflow, path)
}

// OnExhausted auto-rejects the workflow once an escalation path ran out of
// levels without a resolution.
func (s *Service) OnExhausted(ctx context.Context, path *model.EscalationPath) {
	workflow, lock, err := s.lockWorkflow(path.WorkflowID)
	if err != nil {
		return
	}
	if workflow.Terminal() {
		lock.Unlock()
		return
	}
	now := clock.Now()
	if step := workflow.Step(path.StepID); step != nil && !step.Terminal() {
		step.Status = model.StepTimedOut
		step.CompletedAt = &now
	}
	for _, step := range workflow.Steps {
		if step.Status == model.StepInProgress {
			step.Status = model.StepSkipped
		}
	}
	s.finishLocked(workflow, model.StatusRejected)
	lock.Unlock()

	for _, step := range workflow.Steps {
		s.escalation.Deregister(workflow.ID, step.ID)
	}
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventEscalationExhausted,
		WorkflowID: workflow.ID,
		StepID:     path.StepID,
		Recipients: []string{workflow.Requester},
		Payload:    map[string]interface{}{"status": workflow.Status},
	})
	s.persist(ctx, workflow)
}
