package orchestrator

import (
	"context"
	"fmt"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/notification"
	"github.com/viant/approvals/tracing"
)

// DecisionRequest carries one decider action against a step.
type DecisionRequest struct {
	WorkflowID    string          `json:"workflowId"`
	StepID        string          `json:"stepId"`
	DeciderID     string          `json:"deciderId"`
	Type          string          `json:"type"`
	Justification string          `json:"justification,omitempty"`
	DelegateTo    *model.Approver `json:"delegateTo,omitempty"`
}

// decisionOutcome collects the state changes made under the workflow lock so
// collaborator calls can run after it is released.
type decisionOutcome struct {
	stepTerminal     bool
	workflowTerminal bool
	readyNotify      []*model.Step
	delegated        *model.Approver
	escalationPath   *model.EscalationPath
}

// SubmitDecision validates and applies a decision. The quality gate, the
// consistency gate and the state mutation run in one critical section under
// the workflow's lock, so the step state checked is the step state mutated;
// a withheld decision leaves step and history untouched.
func (s *Service) SubmitDecision(ctx context.Context, request *DecisionRequest) (*model.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.SubmitDecision")
	var err error
	defer func() { tracing.EndSpan(span, err) }()
	started := clock.Now()

	workflow, lock, err := s.lockWorkflow(request.WorkflowID)
	if err != nil {
		return nil, err
	}
	step := workflow.Step(request.StepID)
	if step == nil {
		lock.Unlock()
		err = types.NewNotFoundError("step", request.StepID)
		return nil, err
	}

	proposed := &model.Decision{
		ID:            idgen.New(),
		WorkflowID:    request.WorkflowID,
		StepID:        request.StepID,
		DeciderID:     request.DeciderID,
		Type:          request.Type,
		Justification: request.Justification,
		DelegateTo:    request.DelegateTo,
		CreatedAt:     started,
	}

	// quality gate runs before state checks so a weak justification is
	// reported even when the step is not yet active
	assessment, err := s.decisions.ValidateQuality(ctx, proposed, workflow.Priority)
	if err != nil {
		lock.Unlock()
		s.metrics.OnQualityRejected()
		return nil, err
	}
	proposed.QualityScore = assessment.Score

	if err = s.checkApplicable(workflow, step, request); err != nil {
		lock.Unlock()
		return nil, err
	}

	consistency, err := s.decisions.CheckConsistency(ctx, request.WorkflowID, request.StepID, request.Type, request.DeciderID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if consistency.RequiresEscalation {
		path := s.escalation.Escalate(workflow.ID, step.ID, step.Type, workflow.Priority)
		s.markEscalatedLocked(workflow)
		lock.Unlock()
		s.metrics.OnConflictWithheld()
		s.announceEscalation(ctx, workflow, path)
		conflicting := make([]string, 0, len(consistency.Conflicts))
		for _, conflict := range consistency.Conflicts {
			conflicting = append(conflicting, conflict.DecisionID)
		}
		err = &types.ConflictError{
			WorkflowID:           request.WorkflowID,
			StepID:               request.StepID,
			ConflictingDecisions: conflicting,
		}
		return nil, err
	}

	outcome, err := s.applyLocked(workflow, step, proposed)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	if outcome.stepTerminal {
		s.escalation.Deregister(workflow.ID, step.ID)
	}
	if outcome.escalationPath != nil {
		s.announceEscalation(ctx, workflow, outcome.escalationPath)
	}
	if outcome.delegated != nil {
		s.notify(ctx, &notification.Event{
			Kind:       notification.EventStepReady,
			WorkflowID: workflow.ID,
			StepID:     step.ID,
			Recipients: []string{outcome.delegated.ID},
			Payload:    map[string]interface{}{"delegatedBy": proposed.DeciderID},
		})
	}
	for _, ready := range outcome.readyNotify {
		s.notifyStepReady(ctx, workflow, ready)
	}
	if outcome.workflowTerminal {
		s.notify(ctx, &notification.Event{
			Kind:       notification.EventWorkflowTerminal,
			WorkflowID: workflow.ID,
			Recipients: []string{workflow.Requester},
			Payload:    map[string]interface{}{"status": workflow.Status},
		})
	}

	s.decisions.Record(proposed)
	s.metrics.OnDecisionApplied(clock.Now().Sub(started))
	s.policy.OnDecision(ctx, workflow, proposed)
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventDecisionApplied,
		WorkflowID: workflow.ID,
		StepID:     step.ID,
		Recipients: []string{workflow.Requester},
		Payload:    map[string]interface{}{"type": proposed.Type, "decider": proposed.DeciderID},
	})
	s.persist(ctx, workflow)
	return proposed, nil
}

// checkApplicable verifies the decision targets an active step by an
// authorized decider. Caller holds the workflow lock.
func (s *Service) checkApplicable(workflow *model.Workflow, step *model.Step, request *DecisionRequest) error {
	var issues []error
	if workflow.Terminal() {
		issues = append(issues, fmt.Errorf("workflow %s already finished with status %s", workflow.ID, workflow.Status))
	}
	if step.Status != model.StepInProgress {
		issues = append(issues, fmt.Errorf("step %s is %s, not awaiting decisions", step.ID, step.Status))
	}
	if !step.HasApprover(request.DeciderID) {
		issues = append(issues, fmt.Errorf("decider %s is not an approver of step %s", request.DeciderID, step.ID))
	}
	switch request.Type {
	case model.DecisionApprove, model.DecisionReject, model.DecisionEscalate:
	case model.DecisionDelegate:
		if request.DelegateTo == nil || request.DelegateTo.ID == "" {
			issues = append(issues, fmt.Errorf("delegation requires a delegate"))
		}
	default:
		issues = append(issues, fmt.Errorf("unsupported decision type %q", request.Type))
	}
	return types.NewValidationError(issues)
}

// applyLocked commits the decision to the workflow and advances the
// topology. Caller holds the workflow lock. Terminal step transitions are
// guarded by the state machine so a step can never be terminalized twice.
func (s *Service) applyLocked(workflow *model.Workflow, step *model.Step, decision *model.Decision) (*decisionOutcome, error) {
	now := clock.Now()
	outcome := &decisionOutcome{}

	switch decision.Type {
	case model.DecisionApprove:
		if step.Approvals+1 >= step.RequiredApprovals && !step.CanTransition(model.StepApproved) {
			return nil, types.NewValidationError([]error{fmt.Errorf("step %s cannot move from %s to %s", step.ID, step.Status, model.StepApproved)})
		}
		step.Approvals++
		if step.Approvals >= step.RequiredApprovals {
			step.Status = model.StepApproved
			step.CompletedAt = &now
		}
	case model.DecisionReject:
		if !step.CanTransition(model.StepRejected) {
			return nil, types.NewValidationError([]error{fmt.Errorf("step %s cannot move from %s to %s", step.ID, step.Status, model.StepRejected)})
		}
		step.Status = model.StepRejected
		step.CompletedAt = &now
	case model.DecisionDelegate:
		outcome.delegated = decision.DelegateTo
		for i, approver := range step.Approvers {
			if approver.ID == decision.DeciderID {
				step.Approvers[i] = decision.DelegateTo
			}
		}
	case model.DecisionEscalate:
		outcome.escalationPath = s.escalation.Escalate(workflow.ID, step.ID, step.Type, workflow.Priority)
		s.markEscalatedLocked(workflow)
	}
	if step.Terminal() {
		outcome.stepTerminal = true
		outcome.readyNotify = s.advanceLocked(workflow, step)
	}
	outcome.workflowTerminal = workflow.Terminal()
	workflow.UpdatedAt = now
	return outcome, nil
}

// advanceLocked re-evaluates the workflow after a step reached a terminal
// status and returns newly activated steps. Caller holds the workflow lock.
func (s *Service) advanceLocked(workflow *model.Workflow, step *model.Step) []*model.Step {
	if step.Status == model.StepRejected && workflow.Type != model.WorkflowConsensus {
		// outside consensus a single rejection rejects the workflow
		for _, other := range workflow.Steps {
			if other.Status == model.StepInProgress {
				other.Status = model.StepSkipped
			}
		}
		s.finishLocked(workflow, model.StatusRejected)
		return nil
	}

	switch workflow.Type {
	case model.WorkflowSequential:
		before := map[string]string{}
		for _, candidate := range workflow.Steps {
			before[candidate.ID] = candidate.Status
		}
		s.activateReadySteps(workflow)
		var activated []*model.Step
		for _, candidate := range workflow.Steps {
			if candidate.Status == model.StepInProgress && before[candidate.ID] == model.StepPending {
				activated = append(activated, candidate)
			}
		}
		if s.allSettled(workflow) {
			s.finishLocked(workflow, model.StatusApproved)
		}
		return activated
	case model.WorkflowParallel:
		if s.allSettled(workflow) {
			s.finishLocked(workflow, model.StatusApproved)
		}
	case model.WorkflowConsensus:
		s.evaluateQuorumLocked(workflow)
	}
	return nil
}

// allSettled reports whether every required step has been approved and no
// step remains open.
func (s *Service) allSettled(workflow *model.Workflow) bool {
	for _, step := range workflow.Steps {
		if !step.Terminal() {
			return false
		}
		if step.Status != model.StepApproved && !step.Optional {
			return false
		}
	}
	return true
}

// evaluateQuorumLocked settles a consensus workflow once the approved
// fraction reaches the quorum, or once it can no longer be reached.
func (s *Service) evaluateQuorumLocked(workflow *model.Workflow) {
	total := len(workflow.Steps)
	if total == 0 {
		return
	}
	approved, undecided := 0, 0
	for _, step := range workflow.Steps {
		switch {
		case step.Status == model.StepApproved:
			approved++
		case !step.Terminal():
			undecided++
		}
	}
	fraction := float64(approved) / float64(total)
	if fraction >= workflow.Quorum {
		for _, step := range workflow.Steps {
			if step.Status == model.StepInProgress {
				step.Status = model.StepSkipped
			}
		}
		s.finishLocked(workflow, model.StatusApproved)
		return
	}
	if float64(approved+undecided)/float64(total) < workflow.Quorum {
		for _, step := range workflow.Steps {
			if step.Status == model.StepInProgress {
				step.Status = model.StepSkipped
			}
		}
		s.finishLocked(workflow, model.StatusRejected)
	}
}

// markEscalatedLocked flips the workflow into the escalated state. Caller
// holds the workflow lock.
func (s *Service) markEscalatedLocked(workflow *model.Workflow) {
	if !workflow.Terminal() && workflow.Status != model.StatusEscalated {
		workflow.Status = model.StatusEscalated
		workflow.UpdatedAt = clock.Now()
	}
}

// announceEscalation records and publishes an opened escalation path.
func (s *Service) announceEscalation(ctx context.Context, workflow *model.Workflow, path *model.EscalationPath) {
	s.metrics.OnEscalation()
	s.policy.OnEscalation(ctx, workflow, path)
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventEscalationOpened,
		WorkflowID: workflow.ID,
		StepID:     path.StepID,
		Payload:    map[string]interface{}{"level": path.Level, "urgency": path.UrgencyScore},
	})
	s.persist(ctx, workflow)
}
