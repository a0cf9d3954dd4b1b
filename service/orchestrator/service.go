// Package orchestrator implements the approval workflow lifecycle: admission
// under a capacity gate, risk-shaped policy application, decision processing
// across sequential, parallel and consensus topologies, and timeout-driven
// escalation.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/approvals/extension"
	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/decision"
	"github.com/viant/approvals/service/escalation"
	"github.com/viant/approvals/service/metrics"
	"github.com/viant/approvals/service/notification"
	"github.com/viant/approvals/service/persistence"
	"github.com/viant/approvals/service/risk"
	"github.com/viant/approvals/service/risk/condition"
	"github.com/viant/approvals/tracing"
	"github.com/viant/structology/conv"
)

// Config holds orchestrator settings.
type Config struct {
	// Capacity caps the number of non-terminal workflows.
	Capacity int `json:"capacity" yaml:"capacity"`
	// WorkflowTTL bounds a workflow's total lifetime.
	WorkflowTTL time.Duration `json:"workflowTTL" yaml:"workflowTTL"`
	// DefaultQuorum applies to consensus workflows that declare none.
	DefaultQuorum float64 `json:"defaultQuorum" yaml:"defaultQuorum"`
	// ExpirySweepInterval is how often expired workflows are collected.
	ExpirySweepInterval time.Duration `json:"expirySweepInterval" yaml:"expirySweepInterval"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:            1000,
		WorkflowTTL:         168 * time.Hour,
		DefaultQuorum:       0.5,
		ExpirySweepInterval: time.Second,
	}
}

// ApproverMatcher assigns the effective approver set for a step at
// admission. The default keeps the declared set unmodified.
type ApproverMatcher interface {
	Match(ctx context.Context, workflow *model.Workflow, step *model.Step) []*model.Approver
}

type identityMatcher struct{}

func (identityMatcher) Match(_ context.Context, _ *model.Workflow, step *model.Step) []*model.Approver {
	return step.Approvers
}

// Service is the approval orchestrator. The table lock only guards the
// workflow map; each workflow carries its own lock so mutation is serialized
// per workflow and independent workflows never contend.
type Service struct {
	config     Config
	risk       *risk.Service
	decisions  *decision.Service
	escalation *escalation.Service
	metrics    *metrics.Aggregator
	notifier   notification.Notifier
	store      persistence.Store
	policy     extension.Policy
	matcher    ApproverMatcher
	converter  *conv.Converter

	mux         sync.RWMutex
	workflows   map[string]*model.Workflow
	locks       map[string]*sync.Mutex
	assessments map[string]*model.RiskAssessment
	active      int64
	shutdownCh  chan struct{}
}

// Option customizes the orchestrator.
type Option func(*Service)

// WithNotifier installs an event notifier.
func WithNotifier(notifier notification.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithStore installs a persistence collaborator.
func WithStore(store persistence.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithPolicy installs lifecycle policy hooks.
func WithPolicy(policy extension.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithMatcher installs an approver matching strategy.
func WithMatcher(matcher ApproverMatcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

// New creates an approval orchestrator.
func New(config Config, riskEngine *risk.Service, decisions *decision.Service, escalationEngine *escalation.Service, aggregator *metrics.Aggregator, options ...Option) *Service {
	defaults := DefaultConfig()
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if config.WorkflowTTL <= 0 {
		config.WorkflowTTL = defaults.WorkflowTTL
	}
	if config.DefaultQuorum <= 0 {
		config.DefaultQuorum = defaults.DefaultQuorum
	}
	if config.ExpirySweepInterval <= 0 {
		config.ExpirySweepInterval = defaults.ExpirySweepInterval
	}
	converterOptions := conv.DefaultOptions()
	converterOptions.IgnoreUnmapped = true
	s := &Service{
		config:      config,
		risk:        riskEngine,
		decisions:   decisions,
		escalation:  escalationEngine,
		metrics:     aggregator,
		policy:      extension.NoopPolicy{},
		matcher:     identityMatcher{},
		converter:   conv.NewConverter(converterOptions),
		workflows:   map[string]*model.Workflow{},
		locks:       map[string]*sync.Mutex{},
		assessments: map[string]*model.RiskAssessment{},
		shutdownCh:  make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// SetDecisions installs the decision engine. It breaks the construction
// cycle: the decision engine resolves step order through this service.
func (s *Service) SetDecisions(decisions *decision.Service) {
	s.decisions = decisions
}

// StepOrder resolves a step's ordinal for consistency checks. Step identity
// and ordering are immutable after admission, so the table lock suffices.
func (s *Service) StepOrder(workflowID, stepID string) int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if workflow, ok := s.workflows[workflowID]; ok {
		return workflow.StepOrder(stepID)
	}
	return -1
}

// lockWorkflow returns the workflow with its lock held. The caller unlocks
// the returned mutex once mutation is complete.
func (s *Service) lockWorkflow(id string) (*model.Workflow, *sync.Mutex, error) {
	s.mux.RLock()
	workflow, ok := s.workflows[id]
	lock := s.locks[id]
	s.mux.RUnlock()
	if !ok {
		return nil, nil, types.NewNotFoundError("workflow", id)
	}
	lock.Lock()
	return workflow, lock, nil
}

// Submit validates and admits a workflow. Admission is all-or-nothing: the
// capacity check and insertion happen atomically, and no partial state
// remains on any failure.
func (s *Service) Submit(ctx context.Context, spec *model.WorkflowSpec, priority string) (*model.Workflow, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Submit")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if spec == nil {
		err = types.NewValidationError([]error{types.ErrValidationFailed})
		return nil, err
	}
	if issues := spec.Validate(); len(issues) > 0 {
		s.metrics.OnValidationFailed()
		s.metrics.OnSubmit(false)
		err = types.NewValidationError(issues)
		return nil, err
	}
	if _, ok := map[string]bool{
		model.PriorityLow: true, model.PriorityMedium: true,
		model.PriorityHigh: true, model.PriorityUrgent: true,
	}[priority]; !ok {
		s.metrics.OnValidationFailed()
		s.metrics.OnSubmit(false)
		err = &types.AssessmentInputError{Field: "priority", Value: priority}
		return nil, err
	}

	assessment, err := s.risk.Assess(ctx, "", spec.Context, priority)
	if err != nil {
		s.metrics.OnSubmit(false)
		return nil, err
	}

	workflow := s.materialize(spec, priority, assessment)

	s.mux.Lock()
	active := int(atomic.LoadInt64(&s.active))
	if active >= s.config.Capacity {
		s.mux.Unlock()
		s.metrics.OnCapacityRejected()
		s.metrics.OnSubmit(false)
		err = &types.CapacityExceededError{Capacity: s.config.Capacity, Active: active}
		return nil, err
	}
	// the workflow lock is taken before the workflow is published, so no
	// other caller can observe it mid-admission
	lock := &sync.Mutex{}
	lock.Lock()
	s.workflows[workflow.ID] = workflow
	s.locks[workflow.ID] = lock
	assessment.WorkflowID = workflow.ID
	s.assessments[workflow.ID] = assessment
	atomic.AddInt64(&s.active, 1)
	s.mux.Unlock()

	autoApproved := s.autoApprove(assessment.Policy, spec.Context)
	if autoApproved {
		now := clock.Now()
		for _, step := range workflow.Steps {
			step.Status = model.StepApproved
			step.CompletedAt = &now
		}
		s.finishLocked(workflow, model.StatusApproved)
	} else {
		s.activateReadySteps(workflow)
	}
	lock.Unlock()

	s.metrics.OnSubmit(true)
	s.policy.OnAdmit(ctx, workflow, assessment)
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventWorkflowAdmitted,
		WorkflowID: workflow.ID,
		Recipients: []string{workflow.Requester},
		Payload:    map[string]interface{}{"riskTier": assessment.Tier, "priority": priority},
	})
	if autoApproved {
		s.notify(ctx, &notification.Event{
			Kind:       notification.EventWorkflowTerminal,
			WorkflowID: workflow.ID,
			Recipients: []string{workflow.Requester},
			Payload:    map[string]interface{}{"status": workflow.Status, "autoApproved": true},
		})
	}
	for _, step := range workflow.Steps {
		if step.Status == model.StepInProgress {
			s.notifyStepReady(ctx, workflow, step)
		}
	}
	s.persist(ctx, workflow)
	return workflow, nil
}

// autoApprove reports whether every synthesized auto-approval condition
// holds for the submission context. Any parse or evaluation failure keeps
// the workflow on the manual path.
func (s *Service) autoApprove(policy *model.ApprovalPolicy, workflowCtx *model.WorkflowContext) bool {
	if policy == nil || policy.AutoApproval == nil || !policy.AutoApproval.Enabled || len(policy.AutoApproval.Conditions) == 0 {
		return false
	}
	input := condition.Input{Now: clock.Now()}
	if workflowCtx != nil {
		input.Region = workflowCtx.Region
		input.SecurityLevel = workflowCtx.SecurityLevel
		input.Budget = workflowCtx.BudgetExposure
	}
	for _, expr := range policy.AutoApproval.Conditions {
		parsed, err := condition.Parse([]byte(expr))
		if err != nil {
			log.Printf("invalid auto-approval condition %q: %v", expr, err)
			return false
		}
		holds, err := parsed.Evaluate(input)
		if err != nil || !holds {
			return false
		}
	}
	return true
}

// SubmitPayload converts a loosely-typed submission into a WorkflowSpec and
// submits it.
func (s *Service) SubmitPayload(ctx context.Context, payload interface{}, priority string) (*model.Workflow, error) {
	spec := &model.WorkflowSpec{}
	if err := s.converter.Convert(payload, spec); err != nil {
		return nil, types.NewValidationError([]error{err})
	}
	return s.Submit(ctx, spec, priority)
}

// materialize builds the runtime workflow from its spec, applying the
// risk-derived policy: deadline scaling happens via step registration
// thresholds, critical tier appends a mandatory senior review step.
func (s *Service) materialize(spec *model.WorkflowSpec, priority string, assessment *model.RiskAssessment) *model.Workflow {
	now := clock.Now()
	workflow := &model.Workflow{
		ID:        idgen.New(),
		Name:      spec.Name,
		Type:      spec.Type,
		Status:    model.StatusPending,
		Priority:  priority,
		RiskTier:  assessment.Tier,
		Requester: spec.Requester,
		Quorum:    spec.Quorum,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Duration(float64(s.config.WorkflowTTL) * assessment.Policy.DeadlineScale)),
	}
	if workflow.Type == model.WorkflowConsensus && workflow.Quorum == 0 {
		workflow.Quorum = s.config.DefaultQuorum
	}
	for i, stepSpec := range spec.Steps {
		step := &model.Step{
			ID:                stepSpec.ID,
			Name:              stepSpec.Name,
			Order:             i,
			Type:              stepSpec.Type,
			Status:            model.StepPending,
			RequiredApprovals: stepSpec.RequiredApprovals,
			Approvers:         stepSpec.Approvers,
			Optional:          stepSpec.Optional,
		}
		if step.ID == "" {
			step.ID = idgen.New()
		}
		if step.Type == "" {
			step.Type = model.StepTypeApproval
		}
		if step.RequiredApprovals <= 0 {
			step.RequiredApprovals = 1
		}
		workflow.Steps = append(workflow.Steps, step)
	}
	for _, role := range assessment.Policy.MandatoryRoles {
		workflow.Steps = append(workflow.Steps, &model.Step{
			ID:                idgen.New(),
			Name:              role + " review",
			Order:             len(workflow.Steps),
			Type:              model.StepTypeApproval,
			Status:            model.StepPending,
			RequiredApprovals: 1,
			Approvers:         []*model.Approver{{ID: role, Role: role}},
		})
	}
	return workflow
}

// activateReadySteps moves steps whose predecessors are satisfied into
// in_progress and registers them for timeout tracking. Caller holds the
// workflow lock.
func (s *Service) activateReadySteps(workflow *model.Workflow) {
	for _, step := range workflow.Steps {
		if step.Status != model.StepPending {
			continue
		}
		ready := workflow.PredecessorsSatisfied(step)
		if workflow.Type != model.WorkflowSequential {
			// parallel and consensus topologies open every step up front
			ready = true
		}
		if !ready {
			continue
		}
		step.Status = model.StepInProgress
		step.Approvers = s.matcher.Match(context.Background(), workflow, step)
		deadline := s.escalation.Register(workflow.ID, step, workflow.Priority)
		step.Deadline = &deadline
	}
	if workflow.Status == model.StatusPending {
		for _, step := range workflow.Steps {
			if step.Status == model.StepInProgress {
				workflow.Status = model.StatusInProgress
				break
			}
		}
	}
	workflow.UpdatedAt = clock.Now()
}

func (s *Service) notifyStepReady(ctx context.Context, workflow *model.Workflow, step *model.Step) {
	recipients := make([]string, 0, len(step.Approvers))
	for _, approver := range step.Approvers {
		recipients = append(recipients, approver.ID)
	}
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventStepReady,
		WorkflowID: workflow.ID,
		StepID:     step.ID,
		Recipients: recipients,
	})
}

func (s *Service) notify(ctx context.Context, event *notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("notification %v for workflow %v failed: %v", event.Kind, event.WorkflowID, err)
	}
}

// persist writes workflow state; persistence failures degrade but never veto
// an applied change.
func (s *Service) persist(ctx context.Context, workflow *model.Workflow) {
	if s.store == nil {
		return
	}
	if err := s.store.Persist(ctx, workflow); err != nil {
		log.Printf("persisting workflow %v degraded: %v", workflow.ID, err)
	}
}

// Get returns a workflow by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Workflow, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if workflow, ok := s.workflows[id]; ok {
		return workflow, nil
	}
	return nil, types.NewNotFoundError("workflow", id)
}

// Assessment returns the current risk assessment for a workflow.
func (s *Service) Assessment(ctx context.Context, workflowID string) (*model.RiskAssessment, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if assessment, ok := s.assessments[workflowID]; ok {
		return assessment, nil
	}
	return nil, types.NewNotFoundError("assessment", workflowID)
}

// List returns workflows, optionally narrowed to a status.
func (s *Service) List(ctx context.Context, status string) []*model.Workflow {
	s.mux.RLock()
	candidates := make([]*model.Workflow, 0, len(s.workflows))
	candidateLocks := make([]*sync.Mutex, 0, len(s.workflows))
	for id, workflow := range s.workflows {
		candidates = append(candidates, workflow)
		candidateLocks = append(candidateLocks, s.locks[id])
	}
	s.mux.RUnlock()
	var result []*model.Workflow
	for i, workflow := range candidates {
		candidateLocks[i].Lock()
		matched := status == "" || workflow.Status == status
		candidateLocks[i].Unlock()
		if matched {
			result = append(result, workflow)
		}
	}
	return result
}

// Reassess recomputes the risk assessment for an active workflow. It is the
// only path that replaces an assessment after admission.
func (s *Service) Reassess(ctx context.Context, workflowID string, workflowCtx *model.WorkflowContext) (*model.RiskAssessment, error) {
	workflow, lock, err := s.lockWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	assessment, err := s.risk.Assess(ctx, workflowID, workflowCtx, workflow.Priority)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	workflow.RiskTier = assessment.Tier
	workflow.UpdatedAt = clock.Now()
	s.mux.Lock()
	s.assessments[workflowID] = assessment
	s.mux.Unlock()
	lock.Unlock()
	s.persist(ctx, workflow)
	return assessment, nil
}

// Cancel cancels a workflow that has not finished. Cancellation of an
// in-progress workflow is recorded as a rejection of its open steps.
func (s *Service) Cancel(ctx context.Context, workflowID, reason string) error {
	workflow, lock, err := s.lockWorkflow(workflowID)
	if err != nil {
		return err
	}
	if workflow.Terminal() {
		lock.Unlock()
		return types.NewValidationError([]error{types.ErrValidationFailed})
	}
	// a workflow whose steps all remain pending is cancelled outright; once
	// a step has opened the audit trail must show a rejection instead
	status := model.StatusCancelled
	if workflow.Status != model.StatusPending {
		status = model.StatusRejected
	}
	var open []*model.Step
	for _, step := range workflow.Steps {
		if step.Status == model.StepInProgress {
			step.Status = model.StepRejected
			now := clock.Now()
			step.CompletedAt = &now
			open = append(open, step)
		} else if step.Status == model.StepPending {
			step.Status = model.StepSkipped
		}
	}
	s.finishLocked(workflow, status)
	lock.Unlock()

	for _, step := range open {
		s.escalation.Deregister(workflow.ID, step.ID)
	}
	s.notify(ctx, &notification.Event{
		Kind:       notification.EventWorkflowTerminal,
		WorkflowID: workflow.ID,
		Recipients: []string{workflow.Requester},
		Payload:    map[string]interface{}{"status": workflow.Status, "reason": reason},
	})
	s.persist(ctx, workflow)
	return nil
}

// finishLocked moves a workflow to a terminal status and releases its
// admission slot. Caller holds the workflow lock.
func (s *Service) finishLocked(workflow *model.Workflow, status string) {
	now := clock.Now()
	workflow.Status = status
	workflow.UpdatedAt = now
	workflow.FinishedAt = &now
	atomic.AddInt64(&s.active, -1)
	s.metrics.OnTerminal(status)
}

// Start runs the expiry sweep loop until the context is cancelled or
// Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.ExpirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			s.ExpireSweep(ctx)
		}
	}
}

// Shutdown stops the expiry sweep loop.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

// ExpireSweep expires workflows whose TTL elapsed without a terminal
// decision.
func (s *Service) ExpireSweep(ctx context.Context) {
	now := clock.Now()
	s.mux.RLock()
	candidates := make([]*model.Workflow, 0, len(s.workflows))
	candidateLocks := make([]*sync.Mutex, 0, len(s.workflows))
	for id, workflow := range s.workflows {
		candidates = append(candidates, workflow)
		candidateLocks = append(candidateLocks, s.locks[id])
	}
	s.mux.RUnlock()

	var expired []*model.Workflow
	for i, workflow := range candidates {
		lock := candidateLocks[i]
		lock.Lock()
		if workflow.Terminal() || workflow.ExpiresAt.After(now) {
			lock.Unlock()
			continue
		}
		for _, step := range workflow.Steps {
			if step.Status == model.StepInProgress {
				step.Status = model.StepTimedOut
			}
		}
		s.finishLocked(workflow, model.StatusExpired)
		lock.Unlock()
		expired = append(expired, workflow)
	}
	for _, workflow := range expired {
		for _, step := range workflow.Steps {
			s.escalation.Deregister(workflow.ID, step.ID)
		}
		s.notify(ctx, &notification.Event{
			Kind:       notification.EventWorkflowTerminal,
			WorkflowID: workflow.ID,
			Recipients: []string{workflow.Requester},
			Payload:    map[string]interface{}{"status": model.StatusExpired},
		})
		s.persist(ctx, workflow)
	}
}

// Recover loads non-terminal workflows from the store and resumes tracking
// their open steps.
func (s *Service) Recover(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	workflows, err := s.store.LoadActive(ctx)
	if err != nil {
		return err
	}
	var recovered []*model.Workflow
	s.mux.Lock()
	for _, workflow := range workflows {
		if _, ok := s.workflows[workflow.ID]; ok {
			continue
		}
		s.workflows[workflow.ID] = workflow
		s.locks[workflow.ID] = &sync.Mutex{}
		atomic.AddInt64(&s.active, 1)
		recovered = append(recovered, workflow)
	}
	s.mux.Unlock()
	for _, workflow := range recovered {
		_, lock, err := s.lockWorkflow(workflow.ID)
		if err != nil {
			continue
		}
		for _, step := range workflow.Steps {
			if step.Status == model.StepInProgress {
				deadline := s.escalation.Register(workflow.ID, step, workflow.Priority)
				step.Deadline = &deadline
			}
		}
		lock.Unlock()
	}
	return nil
}
