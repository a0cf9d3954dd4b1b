// Package escalation implements deadline tracking for in-flight approval
// steps: tiered timeout warnings while time remains and a leveled escalation
// path once a deadline is breached.
package escalation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
)

// Config holds timeout and escalation settings.
type Config struct {
	// SweepInterval is how often deadlines are re-evaluated.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
	// Thresholds maps step type to its base timeout.
	Thresholds map[string]time.Duration `json:"thresholds" yaml:"thresholds"`
	// PriorityScale shortens thresholds for higher priorities.
	PriorityScale map[string]float64 `json:"priorityScale" yaml:"priorityScale"`
}

// DefaultConfig returns the default escalation configuration.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 250 * time.Millisecond,
		Thresholds: map[string]time.Duration{
			model.StepTypeApproval:   time.Hour,
			model.StepTypeDecision:   30 * time.Minute,
			model.StepTypeEscalation: 15 * time.Minute,
			model.StepTypeSystem:     5 * time.Minute,
		},
		PriorityScale: map[string]float64{
			model.PriorityUrgent: 0.5,
			model.PriorityHigh:   0.75,
		},
	}
}

// Handler receives timeout and escalation events. Callbacks run outside the
// engine's lock; implementations may call back into the engine.
type Handler interface {
	OnWarning(ctx context.Context, warning *model.TimeoutWarning)
	OnBreach(ctx context.Context, path *model.EscalationPath)
	OnExhausted(ctx context.Context, path *model.EscalationPath)
}

// Effectiveness is a retrospective verdict on a finished escalation.
type Effectiveness struct {
	Score        float64  `json:"score"`
	Improvements []string `json:"improvements,omitempty"`
}

type entry struct {
	workflowID   string
	stepID       string
	stepType     string
	priority     string
	recipients   []string
	registeredAt time.Time
	deadline     time.Time
	warning      *model.TimeoutWarning
	path         *model.EscalationPath
	resolvedAt   time.Time
}

// Service is the timeout-escalation engine.
type Service struct {
	config     Config
	handler    Handler
	mux        sync.Mutex
	entries    map[string]*entry
	finished   map[string]*entry
	shutdownCh chan struct{}
}

// New creates a timeout-escalation engine.
func New(config Config, handler Handler) *Service {
	defaults := DefaultConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if len(config.Thresholds) == 0 {
		config.Thresholds = defaults.Thresholds
	}
	if len(config.PriorityScale) == 0 {
		config.PriorityScale = defaults.PriorityScale
	}
	return &Service{
		config:     config,
		handler:    handler,
		entries:    map[string]*entry{},
		finished:   map[string]*entry{},
		shutdownCh: make(chan struct{}),
	}
}

// SetHandler installs the event handler. Call before Start; it breaks the
// construction cycle between the engine and the orchestrator.
func (s *Service) SetHandler(handler Handler) {
	s.handler = handler
}

func key(workflowID, stepID string) string {
	return workflowID + "/" + stepID
}

// Threshold returns the effective timeout for a step type and priority.
func (s *Service) Threshold(stepType, priority string) time.Duration {
	threshold, ok := s.config.Thresholds[stepType]
	if !ok {
		threshold = s.config.Thresholds[model.StepTypeApproval]
	}
	if scale, ok := s.config.PriorityScale[priority]; ok {
		threshold = time.Duration(float64(threshold) * scale)
	}
	return threshold
}

// Register starts deadline tracking for a step and returns the computed
// deadline. Re-registering the same step resets the deadline and clears any
// active warning.
func (s *Service) Register(workflowID string, step *model.Step, priority string) time.Time {
	now := clock.Now()
	deadline := now.Add(s.Threshold(step.Type, priority))
	recipients := make([]string, 0, len(step.Approvers))
	for _, approver := range step.Approvers {
		recipients = append(recipients, approver.ID)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.entries[key(workflowID, step.ID)] = &entry{
		workflowID:   workflowID,
		stepID:       step.ID,
		stepType:     step.Type,
		priority:     priority,
		recipients:   recipients,
		registeredAt: now,
		deadline:     deadline,
	}
	return deadline
}

// Deregister stops tracking a step. If an escalation path is open it is
// marked resolved. Safe against a concurrent sweep: the step is skipped,
// never double-processed.
func (s *Service) Deregister(workflowID, stepID string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if e, ok := s.entries[key(workflowID, stepID)]; ok {
		if e.path != nil {
			if !e.path.Exhausted {
				e.path.Resolved = true
				e.resolvedAt = clock.Now()
			}
			s.finished[key(workflowID, stepID)] = e
		}
		delete(s.entries, key(workflowID, stepID))
	}
}

// ActiveWarning returns the step's current warning, if any.
func (s *Service) ActiveWarning(workflowID, stepID string) *model.TimeoutWarning {
	s.mux.Lock()
	defer s.mux.Unlock()
	if e, ok := s.entries[key(workflowID, stepID)]; ok {
		return e.warning
	}
	return nil
}

// Path returns the step's escalation path, if one has been opened.
func (s *Service) Path(workflowID, stepID string) *model.EscalationPath {
	s.mux.Lock()
	defer s.mux.Unlock()
	if e, ok := s.entries[key(workflowID, stepID)]; ok {
		return e.path
	}
	if e, ok := s.finished[key(workflowID, stepID)]; ok {
		return e.path
	}
	return nil
}

// Escalate opens an escalation path for a step ahead of its deadline, e.g.
// when conflicting decisions demand human arbitration. Idempotent: an
// existing path is returned unchanged.
func (s *Service) Escalate(workflowID, stepID, stepType, priority string) *model.EscalationPath {
	now := clock.Now()
	s.mux.Lock()
	defer s.mux.Unlock()
	e, ok := s.entries[key(workflowID, stepID)]
	if !ok {
		e = &entry{
			workflowID:   workflowID,
			stepID:       stepID,
			stepType:     stepType,
			priority:     priority,
			registeredAt: now,
			deadline:     now,
		}
		s.entries[key(workflowID, stepID)] = e
	}
	if e.path == nil {
		e.path = s.buildPath(e, now)
	}
	return e.path
}

// Start runs the sweep loop until the context is cancelled or Shutdown is
// called.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("escalation sweep: %v", err)
			}
		}
	}
}

// Shutdown stops the sweep loop.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

var warningRank = map[string]int{
	model.WarningEarly:    1,
	model.WarningCritical: 2,
	model.WarningFinal:    3,
}

// Sweep re-evaluates every tracked step once. Handler callbacks are invoked
// after the engine lock is released.
func (s *Service) Sweep(ctx context.Context) error {
	now := clock.Now()
	var warnings []*model.TimeoutWarning
	var breached []*model.EscalationPath
	var exhausted []*model.EscalationPath

	s.mux.Lock()
	for _, e := range s.entries {
		if e.deadline.After(now) {
			if warning := s.warningFor(e, now); warning != nil {
				e.warning = warning
				warnings = append(warnings, warning)
			}
			continue
		}
		if e.path == nil {
			e.path = s.buildPath(e, now)
			breached = append(breached, e.path)
		}
		if !e.path.Resolved && !e.path.Exhausted && now.After(e.path.Deadline()) {
			e.path.Exhausted = true
			exhausted = append(exhausted, e.path)
		}
	}
	s.mux.Unlock()

	if s.handler != nil {
		for _, warning := range warnings {
			s.handler.OnWarning(ctx, warning)
		}
		for _, path := range breached {
			s.handler.OnBreach(ctx, path)
		}
		for _, path := range exhausted {
			s.handler.OnExhausted(ctx, path)
		}
	}
	return nil
}

// warningFor returns a new warning when the step crossed into a tier it has
// not been warned about yet.
func (s *Service) warningFor(e *entry, now time.Time) *model.TimeoutWarning {
	total := e.deadline.Sub(e.registeredAt)
	if total <= 0 {
		return nil
	}
	remaining := e.deadline.Sub(now)
	fraction := float64(remaining) / float64(total)

	var tier string
	var probability float64
	switch {
	case fraction <= 0.10:
		tier, probability = model.WarningFinal, 0.9
	case fraction <= 0.30:
		tier, probability = model.WarningCritical, 0.6
	case fraction <= 0.50:
		tier, probability = model.WarningEarly, 0.3
	default:
		return nil
	}
	if e.warning != nil && warningRank[e.warning.Tier] >= warningRank[tier] {
		return nil
	}
	return &model.TimeoutWarning{
		ID:            idgen.New(),
		WorkflowID:    e.workflowID,
		StepID:        e.stepID,
		Tier:          tier,
		TimeRemaining: remaining,
		Probability:   probability,
		Recipients:    e.recipients,
		CreatedAt:     now,
	}
}

// buildPath constructs the one escalation path for a breached step.
func (s *Service) buildPath(e *entry, now time.Time) *model.EscalationPath {
	urgency := urgencyScore(e.stepType, e.priority)
	subTimeout := s.Threshold(e.stepType, e.priority) / 2
	return &model.EscalationPath{
		ID:           idgen.New(),
		WorkflowID:   e.workflowID,
		StepID:       e.stepID,
		Level:        levelFor(urgency),
		UrgencyScore: urgency,
		Levels:       levelsFrom(levelFor(urgency), subTimeout),
		SuccessCriteria: []string{
			"decision recorded on the overdue step",
			"step resolved before the path deadline",
		},
		CreatedAt: now,
	}
}

func urgencyScore(stepType, priority string) int {
	score := 85
	switch stepType {
	case model.StepTypeSystem:
		score += 10
	case model.StepTypeEscalation:
		score += 8
	}
	switch priority {
	case model.PriorityUrgent:
		score += 10
	case model.PriorityHigh:
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}

func levelFor(urgency int) string {
	switch {
	case urgency >= 95:
		return model.LevelCritical
	case urgency >= 85:
		return model.LevelThree
	case urgency >= 75:
		return model.LevelTwo
	}
	return model.LevelOne
}

var levelLadder = []*model.EscalationLevel{
	{Name: model.LevelOne, OwnerRole: "team-lead", Actions: []string{model.ActionNotify}},
	{Name: model.LevelTwo, OwnerRole: "manager", Actions: []string{model.ActionNotify, model.ActionReassign}},
	{Name: model.LevelThree, OwnerRole: "director", Actions: []string{model.ActionNotify, model.ActionReassign}},
	{Name: model.LevelCritical, OwnerRole: "incident-commander", Actions: []string{model.ActionNotify, model.ActionAutoReject}},
}

// levelsFrom returns the ladder rungs from the starting level upwards, each
// with its own sub-timeout.
func levelsFrom(start string, subTimeout time.Duration) []*model.EscalationLevel {
	var result []*model.EscalationLevel
	found := false
	for _, rung := range levelLadder {
		if rung.Name == start {
			found = true
		}
		if !found {
			continue
		}
		result = append(result, &model.EscalationLevel{
			Name:       rung.Name,
			OwnerRole:  rung.OwnerRole,
			SubTimeout: subTimeout,
			Actions:    append([]string(nil), rung.Actions...),
		})
	}
	return result
}

// EvaluateEffectiveness scores a finished escalation for a step. It reports
// NotFound until a path has been opened for the step.
func (s *Service) EvaluateEffectiveness(workflowID, stepID string) (*Effectiveness, error) {
	s.mux.Lock()
	e, ok := s.entries[key(workflowID, stepID)]
	if !ok {
		e, ok = s.finished[key(workflowID, stepID)]
	}
	s.mux.Unlock()
	if !ok || e.path == nil {
		return nil, types.NewNotFoundError("escalation", key(workflowID, stepID))
	}
	result := &Effectiveness{}
	switch {
	case e.path.Exhausted:
		result.Score = 20
		result.Improvements = append(result.Improvements,
			"path exhausted without resolution; widen the owner pool or shorten warning lead time")
	case e.path.Resolved:
		elapsed := e.resolvedAt.Sub(e.path.CreatedAt)
		if len(e.path.Levels) > 0 && elapsed <= e.path.Levels[0].SubTimeout {
			result.Score = 100
		} else {
			result.Score = 60
			result.Improvements = append(result.Improvements,
				"resolution required more than one level; review first-level ownership")
		}
	default:
		result.Score = 40
		result.Improvements = append(result.Improvements, "escalation still open")
	}
	return result, nil
}
