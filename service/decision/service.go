// Package decision implements decision quality validation, cross-decision
// consistency checking and the immutable decision history.
package decision

import (
	"context"
	"sort"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
)

// Quality flag constants
const (
	FlagEmptyJustification = "empty_justification"
	FlagShortJustification = "short_justification"
	FlagPolicyInconsistent = "policy_inconsistent"
	FlagBoilerplate        = "boilerplate_justification"
)

// Config holds decision engine settings.
type Config struct {
	// QualityFloor is the minimum acceptable quality score (0-100).
	QualityFloor int `json:"qualityFloor" yaml:"qualityFloor"`
	// MinJustification is the minimum justification length in characters.
	MinJustification int `json:"minJustification" yaml:"minJustification"`
	// ConflictEscalationThreshold is the conflict count at which a
	// consistency check demands escalation.
	ConflictEscalationThreshold int `json:"conflictEscalationThreshold" yaml:"conflictEscalationThreshold"`
	// BoilerplateRatio is the similarity ratio above which a justification
	// is flagged as recycled from the decider's earlier decisions.
	BoilerplateRatio float64 `json:"boilerplateRatio" yaml:"boilerplateRatio"`
}

// DefaultConfig returns the default decision engine configuration.
func DefaultConfig() Config {
	return Config{
		QualityFloor:                60,
		MinJustification:            10,
		ConflictEscalationThreshold: 2,
		BoilerplateRatio:            0.9,
	}
}

// QualityAssessment is the outcome of validating a single proposed decision.
type QualityAssessment struct {
	Score      int      `json:"score"`
	Acceptable bool     `json:"acceptable"`
	Flags      []string `json:"flags,omitempty"`
}

// Conflict describes one opposing decision discovered by a consistency
// check.
type Conflict struct {
	DecisionID string `json:"decisionId"`
	StepID     string `json:"stepId"`
	DeciderID  string `json:"deciderId"`
	Type       string `json:"type"`
}

// ConsistencyCheck is the outcome of checking a proposed decision against
// the workflow's committed history. Score starts at 100 and drops with each
// conflicting decision.
type ConsistencyCheck struct {
	Consistent         bool       `json:"consistent"`
	Conflicts          []Conflict `json:"conflicts,omitempty"`
	Score              int        `json:"consistencyScore"`
	RequiresEscalation bool       `json:"requiresEscalation"`
}

// Filter narrows History results. Zero fields match everything.
type Filter struct {
	WorkflowID string
	DeciderID  string
}

// StepOrderResolver reports the ordinal of a step within a workflow, or -1
// when unknown. It lets consistency checks treat predecessor-step
// oppositions as conflicts without this package depending on workflow
// storage.
type StepOrderResolver func(workflowID, stepID string) int

// Service is the decision engine. The history index is keyed by workflow id
// so a consistency check touches only that workflow's decisions.
type Service struct {
	config   Config
	resolver StepOrderResolver

	mux        sync.RWMutex
	byWorkflow map[string][]*model.Decision
}

// Option customizes the decision engine.
type Option func(*Service)

// WithStepOrder installs a step-order resolver used to detect conflicts on
// predecessor steps.
func WithStepOrder(resolver StepOrderResolver) Option {
	return func(s *Service) { s.resolver = resolver }
}

// New creates a decision engine.
func New(config Config, options ...Option) *Service {
	defaults := DefaultConfig()
	if config.QualityFloor <= 0 {
		config.QualityFloor = defaults.QualityFloor
	}
	if config.MinJustification <= 0 {
		config.MinJustification = defaults.MinJustification
	}
	if config.ConflictEscalationThreshold <= 0 {
		config.ConflictEscalationThreshold = defaults.ConflictEscalationThreshold
	}
	if config.BoilerplateRatio <= 0 {
		config.BoilerplateRatio = defaults.BoilerplateRatio
	}
	result := &Service{
		config:     config,
		byWorkflow: map[string][]*model.Decision{},
	}
	for _, option := range options {
		option(result)
	}
	return result
}

// ValidateQuality scores a proposed decision and reports whether it clears
// the quality floor. A failing assessment is returned alongside a
// QualityBelowThreshold error so callers can surface the detail.
func (s *Service) ValidateQuality(ctx context.Context, decision *model.Decision, priority string) (*QualityAssessment, error) {
	assessment := &QualityAssessment{}
	justification := decision.Justification
	if justification == "" {
		assessment.Flags = append(assessment.Flags, FlagEmptyJustification)
	} else if len(justification) < s.config.MinJustification {
		assessment.Flags = append(assessment.Flags, FlagShortJustification)
	}
	// a justification of exactly MinJustification characters sits on the
	// quality floor, so the configured minimum is the acceptance boundary
	score := s.config.QualityFloor * len(justification) / s.config.MinJustification
	if score > 100 {
		score = 100
	}
	if decision.Type == model.DecisionEscalate && priority == model.PriorityLow {
		assessment.Flags = append(assessment.Flags, FlagPolicyInconsistent)
	}
	if s.isBoilerplate(decision) {
		assessment.Flags = append(assessment.Flags, FlagBoilerplate)
	}
	assessment.Score = score
	assessment.Acceptable = score >= s.config.QualityFloor
	if !assessment.Acceptable {
		return assessment, &types.QualityError{
			WorkflowID: decision.WorkflowID,
			StepID:     decision.StepID,
			Score:      score,
			Floor:      s.config.QualityFloor,
		}
	}
	return assessment, nil
}

// isBoilerplate compares the justification against the same decider's
// earlier justifications in this workflow.
func (s *Service) isBoilerplate(decision *model.Decision) bool {
	if decision.Justification == "" {
		return false
	}
	s.mux.RLock()
	defer s.mux.RUnlock()
	for _, prior := range s.byWorkflow[decision.WorkflowID] {
		if prior.DeciderID != decision.DeciderID || prior.Justification == "" {
			continue
		}
		matcher := difflib.NewMatcher(
			difflib.SplitLines(prior.Justification),
			difflib.SplitLines(decision.Justification))
		if matcher.Ratio() >= s.config.BoilerplateRatio {
			return true
		}
	}
	return false
}

// CheckConsistency checks a proposed decision type against the workflow's
// committed decisions. Conflicts accumulate: opposing approve/reject pairs
// already in the history count alongside the conflicts the proposal itself
// would introduce, deduplicated by decision id, so repeated opposition on a
// step eventually trips the escalation threshold. The check is read-only and
// idempotent for fixed inputs.
func (s *Service) CheckConsistency(ctx context.Context, workflowID, stepID, decisionType, deciderID string) (*ConsistencyCheck, error) {
	result := &ConsistencyCheck{Consistent: true, Score: 100}
	s.mux.RLock()
	history := make([]*model.Decision, len(s.byWorkflow[workflowID]))
	copy(history, s.byWorkflow[workflowID])
	s.mux.RUnlock()

	seen := map[string]bool{}
	add := func(committed *model.Decision) {
		if seen[committed.ID] {
			return
		}
		seen[committed.ID] = true
		result.Conflicts = append(result.Conflicts, Conflict{
			DecisionID: committed.ID,
			StepID:     committed.StepID,
			DeciderID:  committed.DeciderID,
			Type:       committed.Type,
		})
	}
	// conflicts already accumulated in the committed history
	for i, earlier := range history {
		for _, later := range history[i+1:] {
			if !model.Opposes(earlier.Type, later.Type) {
				continue
			}
			if !s.conflictingSteps(workflowID, earlier.StepID, later.StepID) {
				continue
			}
			add(earlier)
			add(later)
		}
	}
	// conflicts the proposal would introduce
	if model.Opposes(decisionType, model.DecisionApprove) || model.Opposes(decisionType, model.DecisionReject) {
		for _, prior := range history {
			if !model.Opposes(decisionType, prior.Type) {
				continue
			}
			if !s.precedes(workflowID, prior.StepID, stepID) {
				continue
			}
			add(prior)
		}
	}
	if len(result.Conflicts) > 0 {
		result.Consistent = false
	}
	result.Score = 100 - 25*len(result.Conflicts)
	if result.Score < 0 {
		result.Score = 0
	}
	if len(result.Conflicts) >= s.config.ConflictEscalationThreshold {
		result.RequiresEscalation = true
	}
	return result, nil
}

// conflictingSteps reports whether two committed decisions can oppose each
// other: the same step always, differently-ordered steps when a resolver is
// installed.
func (s *Service) conflictingSteps(workflowID, aStep, bStep string) bool {
	if aStep == bStep {
		return true
	}
	if s.resolver == nil {
		return false
	}
	aOrder, bOrder := s.resolver(workflowID, aStep), s.resolver(workflowID, bStep)
	return aOrder >= 0 && bOrder >= 0 && aOrder != bOrder
}

// precedes reports whether a committed decision's step is the same as, or
// ordered before, the proposal's step.
func (s *Service) precedes(workflowID, priorStep, proposedStep string) bool {
	if priorStep == proposedStep {
		return true
	}
	if s.resolver == nil {
		return false
	}
	priorOrder, proposedOrder := s.resolver(workflowID, priorStep), s.resolver(workflowID, proposedStep)
	return priorOrder >= 0 && proposedOrder >= 0 && priorOrder < proposedOrder
}

// Record appends a committed decision to the history. Only the orchestrator
// calls it, after the decision has been applied to the workflow.
func (s *Service) Record(decision *model.Decision) {
	s.mux.Lock()
	defer s.mux.Unlock()
	history := s.byWorkflow[decision.WorkflowID]
	s.byWorkflow[decision.WorkflowID] = append([]*model.Decision{decision}, history...)
}

// History returns committed decisions newest-first, narrowed by the filter.
func (s *Service) History(filter Filter) []*model.Decision {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var result []*model.Decision
	appendMatching := func(decisions []*model.Decision) {
		for _, decision := range decisions {
			if filter.DeciderID != "" && decision.DeciderID != filter.DeciderID {
				continue
			}
			result = append(result, decision)
		}
	}
	if filter.WorkflowID != "" {
		appendMatching(s.byWorkflow[filter.WorkflowID])
		return result
	}
	for _, decisions := range s.byWorkflow {
		appendMatching(decisions)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
