// Package risk implements the policy engine that maps a workflow's priority
// and declared context onto a risk tier, a recommended control strategy and
// a synthesized approval policy.
package risk

import (
	"context"
	"fmt"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/risk/condition"
)

// Weights shape the contribution of each contextual factor to the risk
// score. Factors are 0-100 before weighting.
type Weights struct {
	Business  float64 `json:"business" yaml:"business"`
	Technical float64 `json:"technical" yaml:"technical"`
	Budget    float64 `json:"budget" yaml:"budget"`
	Scope     float64 `json:"scope" yaml:"scope"`
}

// Config holds risk engine settings.
type Config struct {
	Weights Weights `json:"weights" yaml:"weights"`
	// BudgetCeiling is the exposure at which the budget factor saturates.
	BudgetCeiling float64 `json:"budgetCeiling" yaml:"budgetCeiling"`
	// SeniorRole is the mandatory reviewer role added for critical tier.
	SeniorRole string `json:"seniorRole" yaml:"seniorRole"`
	// AutoApprovalBudget bounds the synthesized budget condition.
	AutoApprovalBudget float64 `json:"autoApprovalBudget" yaml:"autoApprovalBudget"`
}

// DefaultConfig returns the default risk engine configuration.
func DefaultConfig() Config {
	return Config{
		Weights:            Weights{Business: 0.35, Technical: 0.25, Budget: 0.20, Scope: 0.15},
		BudgetCeiling:      100_000,
		SeniorRole:         "senior-approver",
		AutoApprovalBudget: 5_000,
	}
}

// Service is the risk policy engine. Assessment is deterministic given the
// configuration and its inputs.
type Service struct {
	config Config
}

// New creates a risk policy engine.
func New(config Config) *Service {
	if config.Weights == (Weights{}) {
		config.Weights = DefaultConfig().Weights
	}
	if config.BudgetCeiling <= 0 {
		config.BudgetCeiling = DefaultConfig().BudgetCeiling
	}
	if config.SeniorRole == "" {
		config.SeniorRole = DefaultConfig().SeniorRole
	}
	if config.AutoApprovalBudget <= 0 {
		config.AutoApprovalBudget = DefaultConfig().AutoApprovalBudget
	}
	return &Service{config: config}
}

// Priority alone places a workflow in its namesake band; contextual factors
// only push the score upward from there.
var priorityBase = map[string]float64{
	model.PriorityLow:    10,
	model.PriorityMedium: 45,
	model.PriorityHigh:   70,
	model.PriorityUrgent: 85,
}

// Assess computes a risk assessment for the supplied context and priority.
// Invalid context values fail with InvalidAssessmentInput rather than being
// clamped.
func (s *Service) Assess(ctx context.Context, workflowID string, workflowCtx *model.WorkflowContext, priority string) (*model.RiskAssessment, error) {
	if workflowCtx == nil {
		workflowCtx = &model.WorkflowContext{}
	}
	if err := validateContext(workflowCtx); err != nil {
		return nil, err
	}
	base, ok := priorityBase[priority]
	if !ok {
		return nil, &types.AssessmentInputError{Field: "priority", Value: priority}
	}
	score := base +
		s.config.Weights.Business*float64(workflowCtx.BusinessImpact) +
		s.config.Weights.Technical*float64(workflowCtx.TechnicalImpact) +
		s.config.Weights.Budget*budgetFactor(workflowCtx.BudgetExposure, s.config.BudgetCeiling) +
		s.config.Weights.Scope*scopeFactor(len(workflowCtx.Scope))
	if score > 100 {
		score = 100
	}
	tier := tierFor(score)
	assessment := &model.RiskAssessment{
		ID:         idgen.New(),
		WorkflowID: workflowID,
		Score:      score,
		Tier:       tier,
		Strategy:   strategyFor(tier),
		Policy:     s.synthesizePolicy(tier, priority),
		AssessedAt: clock.Now(),
	}
	return assessment, nil
}

func validateContext(workflowCtx *model.WorkflowContext) error {
	if workflowCtx.BusinessImpact < 0 || workflowCtx.BusinessImpact > 100 {
		return &types.AssessmentInputError{Field: "businessImpact", Value: workflowCtx.BusinessImpact}
	}
	if workflowCtx.TechnicalImpact < 0 || workflowCtx.TechnicalImpact > 100 {
		return &types.AssessmentInputError{Field: "technicalImpact", Value: workflowCtx.TechnicalImpact}
	}
	if workflowCtx.BudgetExposure < 0 {
		return &types.AssessmentInputError{Field: "budgetExposure", Value: workflowCtx.BudgetExposure}
	}
	return nil
}

func budgetFactor(exposure, ceiling float64) float64 {
	factor := 100 * exposure / ceiling
	if factor > 100 {
		return 100
	}
	return factor
}

func scopeFactor(breadth int) float64 {
	factor := 20 * float64(breadth)
	if factor > 100 {
		return 100
	}
	return factor
}

func tierFor(score float64) string {
	switch {
	case score >= 90:
		return model.TierCritical
	case score >= 70:
		return model.TierHigh
	case score >= 40:
		return model.TierMedium
	}
	return model.TierLow
}

func strategyFor(tier string) string {
	switch tier {
	case model.TierCritical:
		return model.StrategyPrevention
	case model.TierHigh, model.TierMedium:
		return model.StrategyMitigation
	}
	return model.StrategyAcceptance
}

// synthesizePolicy derives the approval policy for a tier. Escalation
// triggers are populated for every tier.
func (s *Service) synthesizePolicy(tier, priority string) *model.ApprovalPolicy {
	policy := &model.ApprovalPolicy{
		EscalationTriggers: []string{
			model.TriggerRiskIncrease,
			model.TriggerMitigationFailure,
			model.TriggerTimeWindowBreach,
			model.TriggerBudgetOverrun,
		},
		DeadlineScale: deadlineScale(priority),
		AutoApproval:  &model.AutoApproval{},
	}
	switch tier {
	case model.TierCritical:
		policy.MandatoryRoles = []string{s.config.SeniorRole}
		policy.RejectionCriteria = []string{"unbounded blast radius", "missing rollback plan"}
	case model.TierHigh:
		policy.RejectionCriteria = []string{"missing rollback plan"}
	default:
		policy.AutoApproval.Enabled = true
		policy.AutoApproval.Conditions = []string{
			fmt.Sprintf("%v <= %v", condition.KindResourceBound, s.config.AutoApprovalBudget),
			fmt.Sprintf("%v <= internal", condition.KindSecurityLevel),
		}
	}
	return policy
}

func deadlineScale(priority string) float64 {
	switch priority {
	case model.PriorityUrgent:
		return 0.5
	case model.PriorityHigh:
		return 0.75
	}
	return 1.0
}
