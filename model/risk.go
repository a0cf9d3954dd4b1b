package model

import "time"

// Risk tier constants derived from the numeric score bands.
const (
	TierLow      = "low"
	TierMedium   = "medium"
	TierHigh     = "high"
	TierCritical = "critical"
)

// Control strategy constants.
const (
	StrategyPrevention = "prevention"
	StrategyMitigation = "mitigation"
	StrategyAcceptance = "acceptance"
	StrategyTransfer   = "transfer"
)

// Escalation trigger constants; populated on every assessment regardless of
// tier.
const (
	TriggerRiskIncrease      = "risk_increase"
	TriggerMitigationFailure = "mitigation_failure"
	TriggerTimeWindowBreach  = "time_window_breach"
	TriggerBudgetOverrun     = "budget_overrun"
)

// WorkflowContext carries the caller-declared risk factors for an approval
// request. All numeric scores are 0-100; negative or out-of-range values
// fail assessment rather than being clamped.
type WorkflowContext struct {
	BusinessImpact  int      `json:"businessImpact" yaml:"businessImpact"`
	TechnicalImpact int      `json:"technicalImpact" yaml:"technicalImpact"`
	BudgetExposure  float64  `json:"budgetExposure,omitempty" yaml:"budgetExposure,omitempty"`
	Scope           []string `json:"scope,omitempty" yaml:"scope,omitempty"`
	SecurityLevel   string   `json:"securityLevel,omitempty" yaml:"securityLevel,omitempty"`
	Region          string   `json:"region,omitempty" yaml:"region,omitempty"`
}

// AutoApproval holds the synthesized automatic-approval rule set. Conditions
// use the typed expression grammar of the risk/condition package.
type AutoApproval struct {
	Enabled    bool     `json:"enabled"`
	Conditions []string `json:"conditions,omitempty"`
}

// ApprovalPolicy is the risk-derived shaping applied to a workflow at
// admission.
type ApprovalPolicy struct {
	MandatoryRoles     []string      `json:"mandatoryRoles,omitempty"`
	AutoApproval       *AutoApproval `json:"autoApproval,omitempty"`
	RejectionCriteria  []string      `json:"rejectionCriteria,omitempty"`
	EscalationTriggers []string      `json:"escalationTriggers"`
	DeadlineScale      float64       `json:"deadlineScale"`
}

// RiskAssessment is the outcome of one risk evaluation. It is computed once
// per workflow at admission and recomputed only on an explicit re-assessment
// request.
type RiskAssessment struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflowId"`
	Score      float64         `json:"score"`
	Tier       string          `json:"tier"`
	Strategy   string          `json:"strategy"`
	Policy     *ApprovalPolicy `json:"policy"`
	AssessedAt time.Time       `json:"assessedAt"`
}
