package model

import "time"

// Decision type constants
const (
	DecisionApprove  = "approve"
	DecisionReject   = "reject"
	DecisionDelegate = "delegate"
	DecisionEscalate = "escalate"
)

// Decision is an immutable audit record of a single decider action. It is
// created once per action and never mutated afterwards.
type Decision struct {
	ID            string    `json:"id"`
	WorkflowID    string    `json:"workflowId"`
	StepID        string    `json:"stepId"`
	DeciderID     string    `json:"deciderId"`
	Type          string    `json:"type"`
	Justification string    `json:"justification,omitempty"`
	DelegateTo    *Approver `json:"delegateTo,omitempty"`
	QualityScore  int       `json:"qualityScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Opposes reports whether two decision types logically contradict each
// other; only approve vs reject pairs count.
func Opposes(a, b string) bool {
	return (a == DecisionApprove && b == DecisionReject) ||
		(a == DecisionReject && b == DecisionApprove)
}
