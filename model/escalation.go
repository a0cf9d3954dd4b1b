package model

import "time"

// Timeout warning tiers; a later tier supersedes an earlier one for the same
// step.
const (
	WarningEarly    = "early"
	WarningCritical = "critical"
	WarningFinal    = "final"
)

// Escalation level names, ordered by severity.
const (
	LevelOne      = "level_1"
	LevelTwo      = "level_2"
	LevelThree    = "level_3"
	LevelCritical = "critical"
)

// Escalation action constants.
const (
	ActionReassign   = "reassign"
	ActionNotify     = "notify"
	ActionAutoReject = "auto_reject"
)

// TimeoutWarning is an ephemeral notice that a step approaches its deadline.
// It lives only in the escalation engine's active-warning lookup and is
// superseded by the next tier for the same step.
type TimeoutWarning struct {
	ID            string        `json:"id"`
	WorkflowID    string        `json:"workflowId"`
	StepID        string        `json:"stepId"`
	Tier          string        `json:"tier"`
	TimeRemaining time.Duration `json:"timeRemaining"`
	Probability   float64       `json:"escalationProbability"`
	Recipients    []string      `json:"recipients,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// EscalationLevel is one rung of a leveled fallback path.
type EscalationLevel struct {
	Name       string        `json:"name"`
	OwnerRole  string        `json:"ownerRole"`
	SubTimeout time.Duration `json:"subTimeout"`
	Actions    []string      `json:"actions"`
}

// EscalationPath is the leveled fallback procedure created the first time a
// step breaches its deadline. At most one open path exists per step.
type EscalationPath struct {
	ID              string             `json:"id"`
	WorkflowID      string             `json:"workflowId"`
	StepID          string             `json:"stepId"`
	Level           string             `json:"level"`
	UrgencyScore    int                `json:"urgencyScore"`
	Levels          []*EscalationLevel `json:"levels"`
	SuccessCriteria []string           `json:"successCriteria"`
	CreatedAt       time.Time          `json:"createdAt"`
	Resolved        bool               `json:"resolved"`
	Exhausted       bool               `json:"exhausted"`
}

// Deadline returns the instant at which the path runs out of levels.
func (p *EscalationPath) Deadline() time.Time {
	deadline := p.CreatedAt
	for _, level := range p.Levels {
		deadline = deadline.Add(level.SubTimeout)
	}
	return deadline
}
