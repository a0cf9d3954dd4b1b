// Package notification delivers workflow lifecycle events to interested
// parties. The memory notifier feeds an in-process queue; the webhook
// notifier posts events to an external endpoint.
package notification

import (
	"context"
	"time"
)

// Event kind constants
const (
	EventWorkflowAdmitted    = "workflow_admitted"
	EventStepReady           = "step_ready"
	EventDecisionApplied     = "decision_applied"
	EventTimeoutWarning      = "timeout_warning"
	EventEscalationOpened    = "escalation_opened"
	EventEscalationExhausted = "escalation_exhausted"
	EventWorkflowTerminal    = "workflow_terminal"
)

// Event is a single notification about a workflow.
type Event struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	WorkflowID string                 `json:"workflowId"`
	StepID     string                 `json:"stepId,omitempty"`
	Recipients []string               `json:"recipients,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// Notifier delivers events. Delivery failures are the notifier's problem;
// callers treat notification as best-effort.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}
