package model

import (
	"time"
)

// Workflow topology constants
const (
	WorkflowSequential = "sequential"
	WorkflowParallel   = "parallel"
	WorkflowConsensus  = "consensus"
)

// Workflow status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusEscalated  = "escalated"
	StatusCancelled  = "cancelled"
	StatusExpired    = "expired"
)

// Step status constants
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepApproved   = "approved"
	StepRejected   = "rejected"
	StepSkipped    = "skipped"
	StepTimedOut   = "timed_out"
)

// Priority constants, ordered by rank
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Step type constants used to select timeout thresholds
const (
	StepTypeApproval   = "approval"
	StepTypeDecision   = "decision"
	StepTypeEscalation = "escalation"
	StepTypeSystem     = "system"
)

// PriorityRank returns a sortable rank for a priority; unknown priorities
// rank below low.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Approver identifies a person or role that may decide a step. The contact
// reference is opaque to the engine; the notification collaborator
// interprets it.
type Approver struct {
	ID      string `json:"id" yaml:"id"`
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Contact string `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Step represents one unit of required approval within a workflow.
type Step struct {
	ID                string      `json:"id"`
	Name              string      `json:"name,omitempty"`
	Order             int         `json:"order"`
	Type              string      `json:"type,omitempty"`
	Status            string      `json:"status"`
	RequiredApprovals int         `json:"requiredApprovals"`
	Approvers         []*Approver `json:"approvers,omitempty"`
	Optional          bool        `json:"optional,omitempty"`
	Approvals         int         `json:"approvals"`
	Deadline          *time.Time  `json:"deadline,omitempty"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
}

// Terminal reports whether the step status is final.
func (s *Step) Terminal() bool {
	switch s.Status {
	case StepApproved, StepRejected, StepSkipped, StepTimedOut:
		return true
	}
	return false
}

// CanTransition reports whether the step state machine permits moving to the
// target status. A terminal step never transitions again.
func (s *Step) CanTransition(target string) bool {
	if s.Terminal() {
		return false
	}
	switch s.Status {
	case StepPending:
		return target == StepInProgress || target == StepSkipped
	case StepInProgress:
		switch target {
		case StepApproved, StepRejected, StepTimedOut, StepSkipped:
			return true
		}
	}
	return false
}

// HasApprover reports whether the supplied identity belongs to the step's
// approver set.
func (s *Step) HasApprover(id string) bool {
	for _, a := range s.Approvers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Workflow is one end-to-end approval request composed of ordered steps.
// All mutation goes through the orchestrator which serializes access per
// workflow; the struct itself carries no locking.
type Workflow struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	RiskTier   string     `json:"riskTier,omitempty"`
	Requester  string     `json:"requester"`
	Steps      []*Step    `json:"steps"`
	Quorum     float64    `json:"quorum,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Terminal reports whether the workflow status is final.
func (w *Workflow) Terminal() bool {
	switch w.Status {
	case StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Step returns the step with the supplied id or nil.
func (w *Workflow) Step(id string) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// StepOrder returns the order index of a step, or -1 when unknown.
func (w *Workflow) StepOrder(id string) int {
	if s := w.Step(id); s != nil {
		return s.Order
	}
	return -1
}

// PredecessorsSatisfied reports whether every earlier step reached a
// terminal, non-rejecting status.
func (w *Workflow) PredecessorsSatisfied(step *Step) bool {
	for _, s := range w.Steps {
		if s.Order >= step.Order {
			continue
		}
		if !s.Terminal() || s.Status == StepRejected || s.Status == StepTimedOut {
			return false
		}
	}
	return true
}

// ApproverCount returns the total number of approver slots across all steps.
func (w *Workflow) ApproverCount() int {
	count := 0
	for _, s := range w.Steps {
		count += len(s.Approvers)
	}
	return count
}
