package model

import (
	"fmt"
)

// StepSpec declares a single approval step of a workflow submission.
type StepSpec struct {
	ID                string      `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string      `json:"name" yaml:"name"`
	Type              string      `json:"type,omitempty" yaml:"type,omitempty"`
	RequiredApprovals int         `json:"requiredApprovals,omitempty" yaml:"requiredApprovals,omitempty"`
	Approvers         []*Approver `json:"approvers" yaml:"approvers"`
	Optional          bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// WorkflowSpec is the caller-supplied definition of an approval workflow. It
// is immutable once admitted; the orchestrator materializes a Workflow from
// it.
type WorkflowSpec struct {
	Name      string           `json:"name" yaml:"name"`
	Type      string           `json:"type" yaml:"type"`
	Requester string           `json:"requester" yaml:"requester"`
	Quorum    float64          `json:"quorum,omitempty" yaml:"quorum,omitempty"`
	Steps     []*StepSpec      `json:"steps" yaml:"steps"`
	Context   *WorkflowContext `json:"context,omitempty" yaml:"context,omitempty"`
}

// Validate performs a best-effort structural validation of the spec.  The
// returned slice is empty when the spec is sound; otherwise it contains
// human-readable error descriptions.
func (s *WorkflowSpec) Validate() []error {
	var issues []error
	if s.Name == "" {
		issues = append(issues, fmt.Errorf("name is required"))
	}
	if s.Requester == "" {
		issues = append(issues, fmt.Errorf("requester is required"))
	}
	switch s.Type {
	case WorkflowSequential, WorkflowParallel, WorkflowConsensus:
	case "":
		issues = append(issues, fmt.Errorf("workflow type is required"))
	default:
		issues = append(issues, fmt.Errorf("unsupported workflow type %q", s.Type))
	}
	if s.Type == WorkflowConsensus && (s.Quorum < 0 || s.Quorum > 1) {
		issues = append(issues, fmt.Errorf("quorum must be within (0..1], had: %v", s.Quorum))
	}
	if len(s.Steps) == 0 {
		issues = append(issues, fmt.Errorf("at least one step is required"))
	}
	seen := map[string]bool{}
	for i, step := range s.Steps {
		if step == nil {
			issues = append(issues, fmt.Errorf("step[%d] is nil", i))
			continue
		}
		if step.Name == "" {
			issues = append(issues, fmt.Errorf("step[%d] name is required", i))
		}
		if step.ID != "" {
			if seen[step.ID] {
				issues = append(issues, fmt.Errorf("duplicate step id %s", step.ID))
			}
			seen[step.ID] = true
		}
		if len(step.Approvers) == 0 {
			issues = append(issues, fmt.Errorf("step[%d] requires at least one approver", i))
		}
		if step.RequiredApprovals > len(step.Approvers) {
			issues = append(issues, fmt.Errorf("step[%d] requires %d approvals but has only %d approvers",
				i, step.RequiredApprovals, len(step.Approvers)))
		}
		for j, approver := range step.Approvers {
			if approver == nil || approver.ID == "" {
				issues = append(issues, fmt.Errorf("step[%d] approver[%d] id is required", i, j))
			}
		}
	}
	return issues
}
