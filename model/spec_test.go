package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowSpec_Validate(t *testing.T) {
	valid := &WorkflowSpec{
		Name:      "deploy",
		Type:      WorkflowSequential,
		Requester: "dana",
		Steps: []*StepSpec{
			{ID: "s1", Name: "review", Approvers: []*Approver{{ID: "alice"}}},
		},
	}
	assert.Empty(t, valid.Validate())

	testCases := []struct {
		description string
		mutate      func(*WorkflowSpec)
	}{
		{
			description: "missing name",
			mutate:      func(s *WorkflowSpec) { s.Name = "" },
		},
		{
			description: "missing requester",
			mutate:      func(s *WorkflowSpec) { s.Requester = "" },
		},
		{
			description: "unsupported type",
			mutate:      func(s *WorkflowSpec) { s.Type = "roundrobin" },
		},
		{
			description: "no steps",
			mutate:      func(s *WorkflowSpec) { s.Steps = nil },
		},
		{
			description: "step without approvers",
			mutate:      func(s *WorkflowSpec) { s.Steps[0].Approvers = nil },
		},
		{
			description: "required approvals exceed approvers",
			mutate:      func(s *WorkflowSpec) { s.Steps[0].RequiredApprovals = 2 },
		},
		{
			description: "duplicate step ids",
			mutate: func(s *WorkflowSpec) {
				s.Steps = append(s.Steps, &StepSpec{ID: "s1", Name: "again", Approvers: []*Approver{{ID: "bob"}}})
			},
		},
		{
			description: "consensus quorum out of range",
			mutate: func(s *WorkflowSpec) {
				s.Type = WorkflowConsensus
				s.Quorum = 1.5
			},
		},
	}

	for _, testCase := range testCases {
		spec := &WorkflowSpec{
			Name:      "deploy",
			Type:      WorkflowSequential,
			Requester: "dana",
			Steps: []*StepSpec{
				{ID: "s1", Name: "review", Approvers: []*Approver{{ID: "alice"}}},
			},
		}
		testCase.mutate(spec)
		assert.NotEmpty(t, spec.Validate(), testCase.description)
	}
}

func TestStep_CanTransition(t *testing.T) {
	step := &Step{Status: StepPending}
	assert.True(t, step.CanTransition(StepInProgress))
	assert.False(t, step.CanTransition(StepApproved))

	step.Status = StepInProgress
	assert.True(t, step.CanTransition(StepApproved))
	assert.True(t, step.CanTransition(StepTimedOut))
	assert.False(t, step.CanTransition(StepPending))

	step.Status = StepApproved
	assert.False(t, step.CanTransition(StepInProgress))
}

func TestWorkflow_PredecessorsSatisfied(t *testing.T) {
	workflow := &Workflow{
		Steps: []*Step{
			{ID: "s1", Order: 0, Status: StepApproved},
			{ID: "s2", Order: 1, Status: StepInProgress},
			{ID: "s3", Order: 2, Status: StepPending},
		},
	}
	assert.True(t, workflow.PredecessorsSatisfied(workflow.Step("s2")))
	assert.False(t, workflow.PredecessorsSatisfied(workflow.Step("s3")))

	workflow.Steps[1].Status = StepRejected
	assert.False(t, workflow.PredecessorsSatisfied(workflow.Step("s3")))
}
