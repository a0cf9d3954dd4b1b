package extension

import (
	"context"

	"github.com/viant/approvals/model"
)

// Policy receives lifecycle callbacks after the engine commits a state
// change. Implementations must not mutate the supplied values.
type Policy interface {
	// OnAdmit runs after a workflow has been admitted.
	OnAdmit(ctx context.Context, workflow *model.Workflow, assessment *model.RiskAssessment)

	// OnDecision runs after a decision has been committed.
	OnDecision(ctx context.Context, workflow *model.Workflow, decision *model.Decision)

	// OnEscalation runs after an escalation path has been opened.
	OnEscalation(ctx context.Context, workflow *model.Workflow, path *model.EscalationPath)
}

// NoopPolicy is the default Policy; it does nothing.
type NoopPolicy struct{}

func (NoopPolicy) OnAdmit(context.Context, *model.Workflow, *model.RiskAssessment)      {}
func (NoopPolicy) OnDecision(context.Context, *model.Workflow, *model.Decision)         {}
func (NoopPolicy) OnEscalation(context.Context, *model.Workflow, *model.EscalationPath) {}
