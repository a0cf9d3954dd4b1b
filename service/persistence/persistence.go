// Package persistence stores workflow state so active workflows survive a
// restart. Persistence is a collaborator of the orchestrator: failures
// degrade the service but never veto an already-applied state change.
package persistence

import (
	"context"

	"github.com/viant/approvals/model"
	"github.com/viant/approvals/service/dao"
)

// activeFilter selects workflows that still need orchestration after a
// restart.
var activeFilter = []*dao.Parameter{dao.NewParameter("Status",
	model.StatusPending, model.StatusInProgress, model.StatusEscalated)}

// Store persists workflows.
type Store interface {
	// Persist writes the workflow's current state.
	Persist(ctx context.Context, workflow *model.Workflow) error

	// Load retrieves one workflow by id.
	Load(ctx context.Context, id string) (*model.Workflow, error)

	// Remove deletes a workflow's stored state.
	Remove(ctx context.Context, id string) error

	// LoadActive retrieves all non-terminal workflows.
	LoadActive(ctx context.Context) ([]*model.Workflow, error)
}
