package persistence

import (
	"context"
	"errors"

	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
	"github.com/viant/approvals/service/dao"
	"github.com/viant/approvals/service/dao/store"
)

// Memory is an in-process store; state does not survive a restart.
type Memory struct {
	store *store.MemoryStore[string, model.Workflow]
}

// NewMemory creates an in-process workflow store.
func NewMemory() *Memory {
	return &Memory{
		store: store.NewMemoryStore[string, model.Workflow](func(w *model.Workflow) string { return w.ID }).
			WithStatusSelector(func(w *model.Workflow) string { return w.Status }),
	}
}

// Persist writes the workflow.
func (m *Memory) Persist(ctx context.Context, workflow *model.Workflow) error {
	return m.store.Save(ctx, workflow)
}

// Load retrieves one workflow by id.
func (m *Memory) Load(ctx context.Context, id string) (*model.Workflow, error) {
	workflow, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, types.NewNotFoundError("workflow", id)
		}
		return nil, err
	}
	return workflow, nil
}

// Remove deletes a workflow.
func (m *Memory) Remove(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return types.NewNotFoundError("workflow", id)
		}
		return err
	}
	return nil
}

// LoadActive retrieves all non-terminal workflows.
func (m *Memory) LoadActive(ctx context.Context) ([]*model.Workflow, error) {
	return m.store.List(ctx, activeFilter...)
}
