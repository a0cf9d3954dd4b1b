package persistence

import (
	"context"
	"errors"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/model"
	"github.com/viant/approvals/model/types"
)

func TestFS_roundTrip(t *testing.T) {
	store, err := NewFS(path.Join(t.TempDir(), "workflows"))
	if !assert.NoError(t, err) {
		return
	}
	ctx := context.Background()

	active := &model.Workflow{ID: "wf-1", Name: "deploy", Status: model.StatusInProgress}
	done := &model.Workflow{ID: "wf-2", Name: "rollout", Status: model.StatusApproved}
	assert.NoError(t, store.Persist(ctx, active))
	assert.NoError(t, store.Persist(ctx, done))

	loaded, err := store.Load(ctx, "wf-1")
	assert.NoError(t, err)
	assert.Equal(t, "deploy", loaded.Name)

	// only non-terminal workflows are recovered
	recovered, err := store.LoadActive(ctx)
	assert.NoError(t, err)
	if assert.Len(t, recovered, 1) {
		assert.Equal(t, "wf-1", recovered[0].ID)
	}

	assert.NoError(t, store.Remove(ctx, "wf-1"))
	_, err = store.Load(ctx, "wf-1")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	err = store.Remove(ctx, "wf-1")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestMemory_roundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	assert.NoError(t, store.Persist(ctx, &model.Workflow{ID: "wf-1", Status: model.StatusPending}))
	assert.NoError(t, store.Persist(ctx, &model.Workflow{ID: "wf-2", Status: model.StatusRejected}))

	recovered, err := store.LoadActive(ctx)
	assert.NoError(t, err)
	if assert.Len(t, recovered, 1) {
		assert.Equal(t, "wf-1", recovered[0].ID)
	}

	_, err = store.Load(ctx, "missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
