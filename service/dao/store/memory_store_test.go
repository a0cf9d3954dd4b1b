package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/service/dao"
)

type record struct {
	ID     string
	Status string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	aStore := NewMemoryStore[string, record](func(r *record) string { return r.ID }).
		WithStatusSelector(func(r *record) string { return r.Status })

	assert.True(t, errors.Is(aStore.Save(ctx, nil), dao.ErrNilEntity))
	assert.NoError(t, aStore.Save(ctx, &record{ID: "r1", Status: "pending"}))
	assert.NoError(t, aStore.Save(ctx, &record{ID: "r2", Status: "approved"}))

	loaded, err := aStore.Load(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, "pending", loaded.Status)
	_, err = aStore.Load(ctx, "missing")
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	all, err := aStore.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := aStore.List(ctx, dao.NewParameter("Status", "pending", "escalated"))
	assert.NoError(t, err)
	if assert.Len(t, pending, 1) {
		assert.Equal(t, "r1", pending[0].ID)
	}

	assert.NoError(t, aStore.Delete(ctx, "r1"))
	assert.True(t, errors.Is(aStore.Delete(ctx, "r1"), dao.ErrNotFound))
}
