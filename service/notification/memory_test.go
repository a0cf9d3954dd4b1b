package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/approvals/service/messaging/memory"
)

func TestMemory_Notify(t *testing.T) {
	notifier := NewMemory(memory.Config{})
	ctx := context.Background()

	err := notifier.Notify(ctx, &Event{
		Kind:       EventStepReady,
		WorkflowID: "wf-1",
		StepID:     "step-1",
		Recipients: []string{"alice"},
	})
	assert.NoError(t, err)

	message, err := notifier.Queue().Consume(ctx)
	assert.NoError(t, err)
	event := message.T()
	assert.Equal(t, EventStepReady, event.Kind)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, message.Ack())
}
