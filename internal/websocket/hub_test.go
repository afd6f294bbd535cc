package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishQueuesEvent(t *testing.T) {
	hub := NewHub()

	hub.Publish("approval.approved", map[string]interface{}{"workflow_id": "abc"})

	select {
	case raw := <-hub.Broadcast:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, "approval.approved", event.Event)
		assert.False(t, event.Timestamp.IsZero())
	default:
		t.Fatal("expected a queued broadcast message")
	}
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()

	// Fill the queue past capacity; the overflow must not block.
	for i := 0; i < cap(hub.Broadcast)+10; i++ {
		hub.Publish("approval.submitted", nil)
	}
	assert.Equal(t, cap(hub.Broadcast), len(hub.Broadcast))
}

func TestPublishUnserializablePayload(t *testing.T) {
	hub := NewHub()

	// A payload json.Marshal cannot handle is logged and dropped.
	hub.Publish("approval.submitted", func() {})
	assert.Empty(t, hub.Broadcast)
}
