package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
)

func TestHubShutdown(t *testing.T) {
	t.Run("happy path control sends return instead of blocking after stop", func(t *testing.T) {
		h := NewHub(nil, nil, nil, zap.NewNop().Sugar())
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			h.Run(ctx)
			close(stopped)
		}()

		client := &Client{UserID: "u1", hub: h, send: make(chan []byte, 1)}
		require.True(t, h.addClient(client))
		h.removeClient(client)

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("run loop did not stop")
		}

		// Pumps of connections that outlive the loop must not hang.
		assert.False(t, h.addClient(&Client{send: make(chan []byte, 1)}))
		assert.False(t, h.joinRoom(&Client{}, "conv-1"))
		h.removeClient(&Client{})
		h.leaveRoom(&Client{}, "conv-1")
	})

	t.Run("happy path full event queue drops rather than blocks", func(t *testing.T) {
		h := NewHub(nil, nil, nil, zap.NewNop().Sugar())
		for i := 0; i < cap(h.broadcast)+8; i++ {
			h.HandleEvent(events.Event{Type: events.MessageSent, ConversationID: "conv-1"})
		}
	})
}
