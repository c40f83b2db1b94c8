package realtime

import (
	"testing"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

func TestBroadcastReachesOnlySubscribedUser(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	alice := uuid.New()
	bob := uuid.New()

	ca := hub.Subscribe(alice)
	cb := hub.Subscribe(bob)

	hub.Broadcast(SSEMessage{
		Channel: UserChannel(alice),
		Event:   SSEEventJobCompleted,
		Data:    map[string]string{"job_id": "j1"},
	})

	select {
	case msg := <-ca.Outbound:
		if msg.Event != SSEEventJobCompleted {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	default:
		t.Fatalf("subscriber did not receive message")
	}

	select {
	case msg := <-cb.Outbound:
		t.Fatalf("other user received message: %+v", msg)
	default:
	}

	hub.Unsubscribe(ca)
	hub.Unsubscribe(cb)
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	userID := uuid.New()
	c := hub.Subscribe(userID)

	// Fill the buffer and then some; Broadcast must never block.
	for i := 0; i < 32; i++ {
		hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventJobProgress})
	}
	if got := len(c.Outbound); got != cap(c.Outbound) {
		t.Fatalf("expected a full buffer, got %d", got)
	}
	hub.Unsubscribe(c)
}

func TestUnsubscribeClosesOutbound(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	c := hub.Subscribe(uuid.New())
	hub.Unsubscribe(c)
	if _, ok := <-c.Outbound; ok {
		t.Fatalf("outbound channel not closed")
	}
}
