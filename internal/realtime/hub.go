package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type SSEEvent string

const (
	SSEEventJobProgress    SSEEvent = "JobProgress"
	SSEEventJobCompleted   SSEEvent = "JobCompleted"
	SSEEventJobFailed      SSEEvent = "JobFailed"
	SSEEventSupportMessage SSEEvent = "SupportMessage"
	SSEEventRecordingReady SSEEvent = "RecordingReady"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user fanout channel name.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan SSEMessage
}

type SSEHub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

// Subscribe registers a client on its user channel and returns it.
func (hub *SSEHub) Subscribe(userID uuid.UUID) *SSEClient {
	client := &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan SSEMessage, 16),
	}
	ch := UserChannel(userID)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	clients, ok := hub.subscriptions[ch]
	if !ok {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[ch] = clients
	}
	clients[client] = true
	hub.log.Debug("SSE client subscribed", "client_id", client.ID, "channel", ch)
	return client
}

func (hub *SSEHub) Unsubscribe(client *SSEClient) {
	ch := UserChannel(client.UserID)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if clients, ok := hub.subscriptions[ch]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(hub.subscriptions, ch)
		}
	}
	close(client.Outbound)
	hub.log.Debug("SSE client unsubscribed", "client_id", client.ID, "channel", ch)
}

// Broadcast delivers to every subscriber of the message's channel. Slow
// clients are skipped rather than blocking the sender.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.subscriptions[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("dropping SSE message for slow client", "client_id", c.ID, "channel", msg.Channel)
		}
	}
}
