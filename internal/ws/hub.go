package ws

import (
	"encoding/json"
	"sync"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/types"
)

// Hub tracks open realtime connections and their session subscriptions.
// Delivery is fire-and-forget: a client whose outbound buffer is full is
// skipped, never blocked on.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	clients       map[*Client]bool
	subscriptions map[*Client]string
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "WSHub"),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[*Client]string),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.Debug("WS client registered", "clientID", client.ID)

	client.enqueue(connectionAck())
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		delete(h.subscriptions, client)
		close(client.send)
	}
	h.mu.Unlock()
	h.log.Debug("WS client unregistered", "clientID", client.ID)
}

// Subscribe records interest in one session. A connection holds at most one
// subscription; subscribing again replaces the previous one.
func (h *Hub) Subscribe(client *Client, sessionID string) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	h.subscriptions[client] = sessionID
	h.mu.Unlock()
	h.log.Debug("WS client subscribed", "clientID", client.ID, "sessionID", sessionID)
}

// BroadcastProgress delivers a progress event to every connection subscribed
// to its session, then to every open connection. The dual delivery is
// intentional: targeted for subscribers, global so observers that connected
// before subscribing still see activity. Subscribers may therefore receive
// the same event twice.
func (h *Hub) BroadcastProgress(update *types.ProgressUpdate) {
	if update == nil {
		return
	}
	msg := progressMessage(update)
	sessionID := update.SessionID.String()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client, subscribed := range h.subscriptions {
		if subscribed == sessionID {
			client.enqueue(msg)
		}
	}
	for client := range h.clients {
		client.enqueue(msg)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalMessage(log *logger.Logger, msg Message) ([]byte, bool) {
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Warn("Failed to marshal WS message", "error", err)
		return nil, false
	}
	return raw, true
}
