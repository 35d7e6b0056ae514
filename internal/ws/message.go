package ws

import (
	"encoding/json"
	"time"

	"github.com/pusulaai/pusula-backend/internal/types"
)

// Inbound message types accepted from observers.
const (
	MessageTypeSubscribe = "subscribe"
	MessageTypePing      = "ping"
)

// Outbound message types pushed to observers.
const (
	MessageTypeConnection = "connection"
	MessageTypePong       = "pong"
	MessageTypeProgress   = "progress"
)

// Message is the JSON envelope exchanged over the realtime channel.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

func connectionAck() Message {
	return Message{
		Type: MessageTypeConnection,
		Data: map[string]any{"status": "connected", "timestamp": time.Now()},
	}
}

func pongReply() Message {
	return Message{
		Type: MessageTypePong,
		Data: map[string]any{"timestamp": time.Now()},
	}
}

func progressMessage(update *types.ProgressUpdate) Message {
	return Message{
		Type:      MessageTypeProgress,
		Data:      update,
		SessionID: update.SessionID.String(),
	}
}

// DecodeProgress extracts the ProgressUpdate payload from a progress
// envelope that was decoded from raw JSON.
func DecodeProgress(msg Message) (*types.ProgressUpdate, error) {
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, err
	}
	var update types.ProgressUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
