package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/types"
)

// Observer states.
const (
	ObserverConnecting   = "connecting"
	ObserverConnected    = "connected"
	ObserverDisconnected = "disconnected"
	ObserverClosed       = "closed"
)

const (
	reconnectInterval    = 3 * time.Second
	maxReconnectAttempts = 5
)

// Observer is a realtime-channel client that follows one session's progress.
// A dropped connection is re-dialed on a fixed interval up to a bounded
// attempt count; after that the observer goes terminally disconnected.
// Close suppresses any further reconnection.
type Observer struct {
	url           string
	log           *logger.Logger
	retryInterval time.Duration

	OnProgress func(update *types.ProgressUpdate)

	mu        sync.Mutex
	conn      *websocket.Conn
	state     string
	sessionID string
	attempts  int
	closed    bool
	done      chan struct{}
}

func NewObserver(url string, log *logger.Logger) *Observer {
	return &Observer{
		url:           url,
		log:           log.With("component", "WSObserver"),
		retryInterval: reconnectInterval,
		state:         ObserverDisconnected,
		done:          make(chan struct{}),
	}
}

// Connect dials the channel and starts the read loop. It returns once the
// connection is established or the dial fails.
func (o *Observer) Connect() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errors.New("observer closed")
	}
	o.state = ObserverConnecting
	o.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(o.url, nil)
	if err != nil {
		o.mu.Lock()
		o.state = ObserverDisconnected
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.conn = conn
	o.state = ObserverConnected
	o.attempts = 0
	sessionID := o.sessionID
	o.mu.Unlock()

	if sessionID != "" {
		o.sendEnvelope(Message{Type: MessageTypeSubscribe, SessionID: sessionID})
	}

	go o.readLoop(conn)
	return nil
}

// Subscribe requests progress events for one session; the subscription is
// replayed after every reconnect.
func (o *Observer) Subscribe(sessionID string) {
	o.mu.Lock()
	o.sessionID = sessionID
	connected := o.state == ObserverConnected
	o.mu.Unlock()
	if connected {
		o.sendEnvelope(Message{Type: MessageTypeSubscribe, SessionID: sessionID})
	}
}

// Ping sends a keep-alive probe; the channel answers with a pong envelope.
func (o *Observer) Ping() {
	o.sendEnvelope(Message{Type: MessageTypePing})
}

func (o *Observer) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done is closed when the observer gives up reconnecting or is closed.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Close tears the connection down and disables reconnection.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.state = ObserverClosed
	conn := o.conn
	o.conn = nil
	close(o.done)
	o.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (o *Observer) sendEnvelope(msg Message) {
	o.mu.Lock()
	conn := o.conn
	o.mu.Unlock()
	if conn == nil {
		return
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		o.log.Warn("Observer write failed", "error", err)
	}
}

func (o *Observer) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			o.handleDisconnect()
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			o.log.Warn("Observer received malformed envelope", "error", err)
			continue
		}
		if msg.Type != MessageTypeProgress {
			continue
		}
		update, err := DecodeProgress(msg)
		if err != nil {
			o.log.Warn("Observer could not decode progress payload", "error", err)
			continue
		}
		if o.OnProgress != nil {
			o.OnProgress(update)
		}
	}
}

func (o *Observer) handleDisconnect() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.conn = nil
	o.state = ObserverDisconnected
	o.mu.Unlock()

	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		if o.attempts >= maxReconnectAttempts {
			// Terminal: stay disconnected, stop retrying.
			o.closed = true
			o.state = ObserverDisconnected
			close(o.done)
			o.mu.Unlock()
			o.log.Warn("Observer giving up after max reconnect attempts", "attempts", maxReconnectAttempts)
			return
		}
		o.attempts++
		attempt := o.attempts
		o.mu.Unlock()

		o.log.Debug("Observer reconnecting", "attempt", attempt)
		select {
		case <-o.done:
			return
		case <-time.After(o.retryInterval):
		}

		if err := o.Connect(); err == nil {
			return
		}
	}
}
