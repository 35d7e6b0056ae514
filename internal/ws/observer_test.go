package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pusulaai/pusula-backend/internal/types"
)

func TestObserverReceivesSubscribedProgress(t *testing.T) {
	hub, srv := newTestChannel(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	received := make(chan *types.ProgressUpdate, 8)
	obs := NewObserver(wsURL, mustTestLogger(t))
	obs.OnProgress = func(update *types.ProgressUpdate) {
		received <- update
	}

	if err := obs.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(obs.Close)
	if obs.State() != ObserverConnected {
		t.Fatalf("state after connect: want %s, got %s", ObserverConnected, obs.State())
	}

	sessionID := uuid.New()
	obs.Subscribe(sessionID.String())

	waitForClients(t, hub, 1)
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.subscriptions)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastProgress(&types.ProgressUpdate{
		ID:        uuid.New(),
		SessionID: sessionID,
		Step:      2,
		Message:   "Analyzing the video content",
		Timestamp: time.Now(),
	})

	select {
	case update := <-received:
		if update.Step != 2 || update.SessionID != sessionID {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for progress update")
	}
}

func TestObserverCloseIsTerminal(t *testing.T) {
	_, srv := newTestChannel(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	obs := NewObserver(wsURL, mustTestLogger(t))
	if err := obs.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	obs.Close()
	if obs.State() != ObserverClosed {
		t.Fatalf("state after close: want %s, got %s", ObserverClosed, obs.State())
	}
	select {
	case <-obs.Done():
	case <-time.After(time.Second):
		t.Fatalf("Done not closed after Close")
	}

	if err := obs.Connect(); err == nil {
		t.Fatalf("Connect after Close should fail")
	}
}

func TestObserverReconnectExhaustionIsTerminal(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	established := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := upgrader.Upgrade(w, r, nil); err != nil {
			return
		}
		established <- struct{}{}
	}))

	obs := NewObserver("ws"+strings.TrimPrefix(srv.URL, "http"), mustTestLogger(t))
	obs.retryInterval = 10 * time.Millisecond
	if err := obs.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	select {
	case <-established:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw the connection")
	}

	// Tear the endpoint down entirely: the live connection drops and every
	// redial is refused, so the retry loop must run out of attempts.
	srv.Close()

	select {
	case <-obs.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("observer never gave up reconnecting")
	}
	if obs.State() != ObserverDisconnected {
		t.Fatalf("state after exhaustion: want %s, got %s", ObserverDisconnected, obs.State())
	}

	obs.mu.Lock()
	attempts := obs.attempts
	obs.mu.Unlock()
	if attempts != maxReconnectAttempts {
		t.Fatalf("attempts: want %d, got %d", maxReconnectAttempts, attempts)
	}

	if err := obs.Connect(); err == nil {
		t.Fatalf("Connect after exhaustion should fail")
	}
}

func TestObserverDialFailure(t *testing.T) {
	obs := NewObserver("ws://127.0.0.1:1/ws", mustTestLogger(t))
	if err := obs.Connect(); err == nil {
		t.Fatalf("Connect to dead endpoint should fail")
	}
	if obs.State() != ObserverDisconnected {
		t.Fatalf("state after failed dial: want %s, got %s", ObserverDisconnected, obs.State())
	}
}
