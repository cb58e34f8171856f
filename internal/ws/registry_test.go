package ws_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/ws"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failNext bool
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("write failed")
	}
	f.messages = append(f.messages, data)
	return nil
}

func TestSendToUserDeliversEnvelope(t *testing.T) {
	r := ws.NewRegistry(zap.NewNop())
	conn := &fakeConn{}
	r.Register(1, conn)

	if err := r.SendToUser(1, "session.status", "trading", map[string]any{"status": "running"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(conn.messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(conn.messages))
	}
	var envelope struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(conn.messages[0], &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Type != "session.status" || envelope.Channel != "trading" {
		t.Fatalf("got %+v, want type=session.status channel=trading", envelope)
	}
}

func TestSendToUserDropsDeadConnections(t *testing.T) {
	r := ws.NewRegistry(zap.NewNop())
	conn := &fakeConn{failNext: true}
	r.Register(1, conn)

	if err := r.SendToUser(1, "t", "c", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	healthy := &fakeConn{}
	r.Register(1, healthy)
	if err := r.SendToUser(1, "t", "c", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(healthy.messages) != 1 {
		t.Fatalf("got %d messages on healthy conn, want 1 (dead conn should be gone)", len(healthy.messages))
	}
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	r := ws.NewRegistry(zap.NewNop())
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(1, a)
	r.Register(2, b)

	if err := r.Broadcast("t", "c", nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(a.messages) != 1 || len(b.messages) != 1 {
		t.Fatalf("expected both users to receive one message, got a=%d b=%d", len(a.messages), len(b.messages))
	}
}

func TestBroadcastAfterUnregisterIsNoop(t *testing.T) {
	r := ws.NewRegistry(zap.NewNop())
	conn := &fakeConn{}
	r.Register(1, conn)
	r.Unregister(1, conn)

	// Broadcast after removing the only connection should be a no-op,
	// not an error.
	if err := r.Broadcast("t", "c", nil); err != nil {
		t.Fatalf("broadcast after unregister: %v", err)
	}
}
