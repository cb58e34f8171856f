package api

import (
	"context"
	"sync"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// MemStore is a reference SessionStore backed by a map, for running the
// control-plane shim without a real database attached. Production
// deployments supply their own SessionStore over whatever persistence
// layer owns the sessions table.
type MemStore struct {
	mu       sync.Mutex
	sessions map[int64]*types.Session
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[int64]*types.Session)}
}

// Put seeds or overwrites a session record.
func (m *MemStore) Put(sess *types.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}

// Get implements SessionStore.
func (m *MemStore) Get(_ context.Context, sessionID int64) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, apierr.NotFound("session %d not found", sessionID)
	}
	return sess, nil
}

// Save implements SessionStore.
func (m *MemStore) Save(_ context.Context, sess *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}
