// Package ws implements the per-user WebSocket fan-out registry
// (spec.md §4.8): a mapping from user id to an ordered list of live
// connections, with broadcast and single-user delivery that tolerate
// dead connections by dropping them after a failed write.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Conn is the minimal transport seam a registered connection must
// satisfy. Keeping it this narrow lets Registry be exercised in tests
// without a real network socket; WSConn below is the production
// implementation over gorilla/websocket.
type Conn interface {
	WriteMessage(data []byte) error
}

// identifiedConn is an optional capability a Conn can implement to
// carry a connection id through Registry's logging. WSConn implements
// it; the test doubles in internal/ws's own tests don't need to.
type identifiedConn interface {
	ID() string
}

// connID returns c's id if it implements identifiedConn, else "".
func connID(c Conn) string {
	if ic, ok := c.(identifiedConn); ok {
		return ic.ID()
	}
	return ""
}

// Publisher is what the Strategy Executor depends on to emit status
// updates, so it never needs to know the registry exists.
type Publisher interface {
	SendToUser(userID int64, msgType, channel string, payload any) error
}

// Registry is the per-user connection-list fan-out, grounded on
// original_source/backend/app/ws/manager.py's ConnectionManager and
// restructured from the teacher's topic-keyed Hub into this user-keyed
// shape.
type Registry struct {
	mu          sync.Mutex
	connections map[int64][]Conn
	logger      *zap.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		connections: make(map[int64][]Conn),
		logger:      logger,
	}
}

// Register adds a live connection for userID.
func (r *Registry) Register(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[userID] = append(r.connections[userID], conn)
	r.logger.Debug("websocket connected", zap.Int64("user_id", userID), zap.String("conn_id", connID(conn)))
}

// Unregister removes a specific connection for userID, dropping the
// user's entry entirely once its connection list is empty.
func (r *Registry) Unregister(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.connections[userID]
	for i, c := range conns {
		if c == conn {
			r.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.connections[userID]) == 0 {
		delete(r.connections, userID)
	}
	r.logger.Debug("websocket disconnected", zap.Int64("user_id", userID), zap.String("conn_id", connID(conn)))
}

// SendToUser wraps payload in the envelope shape {type, channel,
// timestamp, payload}, snapshots the user's connection list under the
// guard, then writes outside the guard so a slow or dead connection
// never blocks registry mutation. Connections whose write fails are
// unregistered after the iteration completes.
func (r *Registry) SendToUser(userID int64, msgType, channel string, payload any) error {
	envelope := types.Envelope{
		Type:      msgType,
		Channel:   channel,
		Timestamp: timeNow(),
		Payload:   payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	r.mu.Lock()
	conns := make([]Conn, len(r.connections[userID]))
	copy(conns, r.connections[userID])
	r.mu.Unlock()

	var dead []Conn
	for _, c := range conns {
		if writeErr := c.WriteMessage(data); writeErr != nil {
			r.logger.Warn("websocket write failed, dropping connection",
				zap.Int64("user_id", userID), zap.String("conn_id", connID(c)), zap.Error(writeErr))
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		r.Unregister(userID, c)
	}
	return nil
}

// Broadcast sends the same message to every currently-registered user.
func (r *Registry) Broadcast(msgType, channel string, payload any) error {
	r.mu.Lock()
	userIDs := make([]int64, 0, len(r.connections))
	for userID := range r.connections {
		userIDs = append(userIDs, userID)
	}
	r.mu.Unlock()

	for _, userID := range userIDs {
		if err := r.SendToUser(userID, msgType, channel, payload); err != nil {
			return err
		}
	}
	return nil
}

// timeNow is a var so tests can pin the clock if envelope timestamps
// ever need to be asserted exactly.
var timeNow = func() time.Time { return time.Now().UTC() }
