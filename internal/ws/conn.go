package ws

import "github.com/gorilla/websocket"

// WSConn adapts a *websocket.Conn to the Conn interface for production
// use. One WSConn wraps one upgraded HTTP connection; ReadPump below
// drains client frames (this registry is publish-only, so incoming
// frames are discarded) so gorilla's ping/pong control handling keeps
// functioning and a closed socket is detected promptly.
type WSConn struct {
	id   string
	conn *websocket.Conn
	mu   writeMutex
}

// writeMutex serializes writes to a single *websocket.Conn, which is
// not safe for concurrent writers.
type writeMutex struct{ ch chan struct{} }

func newWriteMutex() writeMutex {
	m := writeMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

func (m writeMutex) lock()   { <-m.ch }
func (m writeMutex) unlock() { m.ch <- struct{}{} }

// NewWSConn wraps conn for registration with a Registry. id identifies
// this connection across its lifetime in logs (see Registry's
// connect/disconnect/dead-connection logging).
func NewWSConn(id string, conn *websocket.Conn) *WSConn {
	return &WSConn{id: id, conn: conn, mu: newWriteMutex()}
}

// ID returns the connection id passed to NewWSConn, satisfying
// Registry's optional identifiedConn interface.
func (w *WSConn) ID() string { return w.id }

// WriteMessage sends one text frame.
func (w *WSConn) WriteMessage(data []byte) error {
	w.mu.lock()
	defer w.mu.unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadPump discards inbound frames until the connection closes, then
// unregisters itself. Callers run this in its own goroutine right
// after Register.
func (w *WSConn) ReadPump(registry *Registry, userID int64) {
	defer registry.Unregister(userID, w)
	defer w.conn.Close()
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}
