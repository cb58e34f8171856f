package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/metrics"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Manager owns the set of active Executors keyed by session id.
// Grounded on original_source/backend/app/engine/manager.py's
// TradingManager, minus the process-wide singleton: spec.md §9 calls
// that out explicitly, so NewManager is a plain constructor and
// cmd/server/main.go wires exactly one instance.
type Manager struct {
	mu        sync.Mutex
	executors map[int64]*Executor
	logger    *zap.Logger
}

// NewManager constructs an empty Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		executors: make(map[int64]*Executor),
		logger:    logger,
	}
}

// StartSessionParams bundles an Executor's construction inputs so
// StartSession's signature doesn't grow every time the executor does.
type StartSessionParams struct {
	SessionID       int64
	UserID          int64
	Broker          broker.Adapter
	Strategy        strategy.Strategy
	StockCode       string
	StockName       string
	IntervalSeconds int
	OrderQuantity   int
	Publisher       ws.Publisher
	// MarketHours overrides the default 09:00-15:30 KST gate when
	// non-zero; the zero value keeps the default. Callers that loaded a
	// non-default internal/config.Config set this explicitly.
	MarketHours types.MarketHoursConfig
}

// StartSession constructs an Executor and launches its Run loop as a
// supervised goroutine. It returns a KindState error if session_id is
// already active, matching the Python original's "Session already
// active" ValueError.
func (m *Manager) StartSession(ctx context.Context, params StartSessionParams) (*Executor, error) {
	m.mu.Lock()
	if _, exists := m.executors[params.SessionID]; exists {
		m.mu.Unlock()
		return nil, apierr.State("session %d already active", params.SessionID)
	}

	executor := NewExecutor(
		params.SessionID,
		params.UserID,
		params.Broker,
		params.Strategy,
		params.StockCode,
		params.StockName,
		params.IntervalSeconds,
		params.OrderQuantity,
		params.Publisher,
		m.logger,
	)
	if params.MarketHours != (types.MarketHoursConfig{}) {
		executor.SetMarketHours(params.MarketHours)
	}
	m.executors[params.SessionID] = executor
	m.mu.Unlock()
	metrics.SessionsRunning.Inc()

	go m.runExecutor(ctx, params.SessionID, executor)

	m.logger.Info("session started", zap.Int64("session_id", params.SessionID))
	return executor, nil
}

// runExecutor drives the executor and always removes it from the
// registry on exit, mirroring the Python original's try/finally.
func (m *Manager) runExecutor(ctx context.Context, sessionID int64, executor *Executor) {
	defer func() {
		m.mu.Lock()
		delete(m.executors, sessionID)
		m.mu.Unlock()
		metrics.SessionsRunning.Dec()
		m.logger.Info("session cleaned up", zap.Int64("session_id", sessionID))
	}()
	executor.Run(ctx)
}

// StopSession requests the session's executor stop; a no-op if the
// session is not active.
func (m *Manager) StopSession(sessionID int64) {
	if e := m.lookup(sessionID); e != nil {
		e.Stop()
		m.logger.Info("session stop requested", zap.Int64("session_id", sessionID))
	}
}

// PauseSession requests the session's executor pause; a no-op if the
// session is not active.
func (m *Manager) PauseSession(sessionID int64) {
	if e := m.lookup(sessionID); e != nil {
		e.Pause()
		m.logger.Info("session paused", zap.Int64("session_id", sessionID))
	}
}

// ResumeSession requests the session's executor resume; a no-op if the
// session is not active.
func (m *Manager) ResumeSession(sessionID int64) {
	if e := m.lookup(sessionID); e != nil {
		e.Resume()
		m.logger.Info("session resumed", zap.Int64("session_id", sessionID))
	}
}

func (m *Manager) lookup(sessionID int64) *Executor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executors[sessionID]
}

// ActiveSessionIDs returns the currently-active session ids.
func (m *Manager) ActiveSessionIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.executors))
	for id := range m.executors {
		ids = append(ids, id)
	}
	return ids
}

// IsActive reports whether sessionID currently has a live Executor.
func (m *Manager) IsActive(sessionID int64) bool {
	return m.lookup(sessionID) != nil
}
