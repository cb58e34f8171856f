// Package api provides the thin control-plane HTTP/WebSocket shim.
// Request handling, persistence, and auth are explicitly out of scope
// for the session engine; this package only translates HTTP requests
// into calls against internal/controlplane and internal/ws, over
// already-resolved Session records supplied by a SessionStore.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/controlplane"
	"github.com/atlas-desktop/session-engine/internal/engine"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// SessionStore resolves and persists Session records. It is the seam
// spec.md leaves for an external persistence layer; this package never
// implements one itself (see memstore.go for a reference in-memory
// stand-in used by cmd/server).
type SessionStore interface {
	Get(ctx context.Context, sessionID int64) (*types.Session, error)
	Save(ctx context.Context, sess *types.Session) error
}

// BrokerProvider resolves the live broker.Adapter for a session's
// bound account. Credential storage and decryption are out of scope;
// callers supply whatever resolves them.
type BrokerProvider interface {
	BrokerFor(sess *types.Session) (broker.Adapter, error)
}

// Server is the HTTP/WebSocket control-plane shim.
type Server struct {
	logger     *zap.Logger
	config     types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	sessions       SessionStore
	brokers        BrokerProvider
	strategies     *strategy.Registry
	manager        *engine.Manager
	wsRegistry     *ws.Registry
	marketHours    types.MarketHoursConfig
	sessionConfig  types.SessionConfig
}

// NewServer wires a control-plane shim around an already-constructed
// engine.Manager and ws.Registry.
func NewServer(logger *zap.Logger, config types.ServerConfig, sessions SessionStore, brokers BrokerProvider, strategies *strategy.Registry, manager *engine.Manager, wsRegistry *ws.Registry, marketHours types.MarketHoursConfig, sessionConfig types.SessionConfig) *Server {
	s := &Server{
		logger:        logger,
		config:        config,
		router:        mux.NewRouter(),
		sessions:      sessions,
		brokers:       brokers,
		strategies:    strategies,
		manager:       manager,
		wsRegistry:    wsRegistry,
		marketHours:   marketHours,
		sessionConfig: sessionConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/strategies", s.handleListStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/sessions/{id}/start", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/sessions/{id}/stop", s.handleStop).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/sessions/{id}/pause", s.handlePause).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/sessions/{id}/resume", s.handleResume).Methods(http.MethodPost)
	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket).Methods(http.MethodGet)
}

// Start begins serving HTTP requests; it blocks until Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting control-plane server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying mux.Router for tests that drive routes
// directly via httptest without binding a real listener.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListStrategies mirrors the registry's catalog so a client can
// populate a strategy picker without hardcoding type names or schemas.
func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.strategies.AvailableStrategies())
}

func (s *Server) sessionFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierr.Config("invalid session id %q", raw)
	}
	return id, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.sessionFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	strategyType, _ := sess.Config["strategy_type"].(string)
	params, _ := sess.Config["strategy_params"].(map[string]any)
	strat, err := s.strategies.GetStrategy(strategyType, params)
	if err != nil {
		writeError(w, err)
		return
	}
	brokerAdapter, err := s.brokers.BrokerFor(sess)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := controlplane.Start(r.Context(), s.manager, sess, strat, brokerAdapter, s.wsRegistry, s.marketHours, s.sessionConfig); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("session persist failed after start", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.sessionFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := controlplane.Stop(s.manager, sess, s.wsRegistry); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("session persist failed after stop", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.sessionFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := controlplane.Pause(s.manager, sess); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("session persist failed after pause", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.sessionFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := controlplane.Resume(s.manager, sess); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("session persist failed after resume", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleWebSocket upgrades the connection and registers it under the
// authenticated user's id. Auth itself is out of scope: the user id is
// taken from a query parameter here as a placeholder for whatever
// upstream auth middleware would inject.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user_id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	wrapped := ws.NewWSConn(connID, conn)
	s.wsRegistry.Register(userID, wrapped)
	s.logger.Info("websocket client connected", zap.Int64("user_id", userID), zap.String("conn_id", connID))

	go wrapped.ReadPump(s.wsRegistry, userID)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := apierr.KindOf(err); ok {
		switch kind {
		case apierr.KindConfig:
			status = http.StatusBadRequest
		case apierr.KindState:
			status = http.StatusConflict
		case apierr.KindNotFound:
			status = http.StatusNotFound
		case apierr.KindConnection:
			status = http.StatusBadGateway
		case apierr.KindOrder:
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
