// Package controlplane exposes the inbound session operations from
// spec.md §6 as plain Go functions over already-authorized,
// already-persisted inputs. It does not implement HTTP routing,
// persistence, or auth — those stay "external collaborators,
// specified only at their interface" per spec.md's explicit scope cut;
// callers are expected to persist sess's mutated fields after a
// successful call.
package controlplane

import (
	"context"
	"time"

	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/engine"
	"github.com/atlas-desktop/session-engine/internal/state"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Start validates the PENDING→RUNNING transition, connects the broker,
// and launches the session's Executor. On success sess.Status,
// sess.StartedAt are updated in place and a "session.started" envelope
// is published; the caller is responsible for persisting sess.
func Start(ctx context.Context, mgr *engine.Manager, sess *types.Session, strat strategy.Strategy, brokerAdapter broker.Adapter, publisher ws.Publisher, marketHours types.MarketHoursConfig, sessionDefaultsCfg types.SessionConfig) error {
	if err := state.CheckTransition(sess.Status, types.SessionRunning); err != nil {
		return err
	}
	if err := brokerAdapter.Connect(ctx); err != nil {
		return err
	}

	interval, quantity := sessionDefaults(sess, sessionDefaultsCfg)
	if _, err := mgr.StartSession(ctx, engine.StartSessionParams{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Broker:          brokerAdapter,
		Strategy:        strat,
		StockCode:       sess.StockCode,
		StockName:       sess.StockName,
		IntervalSeconds: interval,
		OrderQuantity:   quantity,
		Publisher:       publisher,
		MarketHours:     marketHours,
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	sess.Status = types.SessionRunning
	sess.StartedAt = &now
	return publisher.SendToUser(sess.UserID, "session.started", "trading", sess)
}

// Stop validates the transition to STOPPED, requests the executor
// stop, and updates sess in place.
func Stop(mgr *engine.Manager, sess *types.Session, publisher ws.Publisher) error {
	if err := state.CheckTransition(sess.Status, types.SessionStopped); err != nil {
		return err
	}
	mgr.StopSession(sess.ID)

	now := time.Now().UTC()
	sess.Status = types.SessionStopped
	sess.StoppedAt = &now
	return publisher.SendToUser(sess.UserID, "session.stopped", "trading", sess)
}

// Pause validates the transition to PAUSED and requests the executor pause.
func Pause(mgr *engine.Manager, sess *types.Session) error {
	if err := state.CheckTransition(sess.Status, types.SessionPaused); err != nil {
		return err
	}
	mgr.PauseSession(sess.ID)
	sess.Status = types.SessionPaused
	return nil
}

// Resume validates the transition back to RUNNING and requests the
// executor resume.
func Resume(mgr *engine.Manager, sess *types.Session) error {
	if err := state.CheckTransition(sess.Status, types.SessionRunning); err != nil {
		return err
	}
	mgr.ResumeSession(sess.ID)
	sess.Status = types.SessionRunning
	return nil
}

func sessionDefaults(sess *types.Session, defaults types.SessionConfig) (intervalSeconds, quantity int) {
	if defaults == (types.SessionConfig{}) {
		defaults = types.DefaultSessionConfig()
	}
	intervalSeconds = defaults.IntervalSeconds
	if v, ok := sess.Config["interval_seconds"]; ok {
		if n, ok := v.(float64); ok {
			intervalSeconds = int(n)
		} else if n, ok := v.(int); ok {
			intervalSeconds = n
		}
	}
	quantity = sess.Quantity
	if quantity <= 0 {
		quantity = defaults.OrderQuantity
	}
	return intervalSeconds, quantity
}
