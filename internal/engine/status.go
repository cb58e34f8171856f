package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// emitStatus publishes a bare status/message update, optionally
// attaching market-hours detail.
func (e *Executor) emitStatus(status, message string, market *types.MarketStatus) {
	e.publish(types.StatusPayload{
		SessionID:    e.SessionID,
		StockCode:    e.StockCode,
		StockName:    e.StockName,
		Status:       status,
		Message:      message,
		Timestamp:    time.Now().In(kst).Format(time.RFC3339),
		MarketStatus: market,
	})
}

// emitRunning publishes the "running / next check" status emitted at
// the end of every cycle.
func (e *Executor) emitRunning(nextCheck time.Time) {
	next := nextCheck.Format("15:04:05")
	nextISO := nextCheck.Format(time.RFC3339)
	e.publish(types.StatusPayload{
		SessionID:   e.SessionID,
		StockCode:   e.StockCode,
		StockName:   e.StockName,
		Status:      "running",
		Message:     "다음 체크: " + next,
		Timestamp:   time.Now().In(kst).Format(time.RFC3339),
		NextCheckAt: &nextISO,
	})
}

// emitEvaluated publishes the per-cycle strategy result.
func (e *Executor) emitEvaluated(price float64, signal types.Signal, reason string) {
	signalStr := string(signal)
	lastChecked := time.Now().In(kst).Format(time.RFC3339)
	e.publish(types.StatusPayload{
		SessionID:     e.SessionID,
		StockCode:     e.StockCode,
		StockName:     e.StockName,
		Status:        "evaluated",
		Message:       reason,
		Timestamp:     lastChecked,
		CurrentPrice:  &price,
		Signal:        &signalStr,
		SignalReason:  &reason,
		LastCheckedAt: &lastChecked,
	})
}

func (e *Executor) publish(payload types.StatusPayload) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.SendToUser(e.UserID, "session.status", "trading", payload); err != nil {
		e.logger.Warn("failed to publish status", zap.Int64("session_id", e.SessionID), zap.Error(err))
	}
}
