// Package engine runs the per-session strategy evaluation loop and
// supervises the set of active sessions (spec.md §4.6, §4.7).
package engine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/metrics"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

const marketPollInterval = 30 * time.Second
const pausePollInterval = 1 * time.Second

// Executor runs the main loop for one trading session: market-hours
// gating, one evaluation cycle per interval, and order placement on a
// non-HOLD signal. It is grounded line-for-line on
// original_source/backend/app/engine/executor.py, restructured around
// three independent latches instead of asyncio.Event: stopped is a
// channel closed exactly once, paused is polled via atomic.Bool,
// running is implied by goroutine liveness.
type Executor struct {
	SessionID       int64
	UserID          int64
	Broker          broker.Adapter
	Strategy        strategy.Strategy
	StockCode       string
	StockName       string
	IntervalSeconds int
	OrderQuantity   int
	MarketHours     types.MarketHoursConfig

	publisher ws.Publisher
	logger    *zap.Logger

	stopped  chan struct{}
	stopOnce sync.Once
	paused   atomic.Bool

	// now is overridable in tests so market-hours gating doesn't depend
	// on the wall-clock time the test suite happens to run at.
	now func() time.Time
}

// NewExecutor constructs an Executor ready to Run. interval and
// quantity default to spec.md's 60s/1-share defaults when zero.
func NewExecutor(sessionID, userID int64, brokerAdapter broker.Adapter, strat strategy.Strategy, stockCode, stockName string, intervalSeconds, orderQuantity int, publisher ws.Publisher, logger *zap.Logger) *Executor {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	if orderQuantity <= 0 {
		orderQuantity = 1
	}
	return &Executor{
		SessionID:       sessionID,
		UserID:          userID,
		Broker:          brokerAdapter,
		Strategy:        strat,
		StockCode:       stockCode,
		StockName:       stockName,
		IntervalSeconds: intervalSeconds,
		OrderQuantity:   orderQuantity,
		MarketHours:     types.DefaultMarketHoursConfig(),
		publisher:       publisher,
		logger:          logger,
		stopped:         make(chan struct{}),
		now:             time.Now,
	}
}

// SetClock overrides the clock used for market-hours gating. Intended
// for tests that need deterministic behavior regardless of wall-clock
// time; production callers never need it.
func (e *Executor) SetClock(now func() time.Time) { e.now = now }

// SetMarketHours overrides the market-hours gate's open/close minutes.
// Callers that load a non-default MarketHoursConfig from
// internal/config call this after NewExecutor; tests and the default
// 09:00-15:30 KST deployment never need it.
func (e *Executor) SetMarketHours(cfg types.MarketHoursConfig) { e.MarketHours = cfg }

// Pause sets the paused latch; the running loop observes it at the
// next 1-second poll.
func (e *Executor) Pause() { e.paused.Store(true) }

// Resume clears the paused latch.
func (e *Executor) Resume() { e.paused.Store(false) }

// Stop sets the stopped latch exactly once and clears paused so a
// currently-paused loop can observe the stop.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() { close(e.stopped) })
	e.paused.Store(false)
}

func (e *Executor) isStopped() bool {
	select {
	case <-e.stopped:
		return true
	default:
		return false
	}
}

// Run drives the main loop until Stop is called or ctx is cancelled.
// It emits a terminal "stopped" status exactly once on exit, matching
// the Python original's `finally` block.
func (e *Executor) Run(ctx context.Context) {
	e.logger.Info("executor started",
		zap.Int64("session_id", e.SessionID),
		zap.String("stock_code", e.StockCode),
	)
	defer func() {
		e.emitStatus("stopped", "중지됨", nil)
		e.logger.Info("executor stopped", zap.Int64("session_id", e.SessionID))
	}()

	for !e.isStopped() {
		if e.paused.Load() {
			e.emitStatus("paused", "일시정지 중", nil)
			if e.waitWhilePaused(ctx) {
				return
			}
			e.emitStatus("running", "재개됨", nil)
		}

		status := marketStatus(e.now().UTC(), e.MarketHours)
		if !status.IsOpen {
			e.emitStatus("waiting_market", "장 시간 대기 중", &status)
			if e.sleepOrStop(ctx, marketPollInterval) {
				return
			}
			continue
		}

		metrics.SessionCyclesTotal.WithLabelValues(e.sessionIDLabel(), e.StockCode).Inc()
		if err := e.executeCycle(ctx); err != nil {
			metrics.SessionErrorsTotal.WithLabelValues(e.sessionIDLabel()).Inc()
			e.logger.Error("cycle error", zap.Int64("session_id", e.SessionID), zap.Error(err))
			e.emitStatus("error", "오류: "+truncate(err.Error(), 50), nil)
		}

		nextCheck := time.Now().In(kst).Add(time.Duration(e.IntervalSeconds) * time.Second)
		e.emitRunning(nextCheck)

		if e.sleepOrStop(ctx, time.Duration(e.IntervalSeconds)*time.Second) {
			return
		}
	}
}

// waitWhilePaused polls once a second until paused clears or a stop
// arrives, returning true if the caller should exit the main loop.
func (e *Executor) waitWhilePaused(ctx context.Context) bool {
	for e.paused.Load() {
		select {
		case <-e.stopped:
			return true
		case <-ctx.Done():
			return true
		case <-time.After(pausePollInterval):
		}
	}
	return false
}

// sleepOrStop sleeps for d, returning true if stop/cancellation arrived first.
func (e *Executor) sleepOrStop(ctx context.Context, d time.Duration) bool {
	select {
	case <-e.stopped:
		return true
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func (e *Executor) executeCycle(ctx context.Context) error {
	e.emitStatus("checking", "시세 조회 중...", nil)

	price, err := e.Broker.GetCurrentPrice(ctx, e.StockCode)
	if err != nil {
		return err
	}
	if price.CurrentPrice <= 0 {
		e.logger.Warn("invalid price", zap.Int64("session_id", e.SessionID), zap.Float64("price", price.CurrentPrice))
		e.emitStatus("error", "시세 조회 실패", nil)
		return nil
	}

	candles, err := e.Broker.GetOHLCV(ctx, e.StockCode, "D", 60)
	if err != nil {
		return err
	}

	holdings, err := e.Broker.GetHoldings(ctx)
	if err != nil {
		return err
	}
	var holding *types.Holding
	for i := range holdings {
		if holdings[i].StockCode == e.StockCode {
			holding = &holdings[i]
			break
		}
	}

	e.emitStatus("evaluating", "전략 평가 중...", nil)

	signal := e.Strategy.Evaluate(price.CurrentPrice, candles, holding)
	reason := e.Strategy.LastReason()

	e.logger.Info("evaluated signal",
		zap.Int64("session_id", e.SessionID),
		zap.String("stock_code", e.StockCode),
		zap.Float64("price", price.CurrentPrice),
		zap.String("signal", string(signal)),
		zap.String("reason", reason),
	)

	e.emitEvaluated(price.CurrentPrice, signal, reason)

	switch signal {
	case types.SignalBuy:
		e.emitStatus("ordering", "매수 주문 중...", nil)
		e.executeBuy(ctx, price.CurrentPrice, reason)
	case types.SignalSell:
		e.emitStatus("ordering", "매도 주문 중...", nil)
		e.executeSell(ctx, price.CurrentPrice, reason)
	}
	return nil
}

// executeBuy and executeSell swallow broker errors: an order failure
// is logged, never propagated, per spec.md §4.6 step 7/8.
func (e *Executor) executeBuy(ctx context.Context, price float64, reason string) {
	result, err := e.Broker.BuyMarket(ctx, e.StockCode, e.OrderQuantity)
	if err != nil {
		metrics.RecordOrder(types.SignalBuy, false)
		e.logger.Error("buy failed", zap.Int64("session_id", e.SessionID), zap.Error(err))
		return
	}
	metrics.RecordOrder(types.SignalBuy, true)
	e.logger.Info("buy executed",
		zap.Int64("session_id", e.SessionID),
		zap.String("stock_code", e.StockCode),
		zap.Int("quantity", e.OrderQuantity),
		zap.Float64("approx_price", price),
		zap.String("reason", reason),
		zap.String("order_no", result.OrderNo),
	)
}

func (e *Executor) executeSell(ctx context.Context, price float64, reason string) {
	result, err := e.Broker.SellMarket(ctx, e.StockCode, e.OrderQuantity)
	if err != nil {
		metrics.RecordOrder(types.SignalSell, false)
		e.logger.Error("sell failed", zap.Int64("session_id", e.SessionID), zap.Error(err))
		return
	}
	metrics.RecordOrder(types.SignalSell, true)
	e.logger.Info("sell executed",
		zap.Int64("session_id", e.SessionID),
		zap.String("stock_code", e.StockCode),
		zap.Int("quantity", e.OrderQuantity),
		zap.Float64("approx_price", price),
		zap.String("reason", reason),
		zap.String("order_no", result.OrderNo),
	)
}

func (e *Executor) sessionIDLabel() string {
	return strconv.FormatInt(e.SessionID, 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
