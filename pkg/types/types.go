// Package types provides shared type definitions for the session engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the tri-valued result of a strategy evaluation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// SessionStatus is the lifecycle status of a trading session.
type SessionStatus string

const (
	SessionPending SessionStatus = "PENDING"
	SessionRunning SessionStatus = "RUNNING"
	SessionPaused  SessionStatus = "PAUSED"
	SessionStopped SessionStatus = "STOPPED"
	SessionError   SessionStatus = "ERROR"
)

// Session is the persistent identity of a bound (user, account, strategy,
// symbol) execution context. Persistence is the caller's responsibility;
// the engine only ever reads the fields it needs to construct an Executor.
type Session struct {
	ID           int64          `json:"sessionId"`
	UserID       int64          `json:"userId"`
	AccountID    int64          `json:"accountId"`
	StrategyID   int64          `json:"strategyId"`
	StockCode    string         `json:"stockCode"`
	StockName    string         `json:"stockName"`
	Quantity     int            `json:"quantity"`
	Status       SessionStatus  `json:"status"`
	Config       map[string]any `json:"config"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	StoppedAt    *time.Time     `json:"stoppedAt,omitempty"`
	TotalPnL     decimal.Decimal `json:"totalPnl"`
	TotalTrades  int            `json:"totalTrades"`
}

// Candle is a single OHLCV row. Plain float64 mirrors the upstream
// brokerage's already-normalized JSON numerics and keeps strategy math
// (moving averages, Wilder smoothing over series bounded at 60 rows)
// simple. Prices passed to and returned from order placement are
// float64 too; decimal.Decimal is used only for Session.TotalPnL.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Holding is a normalized holdings row for a single symbol.
type Holding struct {
	StockCode string         `json:"stockCode"`
	Quantity  int            `json:"quantity"`
	Raw       map[string]any `json:"-"`
}

// Balance is the normalized account balance record from spec.md §4.4.
// Every field is a string representing a non-negative integer, matching
// the upstream brokerage's own representation so no precision is lost
// round-tripping it.
type Balance struct {
	TotalEvaluationAmount   string `json:"tot_evlu_amt"`
	EvaluationProfitLoss    string `json:"evlu_pfls_smtl_amt"`
	PurchaseAmountTotal     string `json:"pchs_amt_smtl_amt"`
	DepositTotal            string `json:"dnca_tot_amt"`
	NextDayExerciseAmount   string `json:"nxdy_excc_amt"`
}

// PriceQuote is the normalized current-price record from spec.md §4.4.
type PriceQuote struct {
	StockCode    string  `json:"stock_code"`
	StockName    string  `json:"stock_name"`
	CurrentPrice float64 `json:"current_price"`
	Change       float64 `json:"change"`
	ChangeRate   float64 `json:"change_rate"`
	Volume       int64   `json:"volume"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	OpenPrice    float64 `json:"open_price"`
}

// OrderResult is the normalized order-placement response from spec.md §4.4.
type OrderResult struct {
	OrderNo         string          `json:"order_no"`
	FilledPrice     *float64        `json:"filled_price"`
	FilledQuantity  *int            `json:"filled_quantity"`
	Raw             map[string]any  `json:"raw"`
}

// Envelope is the JSON wrapper used for every WebSocket message emitted
// by the fan-out registry (spec.md §4.8 / §6).
type Envelope struct {
	Type      string    `json:"type"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// StatusPayload is the payload shape of a "session.status" envelope
// emitted by the Strategy Executor at every state change.
type StatusPayload struct {
	SessionID      int64   `json:"session_id"`
	StockCode      string  `json:"stock_code"`
	StockName      string  `json:"stock_name"`
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Timestamp      string  `json:"timestamp"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	Signal         *string  `json:"signal,omitempty"`
	SignalReason   *string  `json:"signal_reason,omitempty"`
	LastCheckedAt  *string  `json:"last_checked_at,omitempty"`
	NextCheckAt    *string  `json:"next_check_at,omitempty"`
	MarketStatus   *MarketStatus `json:"market_status,omitempty"`
}

// MarketStatus describes the KST market-hours gate state.
type MarketStatus struct {
	IsOpen      bool   `json:"is_open"`
	Reason      string `json:"reason"`
	NextOpen    string `json:"next_open,omitempty"`
	CurrentTime string `json:"current_time"`
}
