// Package broker provides the narrow Broker Adapter contract (spec.md
// §4.4) and a Korea Investment & Securities implementation.
package broker

import (
	"context"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Adapter is the capability set every trading session's broker binding
// exposes to its Strategy Executor. Every operation first acquires the
// adapter's rate limiter, then dispatches to the upstream client on a
// background worker so a blocking upstream call never blocks the
// session goroutine driving the cycle loop.
type Adapter interface {
	// Connect performs one balance fetch and populates the degraded-mode
	// cache on success; failure returns a KindConnection error.
	Connect(ctx context.Context) error
	GetBalance(ctx context.Context) (types.Balance, error)
	// GetHoldings returns only rows with a positive held quantity.
	GetHoldings(ctx context.Context) ([]types.Holding, error)
	GetCurrentPrice(ctx context.Context, stockCode string) (types.PriceQuote, error)
	// GetOHLCV returns at most count candles, newest-first.
	GetOHLCV(ctx context.Context, stockCode, period string, count int) ([]types.Candle, error)
	BuyMarket(ctx context.Context, stockCode string, quantity int) (types.OrderResult, error)
	SellMarket(ctx context.Context, stockCode string, quantity int) (types.OrderResult, error)
	BuyLimit(ctx context.Context, stockCode string, quantity int, price float64) (types.OrderResult, error)
	SellLimit(ctx context.Context, stockCode string, quantity int, price float64) (types.OrderResult, error)
}

// Credentials are the immutable identity an Adapter is constructed
// with. Encryption at rest and transport are a caller concern.
type Credentials struct {
	AppKey         string
	AppSecret      string
	AccountNo      string
	AccountSuffix  string
	Environment    string // "vps" (paper) or "real"
	HTSID          string
}
