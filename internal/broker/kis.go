package broker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/internal/metrics"
	"github.com/atlas-desktop/session-engine/internal/ratelimit"
	"github.com/atlas-desktop/session-engine/internal/workers"
	"github.com/atlas-desktop/session-engine/pkg/types"
	"github.com/atlas-desktop/session-engine/pkg/utils"
)

// KISAdapter implements Adapter against a Korea Investment & Securities
// upstream client. It owns a Token-Bucket Rate Limiter and dispatches
// every upstream call through a workers.Pool so the calling session
// goroutine never performs blocking I/O itself.
type KISAdapter struct {
	creds     Credentials
	newClient ClientFactory
	limiter   *ratelimit.Limiter
	pool      *workers.Pool
	logger    *zap.Logger

	mu            sync.Mutex
	client        UpstreamClient
	cachedBalance *types.Balance
}

// NewKISAdapter constructs an adapter with its own rate limiter and
// the worker pool it was given. rateLimiter's zero value falls back to
// spec.md's defaults (15 tokens, 15/sec refill). The upstream client
// is not created until the first operation needs it.
func NewKISAdapter(creds Credentials, newClient ClientFactory, pool *workers.Pool, logger *zap.Logger, rateLimiter types.RateLimiterConfig) *KISAdapter {
	if rateLimiter == (types.RateLimiterConfig{}) {
		rateLimiter = types.DefaultRateLimiterConfig()
	}
	return &KISAdapter{
		creds:     creds,
		newClient: newClient,
		limiter:   ratelimit.New(rateLimiter.MaxTokens, rateLimiter.RefillRate),
		pool:      pool,
		logger:    logger,
	}
}

func (a *KISAdapter) ensureClient() (UpstreamClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	client, err := a.newClient(a.creds)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// call acquires the rate limiter then runs fn on the worker pool,
// the shape every Adapter operation below follows.
func (a *KISAdapter) call(ctx context.Context, operation string, fn func(UpstreamClient) error) error {
	client, err := a.ensureClient()
	if err != nil {
		return err
	}
	waitStart := time.Now()
	if err := a.limiter.Acquire(ctx); err != nil {
		return err
	}
	metrics.RateLimiterWaitSeconds.Observe(time.Since(waitStart).Seconds())
	start := time.Now()
	defer func() {
		metrics.BrokerCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()
	return a.pool.SubmitFunc(ctx, func() error { return fn(client) })
}

func (a *KISAdapter) Connect(ctx context.Context) error {
	var raw map[string]any
	err := a.call(ctx, "connect", func(c UpstreamClient) error {
		var fetchErr error
		raw, fetchErr = c.FetchBalance(ctx)
		return fetchErr
	})
	if err != nil {
		return apierr.Connection(err, "failed to connect")
	}

	balance := normalizeBalance(raw)
	a.mu.Lock()
	a.cachedBalance = &balance
	a.mu.Unlock()

	a.logger.Info("broker connected", zap.String("account_no", a.creds.AccountNo))
	return nil
}

func (a *KISAdapter) GetBalance(ctx context.Context) (types.Balance, error) {
	var raw map[string]any
	err := a.call(ctx, "get_balance", func(c UpstreamClient) error {
		var fetchErr error
		raw, fetchErr = c.FetchBalance(ctx)
		return fetchErr
	})
	if err != nil {
		a.mu.Lock()
		cached := a.cachedBalance
		a.mu.Unlock()
		if cached != nil {
			metrics.BrokerDegradedTotal.WithLabelValues(a.creds.AccountNo).Inc()
			a.logger.Warn("get_balance failed, using cached balance", zap.Error(err))
			return *cached, nil
		}
		return types.Balance{}, apierr.Connection(err, "failed to fetch balance")
	}

	balance := normalizeBalance(raw)
	a.mu.Lock()
	a.cachedBalance = &balance
	a.mu.Unlock()
	return balance, nil
}

func (a *KISAdapter) GetHoldings(ctx context.Context) ([]types.Holding, error) {
	var raw []map[string]any
	err := a.call(ctx, "get_holdings", func(c UpstreamClient) error {
		var fetchErr error
		raw, fetchErr = c.FetchHoldings(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, apierr.Connection(err, "failed to fetch holdings")
	}
	return normalizeHoldings(raw), nil
}

func (a *KISAdapter) GetCurrentPrice(ctx context.Context, stockCode string) (types.PriceQuote, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	var raw map[string]any
	err := a.call(ctx, "get_current_price", func(c UpstreamClient) error {
		var fetchErr error
		raw, fetchErr = c.FetchPrice(ctx, stockCode)
		return fetchErr
	})
	if err != nil {
		return types.PriceQuote{}, apierr.Connection(err, "failed to fetch price for %s", stockCode)
	}
	return normalizePrice(raw, stockCode), nil
}

func (a *KISAdapter) GetOHLCV(ctx context.Context, stockCode, period string, count int) ([]types.Candle, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	if period == "" {
		period = "D"
	}
	var raw []map[string]any
	err := a.call(ctx, "get_ohlcv", func(c UpstreamClient) error {
		var fetchErr error
		raw, fetchErr = c.FetchOHLCV(ctx, stockCode, period, count)
		return fetchErr
	})
	if err != nil {
		return nil, apierr.Connection(err, "failed to fetch OHLCV for %s", stockCode)
	}
	if len(raw) > count {
		raw = raw[:count]
	}
	candles := make([]types.Candle, len(raw))
	for i, r := range raw {
		candles[i] = normalizeCandle(r)
	}
	return candles, nil
}

func (a *KISAdapter) BuyMarket(ctx context.Context, stockCode string, quantity int) (types.OrderResult, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	return a.order(ctx, "buy_market", func(c UpstreamClient) (map[string]any, error) {
		return c.CreateMarketBuyOrder(ctx, stockCode, quantity)
	}, "market buy failed for %s", stockCode)
}

func (a *KISAdapter) SellMarket(ctx context.Context, stockCode string, quantity int) (types.OrderResult, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	return a.order(ctx, "sell_market", func(c UpstreamClient) (map[string]any, error) {
		return c.CreateMarketSellOrder(ctx, stockCode, quantity)
	}, "market sell failed for %s", stockCode)
}

func (a *KISAdapter) BuyLimit(ctx context.Context, stockCode string, quantity int, price float64) (types.OrderResult, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	return a.order(ctx, "buy_limit", func(c UpstreamClient) (map[string]any, error) {
		return c.CreateLimitBuyOrder(ctx, stockCode, quantity, price)
	}, "limit buy failed for %s", stockCode)
}

func (a *KISAdapter) SellLimit(ctx context.Context, stockCode string, quantity int, price float64) (types.OrderResult, error) {
	stockCode = utils.NormalizeStockCode(stockCode)
	return a.order(ctx, "sell_limit", func(c UpstreamClient) (map[string]any, error) {
		return c.CreateLimitSellOrder(ctx, stockCode, quantity, price)
	}, "limit sell failed for %s", stockCode)
}

func (a *KISAdapter) order(ctx context.Context, operation string, fn func(UpstreamClient) (map[string]any, error), errFormat, stockCode string) (types.OrderResult, error) {
	var raw map[string]any
	err := a.call(ctx, operation, func(c UpstreamClient) error {
		var orderErr error
		raw, orderErr = fn(c)
		return orderErr
	})
	if err != nil {
		return types.OrderResult{}, apierr.Order(err, errFormat, stockCode)
	}
	return normalizeOrderResult(raw), nil
}
