package broker

import "context"

// UpstreamClient is the narrow seam between an Adapter and a concrete
// brokerage SDK. Every method is a single blocking call; Adapter
// implementations dispatch them onto a worker pool rather than call
// them inline. Raw maps mirror the upstream API's own JSON shape so
// normalization stays entirely inside the Adapter.
type UpstreamClient interface {
	FetchBalance(ctx context.Context) (map[string]any, error)
	FetchHoldings(ctx context.Context) ([]map[string]any, error)
	FetchPrice(ctx context.Context, stockCode string) (map[string]any, error)
	FetchOHLCV(ctx context.Context, stockCode, period string, count int) ([]map[string]any, error)
	CreateMarketBuyOrder(ctx context.Context, stockCode string, quantity int) (map[string]any, error)
	CreateMarketSellOrder(ctx context.Context, stockCode string, quantity int) (map[string]any, error)
	CreateLimitBuyOrder(ctx context.Context, stockCode string, quantity int, price float64) (map[string]any, error)
	CreateLimitSellOrder(ctx context.Context, stockCode string, quantity int, price float64) (map[string]any, error)
}

// ClientFactory lazily constructs the upstream client handle from
// credentials, matching the Broker Adapter state's "lazily-initialized
// upstream client handle" (spec.md §3). It is called at most once per
// Adapter, on the first operation that needs it.
type ClientFactory func(creds Credentials) (UpstreamClient, error)
