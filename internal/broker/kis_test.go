package broker_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/workers"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

type fakeUpstream struct {
	balance      map[string]any
	balanceErr   error
	holdings     []map[string]any
	holdingsErr  error
	price        map[string]any
	priceErr     error
	ohlcv        []map[string]any
	ohlcvErr     error
	orderResult  map[string]any
	orderErr     error
}

func (f *fakeUpstream) FetchBalance(context.Context) (map[string]any, error) { return f.balance, f.balanceErr }
func (f *fakeUpstream) FetchHoldings(context.Context) ([]map[string]any, error) {
	return f.holdings, f.holdingsErr
}
func (f *fakeUpstream) FetchPrice(context.Context, string) (map[string]any, error) {
	return f.price, f.priceErr
}
func (f *fakeUpstream) FetchOHLCV(context.Context, string, string, int) ([]map[string]any, error) {
	return f.ohlcv, f.ohlcvErr
}
func (f *fakeUpstream) CreateMarketBuyOrder(context.Context, string, int) (map[string]any, error) {
	return f.orderResult, f.orderErr
}
func (f *fakeUpstream) CreateMarketSellOrder(context.Context, string, int) (map[string]any, error) {
	return f.orderResult, f.orderErr
}
func (f *fakeUpstream) CreateLimitBuyOrder(context.Context, string, int, float64) (map[string]any, error) {
	return f.orderResult, f.orderErr
}
func (f *fakeUpstream) CreateLimitSellOrder(context.Context, string, int, float64) (map[string]any, error) {
	return f.orderResult, f.orderErr
}

func newTestAdapter(t *testing.T, fake *fakeUpstream) (*broker.KISAdapter, *workers.Pool) {
	t.Helper()
	pool := workers.NewPool(zap.NewNop(), workers.DefaultPoolConfig("test"))
	pool.Start()
	t.Cleanup(func() { pool.Stop() })

	adapter := broker.NewKISAdapter(broker.Credentials{AccountNo: "123"}, func(broker.Credentials) (broker.UpstreamClient, error) {
		return fake, nil
	}, pool, zap.NewNop(), types.RateLimiterConfig{})
	return adapter, pool
}

func TestConnectCachesBalance(t *testing.T) {
	fake := &fakeUpstream{balance: map[string]any{"tot_evlu_amt": "1000000"}}
	adapter, _ := newTestAdapter(t, fake)

	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	bal, err := adapter.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.TotalEvaluationAmount != "1000000" {
		t.Fatalf("got %q, want 1000000", bal.TotalEvaluationAmount)
	}
}

func TestConnectFailureIsConnectionError(t *testing.T) {
	fake := &fakeUpstream{balanceErr: errors.New("network down")}
	adapter, _ := newTestAdapter(t, fake)

	err := adapter.Connect(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	kind, ok := apierr.KindOf(err)
	if !ok || kind != apierr.KindConnection {
		t.Fatalf("got kind %v, want CONNECTION", kind)
	}
}

func TestDegradedBalanceFallsBackToCache(t *testing.T) {
	fake := &fakeUpstream{balance: map[string]any{"tot_evlu_amt": "5000"}}
	adapter, _ := newTestAdapter(t, fake)

	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	fake.balanceErr = errors.New("upstream timeout")
	bal, err := adapter.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("expected cached fallback, got error: %v", err)
	}
	if bal.TotalEvaluationAmount != "5000" {
		t.Fatalf("got %q, want cached 5000", bal.TotalEvaluationAmount)
	}
}

func TestGetBalanceWithoutCacheFails(t *testing.T) {
	fake := &fakeUpstream{balanceErr: errors.New("upstream timeout")}
	adapter, _ := newTestAdapter(t, fake)

	_, err := adapter.GetBalance(context.Background())
	if err == nil {
		t.Fatal("expected an error when no cached balance exists")
	}
}

func TestGetHoldingsFiltersZeroQuantity(t *testing.T) {
	fake := &fakeUpstream{holdings: []map[string]any{
		{"pdno": "005930", "hldg_qty": 10.0},
		{"pdno": "000660", "hldg_qty": 0.0},
	}}
	adapter, _ := newTestAdapter(t, fake)

	holdings, err := adapter.GetHoldings(context.Background())
	if err != nil {
		t.Fatalf("get holdings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].StockCode != "005930" {
		t.Fatalf("got %+v, want one holding for 005930", holdings)
	}
}

func TestGetOHLCVTruncatesToCount(t *testing.T) {
	raw := make([]map[string]any, 10)
	for i := range raw {
		raw[i] = map[string]any{"stck_clpr": float64(100 + i)}
	}
	fake := &fakeUpstream{ohlcv: raw}
	adapter, _ := newTestAdapter(t, fake)

	candles, err := adapter.GetOHLCV(context.Background(), "005930", "D", 5)
	if err != nil {
		t.Fatalf("get ohlcv: %v", err)
	}
	if len(candles) != 5 {
		t.Fatalf("got %d candles, want 5", len(candles))
	}
}

func TestBuyMarketOrderIsConnectionFreeAndReturnsOrderError(t *testing.T) {
	fake := &fakeUpstream{orderErr: errors.New("insufficient funds")}
	adapter, _ := newTestAdapter(t, fake)

	_, err := adapter.BuyMarket(context.Background(), "005930", 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	kind, ok := apierr.KindOf(err)
	if !ok || kind != apierr.KindOrder {
		t.Fatalf("got kind %v, want ORDER", kind)
	}
}

func TestSellMarketParsesOrderResult(t *testing.T) {
	fake := &fakeUpstream{orderResult: map[string]any{
		"ODNO":         "000123",
		"tot_ccld_amt": 70000.0,
		"tot_ccld_qty": 1.0,
	}}
	adapter, _ := newTestAdapter(t, fake)

	result, err := adapter.SellMarket(context.Background(), "005930", 1)
	if err != nil {
		t.Fatalf("sell market: %v", err)
	}
	if result.OrderNo != "000123" {
		t.Fatalf("got order no %q, want 000123", result.OrderNo)
	}
	if result.FilledQuantity == nil || *result.FilledQuantity != 1 {
		t.Fatalf("got filled quantity %v, want 1", result.FilledQuantity)
	}
}
