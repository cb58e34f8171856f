package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/api"
	"github.com/atlas-desktop/session-engine/internal/broker"
	"github.com/atlas-desktop/session-engine/internal/engine"
	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/internal/ws"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

type fakeBroker struct{}

func (fakeBroker) Connect(context.Context) error { return nil }
func (fakeBroker) GetBalance(context.Context) (types.Balance, error) {
	return types.Balance{}, nil
}
func (fakeBroker) GetHoldings(context.Context) ([]types.Holding, error) { return nil, nil }
func (fakeBroker) GetCurrentPrice(context.Context, string) (types.PriceQuote, error) {
	return types.PriceQuote{CurrentPrice: 100}, nil
}
func (fakeBroker) GetOHLCV(context.Context, string, string, int) ([]types.Candle, error) {
	return nil, nil
}
func (fakeBroker) BuyMarket(context.Context, string, int) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (fakeBroker) SellMarket(context.Context, string, int) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (fakeBroker) BuyLimit(context.Context, string, int, float64) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (fakeBroker) SellLimit(context.Context, string, int, float64) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}

type fakeBrokerProvider struct{}

func (fakeBrokerProvider) BrokerFor(*types.Session) (broker.Adapter, error) {
	return fakeBroker{}, nil
}

func newTestServer(t *testing.T) (*api.Server, *api.MemStore) {
	t.Helper()
	store := api.NewMemStore()
	mgr := engine.NewManager(zap.NewNop())
	registry := ws.NewRegistry(zap.NewNop())
	srv := api.NewServer(zap.NewNop(), types.DefaultServerConfig(), store, fakeBrokerProvider{}, strategy.NewRegistry(), mgr, registry, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig())
	t.Cleanup(func() {
		for _, id := range mgr.ActiveSessionIDs() {
			mgr.StopSession(id)
		}
	})
	return srv, store
}

func doRequest(t *testing.T, srv *api.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListStrategiesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/strategies")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "threshold") {
		t.Fatalf("body = %s, want it to include the threshold strategy", rec.Body.String())
	}
}

func TestStartEndpointTransitionsSession(t *testing.T) {
	srv, store := newTestServer(t)
	store.Put(&types.Session{
		ID: 1, UserID: 9, Status: types.SessionPending, StockCode: "005930",
		Config: map[string]any{
			"strategy_type":   "threshold",
			"strategy_params": map[string]any{"buy_price": 100.0, "sell_price": 200.0},
		},
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/1/start")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	sess, err := store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Status != types.SessionRunning {
		t.Fatalf("status = %v, want RUNNING", sess.Status)
	}
}

func TestStartEndpointUnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/999/start")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStopEndpointOnStoppedSessionIsConflict(t *testing.T) {
	srv, store := newTestServer(t)
	store.Put(&types.Session{ID: 2, UserID: 9, Status: types.SessionStopped, StockCode: "005930"})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/2/stop")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
