package controlplane_test

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/internal/controlplane"
	"github.com/atlas-desktop/session-engine/internal/engine"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

type fakeBroker struct {
	connectErr error
}

func (f *fakeBroker) Connect(context.Context) error { return f.connectErr }
func (f *fakeBroker) GetBalance(context.Context) (types.Balance, error) {
	return types.Balance{}, nil
}
func (f *fakeBroker) GetHoldings(context.Context) ([]types.Holding, error) { return nil, nil }
func (f *fakeBroker) GetCurrentPrice(context.Context, string) (types.PriceQuote, error) {
	return types.PriceQuote{CurrentPrice: 100}, nil
}
func (f *fakeBroker) GetOHLCV(context.Context, string, string, int) ([]types.Candle, error) {
	return nil, nil
}
func (f *fakeBroker) BuyMarket(context.Context, string, int) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (f *fakeBroker) SellMarket(context.Context, string, int) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (f *fakeBroker) BuyLimit(context.Context, string, int, float64) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (f *fakeBroker) SellLimit(context.Context, string, int, float64) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}

type fixedSignalStrategy struct{}

func (fixedSignalStrategy) Evaluate(float64, []types.Candle, *types.Holding) types.Signal {
	return types.SignalHold
}
func (fixedSignalStrategy) LastReason() string { return "hold" }

type capturingPublisher struct {
	mu       sync.Mutex
	msgTypes []string
}

func (p *capturingPublisher) SendToUser(_ int64, msgType, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgTypes = append(p.msgTypes, msgType)
	return nil
}

func (p *capturingPublisher) seen(msgType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.msgTypes {
		if t == msgType {
			return true
		}
	}
	return false
}

func TestStartTransitionsToRunningAndEmitsEvent(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 1, UserID: 9, Status: types.SessionPending, StockCode: "005930"}
	pub := &capturingPublisher{}

	err := controlplane.Start(context.Background(), mgr, sess, fixedSignalStrategy{}, &fakeBroker{}, pub, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.StopSession(sess.ID)

	if sess.Status != types.SessionRunning {
		t.Fatalf("status = %v, want RUNNING", sess.Status)
	}
	if sess.StartedAt == nil {
		t.Fatal("expected StartedAt to be set")
	}
	if !pub.seen("session.started") {
		t.Fatal("expected a session.started event")
	}
}

func TestStartRejectsIllegalTransition(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 2, UserID: 9, Status: types.SessionStopped, StockCode: "005930"}
	pub := &capturingPublisher{}

	err := controlplane.Start(context.Background(), mgr, sess, fixedSignalStrategy{}, &fakeBroker{}, pub, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig())
	if err == nil {
		t.Fatal("expected an error starting from STOPPED")
	}
	if kind, ok := apierr.KindOf(err); !ok || kind != apierr.KindState {
		t.Fatalf("got kind %v, want STATE", kind)
	}
}

func TestStartAbortsOnConnectFailure(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 3, UserID: 9, Status: types.SessionPending, StockCode: "005930"}
	pub := &capturingPublisher{}

	err := controlplane.Start(context.Background(), mgr, sess, fixedSignalStrategy{}, &fakeBroker{connectErr: apierr.New(apierr.KindConnection, "broker down")}, pub, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig())
	if err == nil {
		t.Fatal("expected a connection error to abort Start")
	}
	if sess.Status != types.SessionPending {
		t.Fatalf("status = %v, want unchanged PENDING after failed start", sess.Status)
	}
	if mgr.IsActive(3) {
		t.Fatal("session should never become active after a failed connect")
	}
}

func TestStopTransitionsToStoppedAndEmitsEvent(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 4, UserID: 9, Status: types.SessionPending, StockCode: "005930"}
	pub := &capturingPublisher{}

	if err := controlplane.Start(context.Background(), mgr, sess, fixedSignalStrategy{}, &fakeBroker{}, pub, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := controlplane.Stop(mgr, sess, pub); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sess.Status != types.SessionStopped {
		t.Fatalf("status = %v, want STOPPED", sess.Status)
	}
	if sess.StoppedAt == nil {
		t.Fatal("expected StoppedAt to be set")
	}
	if !pub.seen("session.stopped") {
		t.Fatal("expected a session.stopped event")
	}
}

func TestPauseAndResumeRoundTrip(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 5, UserID: 9, Status: types.SessionPending, StockCode: "005930"}
	pub := &capturingPublisher{}

	if err := controlplane.Start(context.Background(), mgr, sess, fixedSignalStrategy{}, &fakeBroker{}, pub, types.DefaultMarketHoursConfig(), types.DefaultSessionConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.StopSession(sess.ID)

	if err := controlplane.Pause(mgr, sess); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if sess.Status != types.SessionPaused {
		t.Fatalf("status = %v, want PAUSED", sess.Status)
	}

	if err := controlplane.Resume(mgr, sess); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if sess.Status != types.SessionRunning {
		t.Fatalf("status = %v, want RUNNING", sess.Status)
	}
}

func TestPauseRejectsIllegalTransition(t *testing.T) {
	mgr := engine.NewManager(zap.NewNop())
	sess := &types.Session{ID: 6, UserID: 9, Status: types.SessionStopped, StockCode: "005930"}

	err := controlplane.Pause(mgr, sess)
	if err == nil {
		t.Fatal("expected an error pausing a STOPPED session")
	}
	if kind, ok := apierr.KindOf(err); !ok || kind != apierr.KindState {
		t.Fatalf("got kind %v, want STATE", kind)
	}
}
