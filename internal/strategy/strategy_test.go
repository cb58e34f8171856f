package strategy_test

import (
	"strings"
	"testing"

	"github.com/atlas-desktop/session-engine/internal/strategy"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// newestFirstCandles builds a candle slice from chronologically ordered
// (oldest-first) closes, reversed to match the broker contract's
// newest-first ordering (spec.md §4.4).
func newestFirstCandles(chronologicalCloses []float64) []types.Candle {
	candles := make([]types.Candle, len(chronologicalCloses))
	for i, c := range chronologicalCloses {
		candles[len(chronologicalCloses)-1-i] = types.Candle{Close: c}
	}
	return candles
}

func TestThresholdBuy(t *testing.T) {
	s, err := strategy.NewThresholdStrategy(map[string]any{"buy_price": 50000.0, "sell_price": 60000.0})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	got := s.Evaluate(49000, nil, nil)
	if got != types.SignalBuy {
		t.Fatalf("got %v, want BUY", got)
	}
	if !strings.Contains(s.LastReason(), "49000") {
		t.Fatalf("reason %q does not mention price", s.LastReason())
	}
}

func TestThresholdSell(t *testing.T) {
	s, _ := strategy.NewThresholdStrategy(map[string]any{"buy_price": 50000.0, "sell_price": 60000.0})
	if got := s.Evaluate(61000, nil, nil); got != types.SignalSell {
		t.Fatalf("got %v, want SELL", got)
	}
}

func TestThresholdHold(t *testing.T) {
	s, _ := strategy.NewThresholdStrategy(map[string]any{"buy_price": 50000.0, "sell_price": 60000.0})
	if got := s.Evaluate(55000, nil, nil); got != types.SignalHold {
		t.Fatalf("got %v, want HOLD", got)
	}
}

func TestThresholdConfigRejection(t *testing.T) {
	_, err := strategy.NewThresholdStrategy(map[string]any{"buy_price": 60000.0, "sell_price": 50000.0})
	if err == nil {
		t.Fatal("expected a CONFIG error when buy_price >= sell_price")
	}
}

func TestSMAInsufficientData(t *testing.T) {
	s, err := strategy.NewSMACrossoverStrategy(map[string]any{"short_period": 5, "long_period": 20})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}
	got := s.Evaluate(100, newestFirstCandles(closes), nil)
	if got != types.SignalHold {
		t.Fatalf("got %v, want HOLD", got)
	}
	if !strings.HasPrefix(s.LastReason(), "Insufficient data") {
		t.Fatalf("reason %q does not start with 'Insufficient data'", s.LastReason())
	}
}

func TestSMAGoldenCross(t *testing.T) {
	s, err := strategy.NewSMACrossoverStrategy(map[string]any{"short_period": 5, "long_period": 20})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	closes := make([]float64, 0, 30)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 95, 96, 97, 98, 99, 100, 105, 110, 115, 120)

	got := s.Evaluate(120, newestFirstCandles(closes), nil)
	if got != types.SignalBuy {
		t.Fatalf("got %v, want BUY (golden cross), reason=%q", got, s.LastReason())
	}
}

func TestRSIOversoldNeverSells(t *testing.T) {
	s, err := strategy.NewRSIStrategy(map[string]any{"rsi_period": 14, "oversold": 30.0, "overbought": 70.0})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - 2*float64(i)
	}
	got := s.Evaluate(closes[len(closes)-1], newestFirstCandles(closes), nil)
	if got == types.SignalSell {
		t.Fatalf("got SELL on a monotonically falling series, want BUY or HOLD (reason=%q)", s.LastReason())
	}
}

func TestRSIConfigRejection(t *testing.T) {
	_, err := strategy.NewRSIStrategy(map[string]any{"rsi_period": 14, "oversold": 70.0, "overbought": 30.0})
	if err == nil {
		t.Fatal("expected a CONFIG error when oversold >= overbought")
	}
}

func TestRegistryUnknownType(t *testing.T) {
	r := strategy.NewRegistry()
	_, err := r.GetStrategy("not_a_real_strategy", nil)
	if err == nil {
		t.Fatal("expected an error for an unknown strategy type")
	}
}

func TestRegistryAvailableStrategies(t *testing.T) {
	r := strategy.NewRegistry()
	list := r.AvailableStrategies()
	if len(list) != 3 {
		t.Fatalf("got %d strategies, want 3", len(list))
	}
	seen := map[string]bool{}
	for _, info := range list {
		seen[info.TypeName] = true
	}
	for _, want := range []string{"threshold", "sma_crossover", "rsi"} {
		if !seen[want] {
			t.Fatalf("missing strategy type %q in catalog", want)
		}
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := strategy.NewRegistry()
	s, err := r.GetStrategy("threshold", map[string]any{"buy_price": 100.0, "sell_price": 200.0})
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if got := s.Evaluate(50, nil, nil); got != types.SignalBuy {
		t.Fatalf("got %v, want BUY", got)
	}
}
