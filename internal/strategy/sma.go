package strategy

import (
	"fmt"
	"math"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// SMACrossoverStrategy buys on a golden cross (short MA crosses above
// long MA) and sells on a death cross (short crosses below long).
type SMACrossoverStrategy struct {
	shortPeriod int
	longPeriod  int
	reason      string
}

// NewSMACrossoverStrategy validates short_period and long_period per
// spec.md §4.2.
func NewSMACrossoverStrategy(params map[string]any) (Strategy, error) {
	shortPeriod, err := intParam(params, "short_period")
	if err != nil {
		return nil, err
	}
	longPeriod, err := intParam(params, "long_period")
	if err != nil {
		return nil, err
	}
	s := &SMACrossoverStrategy{shortPeriod: shortPeriod, longPeriod: longPeriod}
	if err := s.ValidateParameters(); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateParameters enforces short_period >= 2 and long_period >
// short_period.
func (s *SMACrossoverStrategy) ValidateParameters() error {
	if s.shortPeriod < 2 {
		return apierr.Config("short_period must be >= 2, got %d", s.shortPeriod)
	}
	if s.longPeriod <= s.shortPeriod {
		return apierr.Config("long_period (%d) must be > short_period (%d)", s.longPeriod, s.shortPeriod)
	}
	return nil
}

// sma computes the simple moving average series over a chronologically
// ordered (oldest-first) slice of closes, NaN where fewer than window
// samples have accumulated.
func sma(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(window)
		}
	}
	return out
}

func (s *SMACrossoverStrategy) Evaluate(_ float64, candles []types.Candle, _ *types.Holding) types.Signal {
	if len(candles) < s.longPeriod+1 {
		s.reason = fmt.Sprintf("Insufficient data: need %d candles", s.longPeriod+1)
		return types.SignalHold
	}

	// candles arrive newest-first; the moving-average math wants
	// chronological (oldest-first) order so index -1 means "most recent".
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[len(candles)-1-i] = c.Close
	}

	shortMA := sma(closes, s.shortPeriod)
	longMA := sma(closes, s.longPeriod)

	n := len(closes)
	prevShort, prevLong := shortMA[n-2], longMA[n-2]
	currShort, currLong := shortMA[n-1], longMA[n-1]

	if math.IsNaN(prevShort) || math.IsNaN(prevLong) {
		s.reason = "MA values not available yet"
		return types.SignalHold
	}

	switch {
	case prevShort <= prevLong && currShort > currLong:
		s.reason = fmt.Sprintf("Golden cross: SMA%d(%.0f) > SMA%d(%.0f)", s.shortPeriod, currShort, s.longPeriod, currLong)
		return types.SignalBuy
	case prevShort >= prevLong && currShort < currLong:
		s.reason = fmt.Sprintf("Death cross: SMA%d(%.0f) < SMA%d(%.0f)", s.shortPeriod, currShort, s.longPeriod, currLong)
		return types.SignalSell
	default:
		s.reason = fmt.Sprintf("No crossover: SMA%d=%.0f, SMA%d=%.0f", s.shortPeriod, currShort, s.longPeriod, currLong)
		return types.SignalHold
	}
}

func (s *SMACrossoverStrategy) LastReason() string { return s.reason }

// SMAParameterSchema describes SMACrossoverStrategy's accepted keys.
func SMAParameterSchema() map[string]ParameterSpec {
	return map[string]ParameterSpec{
		"short_period": {
			Type:        "integer",
			Default:     5,
			Min:         2,
			Max:         50,
			Description: "short moving-average window",
		},
		"long_period": {
			Type:        "integer",
			Default:     20,
			Min:         5,
			Max:         200,
			Description: "long moving-average window",
		},
	}
}
