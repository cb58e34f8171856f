package strategy

import (
	"fmt"
	"math"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// RSIStrategy buys when the Wilder-smoothed RSI falls to or below an
// oversold threshold and sells when it rises to or above an overbought
// threshold.
type RSIStrategy struct {
	period     int
	oversold   float64
	overbought float64
	reason     string
}

// NewRSIStrategy validates rsi_period, oversold, and overbought per
// spec.md §4.2.
func NewRSIStrategy(params map[string]any) (Strategy, error) {
	period, err := intParam(params, "rsi_period")
	if err != nil {
		return nil, err
	}
	oversold, err := floatParam(params, "oversold")
	if err != nil {
		return nil, err
	}
	overbought, err := floatParam(params, "overbought")
	if err != nil {
		return nil, err
	}
	s := &RSIStrategy{period: period, oversold: oversold, overbought: overbought}
	if err := s.ValidateParameters(); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateParameters enforces rsi_period >= 2 and oversold < overbought,
// both within (0, 100).
func (s *RSIStrategy) ValidateParameters() error {
	if s.period < 2 {
		return apierr.Config("rsi_period must be >= 2, got %d", s.period)
	}
	if s.oversold <= 0 || s.oversold >= 100 {
		return apierr.Config("oversold must be in (0, 100), got %v", s.oversold)
	}
	if s.overbought <= 0 || s.overbought >= 100 {
		return apierr.Config("overbought must be in (0, 100), got %v", s.overbought)
	}
	if s.oversold >= s.overbought {
		return apierr.Config("oversold (%v) must be < overbought (%v)", s.oversold, s.overbought)
	}
	return nil
}

// wilderRSI computes the Wilder-smoothed RSI series over a
// chronologically ordered (oldest-first) slice of closes. The first
// `period` entries are NaN; smoothing begins with a simple average of
// the first `period` gains/losses, then exponentially decays with
// weight 1/period thereafter, matching ta.momentum.RSIIndicator.
func wilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func (s *RSIStrategy) Evaluate(_ float64, candles []types.Candle, _ *types.Holding) types.Signal {
	if len(candles) < s.period+1 {
		s.reason = fmt.Sprintf("Insufficient data: need %d candles", s.period+1)
		return types.SignalHold
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[len(candles)-1-i] = c.Close
	}

	rsi := wilderRSI(closes, s.period)
	current := rsi[len(rsi)-1]

	if math.IsNaN(current) {
		s.reason = "RSI value not available"
		return types.SignalHold
	}

	switch {
	case current <= s.oversold:
		s.reason = fmt.Sprintf("RSI oversold: %.1f <= %v", current, s.oversold)
		return types.SignalBuy
	case current >= s.overbought:
		s.reason = fmt.Sprintf("RSI overbought: %.1f >= %v", current, s.overbought)
		return types.SignalSell
	default:
		s.reason = fmt.Sprintf("RSI neutral: %.1f", current)
		return types.SignalHold
	}
}

func (s *RSIStrategy) LastReason() string { return s.reason }

// RSIParameterSchema describes RSIStrategy's accepted keys.
func RSIParameterSchema() map[string]ParameterSpec {
	return map[string]ParameterSpec{
		"rsi_period": {
			Type:        "integer",
			Default:     14,
			Min:         2,
			Max:         50,
			Description: "RSI lookback period",
		},
		"oversold": {
			Type:        "number",
			Default:     30,
			Min:         10,
			Max:         50,
			Description: "buy when RSI falls to or below this value",
		},
		"overbought": {
			Type:        "number",
			Default:     70,
			Min:         50,
			Max:         90,
			Description: "sell when RSI rises to or above this value",
		},
	}
}
