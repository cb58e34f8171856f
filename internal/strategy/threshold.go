package strategy

import (
	"fmt"

	"github.com/atlas-desktop/session-engine/internal/apierr"
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// ThresholdStrategy buys at or below a fixed price and sells at or above
// a higher fixed price. It ignores OHLCV history and holdings entirely.
type ThresholdStrategy struct {
	buyPrice  float64
	sellPrice float64
	reason    string
}

// NewThresholdStrategy validates buyPrice and sellPrice per spec.md §4.2
// and constructs a ThresholdStrategy, or returns a KindConfig error.
func NewThresholdStrategy(params map[string]any) (Strategy, error) {
	buyPrice, err := floatParam(params, "buy_price")
	if err != nil {
		return nil, err
	}
	sellPrice, err := floatParam(params, "sell_price")
	if err != nil {
		return nil, err
	}
	s := &ThresholdStrategy{buyPrice: buyPrice, sellPrice: sellPrice}
	if err := s.ValidateParameters(); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateParameters enforces buy_price > 0, sell_price > 0,
// buy_price < sell_price.
func (s *ThresholdStrategy) ValidateParameters() error {
	if s.buyPrice <= 0 {
		return apierr.Config("buy_price must be > 0, got %v", s.buyPrice)
	}
	if s.sellPrice <= 0 {
		return apierr.Config("sell_price must be > 0, got %v", s.sellPrice)
	}
	if s.buyPrice >= s.sellPrice {
		return apierr.Config("buy_price (%v) must be < sell_price (%v)", s.buyPrice, s.sellPrice)
	}
	return nil
}

func (s *ThresholdStrategy) Evaluate(currentPrice float64, _ []types.Candle, _ *types.Holding) types.Signal {
	switch {
	case currentPrice <= s.buyPrice:
		s.reason = fmt.Sprintf("price %.2f <= buy threshold %.2f", currentPrice, s.buyPrice)
		return types.SignalBuy
	case currentPrice >= s.sellPrice:
		s.reason = fmt.Sprintf("price %.2f >= sell threshold %.2f", currentPrice, s.sellPrice)
		return types.SignalSell
	default:
		s.reason = fmt.Sprintf("price %.2f between thresholds [%.2f, %.2f]", currentPrice, s.buyPrice, s.sellPrice)
		return types.SignalHold
	}
}

func (s *ThresholdStrategy) LastReason() string { return s.reason }

// ThresholdParameterSchema describes ThresholdStrategy's accepted keys.
func ThresholdParameterSchema() map[string]ParameterSpec {
	return map[string]ParameterSpec{
		"buy_price": {
			Type:        "number",
			Default:     nil,
			Min:         0.0,
			Description: "buy when current price falls to or below this value",
		},
		"sell_price": {
			Type:        "number",
			Default:     nil,
			Min:         0.0,
			Description: "sell when current price rises to or above this value",
		},
	}
}
