// Package strategy provides the pure strategy contract and the bundled
// threshold, SMA-crossover, and RSI strategies (spec.md §4.2).
package strategy

import (
	"github.com/atlas-desktop/session-engine/pkg/types"
)

// ParameterSpec describes one accepted parameter key: its type, default,
// and valid range. It is the Go analogue of the source's class-level
// parameter_schema() classmethod.
type ParameterSpec struct {
	Type        string `json:"type"` // "integer", "number"
	Default     any    `json:"default"`
	Min         any    `json:"min,omitempty"`
	Max         any    `json:"max,omitempty"`
	Description string `json:"description"`
}

// Strategy is a pure evaluator: given the current price, an OHLCV
// series, and the session's current holding (if any), it emits a
// Signal and records a human-readable reason retrievable via
// LastReason. Two calls with identical inputs must produce identical
// outputs (spec.md §8, property 5).
type Strategy interface {
	// Evaluate is pure with respect to external I/O; its only side
	// effect is overwriting the reason returned by LastReason.
	Evaluate(currentPrice float64, candles []types.Candle, holding *types.Holding) types.Signal
	// LastReason returns the human-readable justification for the most
	// recent Evaluate call.
	LastReason() string
}

// StrategyInfo is one entry of the registry's AvailableStrategies listing.
type StrategyInfo struct {
	TypeName        string                   `json:"type_name"`
	DisplayName     string                   `json:"display_name"`
	Description     string                   `json:"description"`
	ParameterSchema map[string]ParameterSpec `json:"parameter_schema"`
}
