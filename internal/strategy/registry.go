package strategy

import (
	"sort"
	"sync"

	"github.com/atlas-desktop/session-engine/internal/apierr"
)

// factory constructs a Strategy from its raw parameter map, returning a
// KindConfig error if the parameters are invalid.
type factory func(params map[string]any) (Strategy, error)

type registryEntry struct {
	displayName string
	description string
	schema      map[string]ParameterSpec
	build       factory
}

// Registry is a process-wide table mapping strategy type name to
// constructor, matching the Python registry.get_strategy /
// get_available_strategies pair.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// NewRegistry builds a Registry pre-populated with the three bundled
// strategies.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]registryEntry)}
	r.register("threshold", "Threshold", "buy below a fixed price, sell above a higher fixed price", ThresholdParameterSchema(), NewThresholdStrategy)
	r.register("sma_crossover", "SMA Crossover", "buy on golden cross, sell on death cross of two moving averages", SMAParameterSchema(), NewSMACrossoverStrategy)
	r.register("rsi", "RSI", "buy when oversold, sell when overbought by Wilder-smoothed RSI", RSIParameterSchema(), NewRSIStrategy)
	return r
}

// Register adds or replaces a strategy type. Exported so callers
// embedding this engine as a library can add their own strategy types.
func (r *Registry) Register(typeName, displayName, description string, schema map[string]ParameterSpec, build factory) {
	r.register(typeName, displayName, description, schema, build)
}

func (r *Registry) register(typeName, displayName, description string, schema map[string]ParameterSpec, build factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[typeName] = registryEntry{
		displayName: displayName,
		description: description,
		schema:      schema,
		build:       build,
	}
}

// GetStrategy constructs a Strategy of the given type with the given
// parameters, or returns a KindConfig "Unknown strategy type" error.
func (r *Registry) GetStrategy(typeName string, params map[string]any) (Strategy, error) {
	r.mu.RLock()
	entry, ok := r.entries[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, apierr.Config("unknown strategy type: %s", typeName)
	}
	return entry.build(params)
}

// AvailableStrategies returns the registered strategy catalog, sorted
// by type name for deterministic output.
func (r *Registry) AvailableStrategies() []StrategyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StrategyInfo, 0, len(r.entries))
	for typeName, entry := range r.entries {
		out = append(out, StrategyInfo{
			TypeName:        typeName,
			DisplayName:     entry.displayName,
			Description:     entry.description,
			ParameterSchema: entry.schema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}
