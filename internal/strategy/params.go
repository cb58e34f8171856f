package strategy

import "github.com/atlas-desktop/session-engine/internal/apierr"

// floatParam extracts a required numeric parameter, accepting both
// float64 and int since callers may build params from JSON (float64)
// or from Go literals (int) interchangeably.
func floatParam(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, apierr.Config("missing required parameter %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, apierr.Config("parameter %q must be a number, got %T", key, v)
	}
}

// intParam extracts a required integer-valued parameter.
func intParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, apierr.Config("missing required parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, apierr.Config("parameter %q must be an integer, got %T", key, v)
	}
}
