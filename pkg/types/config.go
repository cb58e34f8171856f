// Package types provides configuration types for the session engine.
package types

import "time"

// SessionConfig carries the per-session defaults from spec.md §6.
type SessionConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" json:"intervalSeconds"`
	OrderQuantity   int `mapstructure:"order_quantity" json:"orderQuantity"`
}

// DefaultSessionConfig returns the spec.md §6 defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		IntervalSeconds: 60,
		OrderQuantity:   1,
	}
}

// RateLimiterConfig carries the token-bucket parameters from spec.md §6.
type RateLimiterConfig struct {
	MaxTokens  float64 `mapstructure:"max_tokens" json:"maxTokens"`
	RefillRate float64 `mapstructure:"refill_rate" json:"refillRate"`
}

// DefaultRateLimiterConfig returns the spec.md §6 defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxTokens:  15,
		RefillRate: 15.0,
	}
}

// MarketHoursConfig carries the KST market-hours constants from spec.md §6.
type MarketHoursConfig struct {
	OpenHour    int `mapstructure:"open_hour" json:"openHour"`
	OpenMinute  int `mapstructure:"open_minute" json:"openMinute"`
	CloseHour   int `mapstructure:"close_hour" json:"closeHour"`
	CloseMinute int `mapstructure:"close_minute" json:"closeMinute"`
	// UTCOffsetHours records the KST offset. The market-hours gate does
	// not read it: it always uses a fixed UTC+9 zone and never the host
	// timezone (spec.md §9).
	UTCOffsetHours int `mapstructure:"utc_offset_hours" json:"utcOffsetHours"`
}

// DefaultMarketHoursConfig returns the spec.md §6 defaults: 09:00-15:30, UTC+9.
func DefaultMarketHoursConfig() MarketHoursConfig {
	return MarketHoursConfig{
		OpenHour:       9,
		OpenMinute:     0,
		CloseHour:      15,
		CloseMinute:    30,
		UTCOffsetHours: 9,
	}
}

// ServerConfig configures the control-plane HTTP/WebSocket server.
type ServerConfig struct {
	Host          string        `mapstructure:"host" json:"host"`
	Port          int           `mapstructure:"port" json:"port"`
	WebSocketPath string        `mapstructure:"websocket_path" json:"websocketPath"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" json:"readTimeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" json:"writeTimeout"`
	MetricsPort   int           `mapstructure:"metrics_port" json:"metricsPort"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		WebSocketPath: "/ws",
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		MetricsPort:   9090,
	}
}
