// Package config loads the session engine's runtime configuration via
// viper: environment variables, an optional config file, and the
// defaults in pkg/types/config.go, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	Server      types.ServerConfig
	Session     types.SessionConfig
	RateLimiter types.RateLimiterConfig
	MarketHours types.MarketHoursConfig

	// Broker credentials, read from the config file or environment like
	// every other key; encryption-at-rest and secret storage are out of
	// scope.
	BrokerAppKey        string
	BrokerAppSecret     string
	BrokerAccountNo     string
	BrokerAccountSuffix string
	BrokerEnvironment   string
	BrokerHTSID         string
}

// Load reads configuration from an optional file at path (skipped if
// path is empty or not found) and from SESSIONENGINE_-prefixed
// environment variables, layered over pkg/types' documented defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SESSIONENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		Server: types.ServerConfig{
			Host:          v.GetString("server.host"),
			Port:          v.GetInt("server.port"),
			WebSocketPath: v.GetString("server.websocket_path"),
			ReadTimeout:   v.GetDuration("server.read_timeout"),
			WriteTimeout:  v.GetDuration("server.write_timeout"),
			MetricsPort:   v.GetInt("server.metrics_port"),
		},
		Session: types.SessionConfig{
			IntervalSeconds: v.GetInt("session.interval_seconds"),
			OrderQuantity:   v.GetInt("session.order_quantity"),
		},
		RateLimiter: types.RateLimiterConfig{
			MaxTokens:  v.GetFloat64("rate_limiter.max_tokens"),
			RefillRate: v.GetFloat64("rate_limiter.refill_rate"),
		},
		MarketHours: types.MarketHoursConfig{
			OpenHour:       v.GetInt("market_hours.open_hour"),
			OpenMinute:     v.GetInt("market_hours.open_minute"),
			CloseHour:      v.GetInt("market_hours.close_hour"),
			CloseMinute:    v.GetInt("market_hours.close_minute"),
			UTCOffsetHours: v.GetInt("market_hours.utc_offset_hours"),
		},
		BrokerAppKey:        v.GetString("broker.app_key"),
		BrokerAppSecret:     v.GetString("broker.app_secret"),
		BrokerAccountNo:     v.GetString("broker.account_no"),
		BrokerAccountSuffix: v.GetString("broker.account_suffix"),
		BrokerEnvironment:   v.GetString("broker.environment"),
		BrokerHTSID:         v.GetString("broker.hts_id"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	server := types.DefaultServerConfig()
	v.SetDefault("server.host", server.Host)
	v.SetDefault("server.port", server.Port)
	v.SetDefault("server.websocket_path", server.WebSocketPath)
	v.SetDefault("server.read_timeout", server.ReadTimeout)
	v.SetDefault("server.write_timeout", server.WriteTimeout)
	v.SetDefault("server.metrics_port", server.MetricsPort)

	session := types.DefaultSessionConfig()
	v.SetDefault("session.interval_seconds", session.IntervalSeconds)
	v.SetDefault("session.order_quantity", session.OrderQuantity)

	rateLimiter := types.DefaultRateLimiterConfig()
	v.SetDefault("rate_limiter.max_tokens", rateLimiter.MaxTokens)
	v.SetDefault("rate_limiter.refill_rate", rateLimiter.RefillRate)

	marketHours := types.DefaultMarketHoursConfig()
	v.SetDefault("market_hours.open_hour", marketHours.OpenHour)
	v.SetDefault("market_hours.open_minute", marketHours.OpenMinute)
	v.SetDefault("market_hours.close_hour", marketHours.CloseHour)
	v.SetDefault("market_hours.close_minute", marketHours.CloseMinute)
	v.SetDefault("market_hours.utc_offset_hours", marketHours.UTCOffsetHours)

	v.SetDefault("broker.environment", "vps")
}
