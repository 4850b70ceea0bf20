// Package config loads and validates timerboard configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server         ServerConfig           `mapstructure:"server"`
	Auth           AuthConfig             `mapstructure:"auth"`
	Engine         EngineConfig           `mapstructure:"engine"`
	Display        DisplayConfig          `mapstructure:"display"`
	Logging        LoggingConfig          `mapstructure:"logging"`
	StandardTimers map[string]TimerConfig `mapstructure:"standard_timers"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// EngineConfig governs cadence selection and presentation defaults.
type EngineConfig struct {
	FineCadenceSeconds   int  `mapstructure:"fine_cadence_seconds"`
	CoarseCadenceMinutes int  `mapstructure:"coarse_cadence_minutes"`
	AdaptiveThresholdHrs int  `mapstructure:"adaptive_threshold_hours"`
	StartApproachMinutes int  `mapstructure:"start_approach_minutes"`
	HideStartPercentage  bool `mapstructure:"hide_start_percentage"`
}

// DisplayConfig controls hub buffering and sink flushing.
type DisplayConfig struct {
	BufferSize         int `mapstructure:"buffer_size"`
	MaxBatchStates     int `mapstructure:"max_batch_states"`
	MaxBatchWaitMs     int `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutSeconds int `mapstructure:"sink_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TimerConfig declares a timer created at startup. Start and End are
// RFC 3339; an empty End means unbounded. CadenceSeconds, when positive,
// pins the timer to a fixed cadence instead of adaptive selection.
type TimerConfig struct {
	Start          string `mapstructure:"start"`
	End            string `mapstructure:"end"`
	OverdueAllowed bool   `mapstructure:"overdue_allowed"`
	CadenceSeconds int    `mapstructure:"cadence_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TIMERBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("engine.fine_cadence_seconds", 1)
	v.SetDefault("engine.coarse_cadence_minutes", 5)
	v.SetDefault("engine.adaptive_threshold_hours", 24)
	v.SetDefault("engine.start_approach_minutes", 60)
	v.SetDefault("engine.hide_start_percentage", false)
	v.SetDefault("display.buffer_size", 1024)
	v.SetDefault("display.max_batch_states", 256)
	v.SetDefault("display.max_batch_wait_ms", 250)
	v.SetDefault("display.sink_timeout_seconds", 5)
	v.SetDefault("logging.development", true)
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.enabled requires auth.api_key")
	}
	if c.Engine.FineCadenceSeconds <= 0 {
		return fmt.Errorf("engine.fine_cadence_seconds must be positive")
	}
	if c.Engine.CoarseCadenceMinutes <= 0 {
		return fmt.Errorf("engine.coarse_cadence_minutes must be positive")
	}
	if c.Engine.AdaptiveThresholdHrs <= 0 {
		return fmt.Errorf("engine.adaptive_threshold_hours must be positive")
	}
	if c.Engine.StartApproachMinutes <= 0 {
		return fmt.Errorf("engine.start_approach_minutes must be positive")
	}
	for name, tc := range c.StandardTimers {
		if tc.Start == "" {
			return fmt.Errorf("standard_timers.%s: start is required", name)
		}
		if tc.CadenceSeconds < 0 {
			return fmt.Errorf("standard_timers.%s: cadence_seconds must be >= 0", name)
		}
	}
	return nil
}

// FineCadence returns the configured fine cadence as a duration.
func (c EngineConfig) FineCadence() time.Duration {
	return time.Duration(c.FineCadenceSeconds) * time.Second
}

// CoarseCadence returns the configured coarse cadence as a duration.
func (c EngineConfig) CoarseCadence() time.Duration {
	return time.Duration(c.CoarseCadenceMinutes) * time.Minute
}

// AdaptiveThreshold returns the configured adaptive threshold as a duration.
func (c EngineConfig) AdaptiveThreshold() time.Duration {
	return time.Duration(c.AdaptiveThresholdHrs) * time.Hour
}

// StartApproachWindow returns the CountdownToStart scaling window.
func (c EngineConfig) StartApproachWindow() time.Duration {
	return time.Duration(c.StartApproachMinutes) * time.Minute
}

// MaxBatchWait returns the hub flush wait as a duration.
func (c DisplayConfig) MaxBatchWait() time.Duration {
	return time.Duration(c.MaxBatchWaitMs) * time.Millisecond
}

// SinkTimeout returns the per-sink flush timeout as a duration.
func (c DisplayConfig) SinkTimeout() time.Duration {
	return time.Duration(c.SinkTimeoutSeconds) * time.Second
}
