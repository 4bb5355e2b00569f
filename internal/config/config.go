// Package config loads the planning configuration carried through a
// planning pass. Configuration is resolved from defaults, an optional
// artplan.yaml file, and ARTPLAN_* environment variables, in that order.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete planning configuration. A planning pass carries
// one Config end-to-end; there is no global mutable configuration state.
type Config struct {
	Decomposition DecompositionConfig `mapstructure:"decomposition"`
	Dependencies  DependencyConfig    `mapstructure:"dependencies"`
	Allocation    AllocationConfig    `mapstructure:"allocation"`
	Optimization  OptimizationConfig  `mapstructure:"optimization"`
	Tracker       TrackerConfig       `mapstructure:"tracker"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Storage       StorageConfig       `mapstructure:"storage"`
}

// DecompositionConfig controls story splitting.
type DecompositionConfig struct {
	// MaxStoryPoints is the largest allocatable story size.
	MaxStoryPoints int `mapstructure:"max_story_points"`
	// MaxChildren is the most sub-items a single split may produce.
	MaxChildren int `mapstructure:"max_children"`
}

// DependencyConfig controls dependency detection.
type DependencyConfig struct {
	// MinConfidence drops candidate edges scored below this threshold.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// EnableSemantic turns on the LLM-backed detection pass. Requires an
	// Anthropic API key; the keyword and cue passes always run.
	EnableSemantic bool `mapstructure:"enable_semantic"`
	// AnthropicAPIKey and Model configure the LLM pass. The key is also
	// read from ANTHROPIC_API_KEY when unset here.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	Model           string `mapstructure:"model"`
}

// AllocationConfig controls capacity-aware bin packing.
type AllocationConfig struct {
	// MaxUtilization is the utilization ceiling per iteration (0-1).
	MaxUtilization float64 `mapstructure:"max_utilization"`
	// BufferFraction is reserved per iteration for unplanned work and is
	// never allocated.
	BufferFraction float64 `mapstructure:"buffer_fraction"`
}

// OptimizationConfig controls the readiness optimizer and the re-run loop.
type OptimizationConfig struct {
	// MaxPasses bounds the optimize → re-allocate loop.
	MaxPasses int `mapstructure:"max_passes"`
	// ReadinessThreshold triggers a below-threshold notification.
	ReadinessThreshold float64 `mapstructure:"readiness_threshold"`
	// TargetUtilizationLow/High define the healthy utilization band.
	TargetUtilizationLow  float64 `mapstructure:"target_utilization_low"`
	TargetUtilizationHigh float64 `mapstructure:"target_utilization_high"`
}

// TrackerConfig controls the work-tracking boundary client.
type TrackerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// RequestsPerSecond and Burst feed the client-side rate budget.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	// Retry policy for transient failures.
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NotifyConfig controls the notification sink.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig controls plan persistence.
type StorageConfig struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path"`
}

// setDefaults registers default values on the given viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("decomposition.max_story_points", 5)
	v.SetDefault("decomposition.max_children", 4)

	v.SetDefault("dependencies.min_confidence", 0.5)
	v.SetDefault("dependencies.enable_semantic", false)

	v.SetDefault("allocation.max_utilization", 0.90)
	v.SetDefault("allocation.buffer_fraction", 0.15)

	v.SetDefault("optimization.max_passes", 3)
	v.SetDefault("optimization.readiness_threshold", 0.6)
	v.SetDefault("optimization.target_utilization_low", 0.65)
	v.SetDefault("optimization.target_utilization_high", 0.90)

	v.SetDefault("tracker.base_url", "https://api.linear.app")
	v.SetDefault("tracker.requests_per_second", 5.0)
	v.SetDefault("tracker.burst", 10)
	v.SetDefault("tracker.max_retries", 3)
	v.SetDefault("tracker.initial_backoff", time.Second)
	v.SetDefault("tracker.max_backoff", 30*time.Second)
	v.SetDefault("tracker.request_timeout", 60*time.Second)

	v.SetDefault("storage.path", ".artplan/plans.db")
}

// Load reads configuration from the optional file path plus environment.
// Pass an empty path to use defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARTPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("artplan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.artplan")
		// Missing config file is fine; defaults and env apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or environment. Used by tests and as a library fallback.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}
