package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vsinha/procurement/pkg/application/services/orchestration"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// EnvPrefix prefixes every environment override, e.g. PROCURE_PLANNER_TIME_LIMIT
const EnvPrefix = "PROCURE"

type Config struct {
	Planner struct {
		Strategy           string        `mapstructure:"strategy"`
		ArrivalPolicy      string        `mapstructure:"arrival_policy"`
		TimeLimit          time.Duration `mapstructure:"time_limit"`
		NodeLimit          int           `mapstructure:"node_limit"`
		MaxIterations      int           `mapstructure:"max_iterations"`
		MIPGap             float64       `mapstructure:"mip_gap"`
		Tolerance          float64       `mapstructure:"tolerance"`
		SafetyStockPenalty float64       `mapstructure:"safety_stock_penalty"`
		BigM               float64       `mapstructure:"big_m"`
	} `mapstructure:"planner"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("planner.strategy", "exact")
	v.SetDefault("planner.arrival_policy", "reject")
	v.SetDefault("planner.time_limit", "30s")
	v.SetDefault("planner.node_limit", 0)
	v.SetDefault("planner.max_iterations", 50)
	v.SetDefault("planner.mip_gap", 0.0)
	v.SetDefault("planner.tolerance", 1e-6)
	v.SetDefault("planner.safety_stock_penalty", 0.0)
	v.SetDefault("planner.big_m", 0.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
}

// Load reads the YAML file at path, if any, and applies PROCURE_* overrides
// on top of the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects settings the planner cannot run with
func (c Config) Validate() error {
	if _, err := entities.ParseStrategy(c.Planner.Strategy); err != nil {
		return fmt.Errorf("planner.strategy: %w", err)
	}
	if _, err := entities.ParseArrivalPolicy(c.Planner.ArrivalPolicy); err != nil {
		return fmt.Errorf("planner.arrival_policy: %w", err)
	}
	switch {
	case c.Planner.TimeLimit < 0:
		return fmt.Errorf("planner.time_limit must not be negative, got %s", c.Planner.TimeLimit)
	case c.Planner.NodeLimit < 0:
		return fmt.Errorf("planner.node_limit must not be negative, got %d", c.Planner.NodeLimit)
	case c.Planner.MaxIterations < 0:
		return fmt.Errorf("planner.max_iterations must not be negative, got %d", c.Planner.MaxIterations)
	case c.Planner.MIPGap < 0 || c.Planner.MIPGap >= 1:
		return fmt.Errorf("planner.mip_gap must lie in [0, 1), got %g", c.Planner.MIPGap)
	case c.Planner.SafetyStockPenalty < 0:
		return fmt.Errorf("planner.safety_stock_penalty must not be negative, got %g", c.Planner.SafetyStockPenalty)
	case c.Planner.BigM < 0:
		return fmt.Errorf("planner.big_m must not be negative, got %g", c.Planner.BigM)
	}
	return nil
}

// Strategy returns the configured default strategy
func (c Config) Strategy() entities.Strategy {
	strategy, _ := entities.ParseStrategy(c.Planner.Strategy)
	return strategy
}

// ToPlannerConfig converts the planner section for the orchestration layer
func (c Config) ToPlannerConfig() orchestration.PlannerConfig {
	policy, _ := entities.ParseArrivalPolicy(c.Planner.ArrivalPolicy)
	return orchestration.PlannerConfig{
		ArrivalPolicy: policy,
		Limits: solver.Limits{
			TimeLimit:     c.Planner.TimeLimit,
			NodeLimit:     c.Planner.NodeLimit,
			MaxIterations: c.Planner.MaxIterations,
			Gap:           c.Planner.MIPGap,
			Tolerance:     c.Planner.Tolerance,
		},
		SafetyStockPenalty: c.Planner.SafetyStockPenalty,
		BigM:               c.Planner.BigM,
	}
}
