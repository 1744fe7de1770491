// Package config loads process-level settings for the tabula CLI from the
// environment. Every variable carries the TABULA_ prefix.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/tabula/internal/kernel"
)

// Prefix is prepended to every variable name.
const Prefix = "TABULA_"

// Config holds environment settings. Zero budgets keep the kernel defaults.
type Config struct {
	DBPath        string `env:"DB" envDefault:"tabula.db"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	SnapshotEvery int    `env:"SNAPSHOT_EVERY" envDefault:"16"`

	MaxEffectOps          int `env:"MAX_EFFECT_OPS"`
	MaxQueryResults       int `env:"MAX_QUERY_RESULTS"`
	MaxTriggerDepth       int `env:"MAX_TRIGGER_DEPTH"`
	MaxTemplates          int `env:"MAX_TEMPLATES"`
	MaxParamExpansions    int `env:"MAX_PARAM_EXPANSIONS"`
	MaxDecisionProbeSteps int `env:"MAX_DECISION_PROBE_STEPS"`
	MaxDeferredPredicates int `env:"MAX_DEFERRED_PREDICATES"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

func (c Config) validate() error {
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("%sSNAPSHOT_EVERY must not be negative, got %d", Prefix, c.SnapshotEvery)
	}
	for name, v := range map[string]int{
		"MAX_EFFECT_OPS":           c.MaxEffectOps,
		"MAX_QUERY_RESULTS":        c.MaxQueryResults,
		"MAX_TRIGGER_DEPTH":        c.MaxTriggerDepth,
		"MAX_TEMPLATES":            c.MaxTemplates,
		"MAX_PARAM_EXPANSIONS":     c.MaxParamExpansions,
		"MAX_DECISION_PROBE_STEPS": c.MaxDecisionProbeSteps,
		"MAX_DEFERRED_PREDICATES":  c.MaxDeferredPredicates,
	} {
		if v < 0 {
			return fmt.Errorf("%s%s must not be negative, got %d", Prefix, name, v)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err)
	}
	return l, nil
}

// KernelOptions maps the budgets onto kernel options.
func (c Config) KernelOptions() []kernel.Option {
	return []kernel.Option{kernel.WithOptions(kernel.Options{
		MaxEffectOps:          c.MaxEffectOps,
		MaxQueryResults:       c.MaxQueryResults,
		MaxTriggerDepth:       c.MaxTriggerDepth,
		MaxTemplates:          c.MaxTemplates,
		MaxParamExpansions:    c.MaxParamExpansions,
		MaxDecisionProbeSteps: c.MaxDecisionProbeSteps,
		MaxDeferredPredicates: c.MaxDeferredPredicates,
	})}
}
