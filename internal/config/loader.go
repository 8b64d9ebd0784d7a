package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if COHORT_CONFIG is set
//  3. env (prefix COHORT_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("COHORT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: COHORT_ADDR, COHORT_QUEUE_SIZE, ...
	// Map env keys like COHORT_QUEUE_SIZE -> queue_size (flat keys),
	// preserving underscores to match koanf tags on the struct. Nested
	// weights use a double underscore: COHORT_WEIGHTS__SPECIALTY.
	envProvider := env.Provider("COHORT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "cohort_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine must not start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MinGroupSize < 2 {
		return fmt.Errorf("%w: min_group_size %d, want >= 2", ErrInvalidConfig, c.MinGroupSize)
	}
	if c.MaxGroupSize < c.MinGroupSize {
		return fmt.Errorf("%w: max_group_size %d below min_group_size %d", ErrInvalidConfig, c.MaxGroupSize, c.MinGroupSize)
	}
	if c.AcceptanceThreshold < 0 || c.AcceptanceThreshold > 1 {
		return fmt.Errorf("%w: acceptance_threshold %v outside [0,1]", ErrInvalidConfig, c.AcceptanceThreshold)
	}
	if c.MaxAgeGap <= 0 {
		return fmt.Errorf("%w: max_age_gap %d, want > 0", ErrInvalidConfig, c.MaxAgeGap)
	}
	if c.CooldownWeeks < 0 {
		return fmt.Errorf("%w: cooldown_weeks %d, want >= 0", ErrInvalidConfig, c.CooldownWeeks)
	}
	if c.GroupTTLWeeks < 0 {
		return fmt.Errorf("%w: group_ttl_weeks %d, want >= 0", ErrInvalidConfig, c.GroupTTLWeeks)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size %d, want > 0", ErrInvalidConfig, c.QueueSize)
	}
	if c.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: run_timeout_seconds %d, want > 0", ErrInvalidConfig, c.RunTimeoutSeconds)
	}
	if c.ScheduleIntervalHours <= 0 {
		return fmt.Errorf("%w: schedule_interval_hours %d, want > 0", ErrInvalidConfig, c.ScheduleIntervalHours)
	}
	return nil
}
