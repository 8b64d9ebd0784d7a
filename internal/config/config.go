// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with coded defaults.
// - Load(ctx) layers an optional YAML file and COHORT_* env vars on top.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"runtime"
	"time"

	"github.com/perchsocial/cohort-engine/internal/domain/formation"
	"github.com/perchsocial/cohort-engine/internal/domain/history"
	"github.com/perchsocial/cohort-engine/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// AdminToken guards the manual trigger endpoint. Empty disables the
	// bearer-token check (local development only).
	AdminToken string `koanf:"admin_token"`

	// Weights sets the per-dimension scoring weights. Must sum to 1.0.
	Weights scoring.Weights `koanf:"weights"`

	// MaxAgeGap is the age difference, in years, at which age proximity
	// decays to zero.
	MaxAgeGap int `koanf:"max_age_gap"`

	// MinGroupSize and MaxGroupSize bound formed group sizes.
	MinGroupSize int `koanf:"min_group_size"`
	MaxGroupSize int `koanf:"max_group_size"`

	// AcceptanceThreshold is the minimum pair score considered for seeding.
	AcceptanceThreshold float64 `koanf:"acceptance_threshold"`

	// CooldownWeeks is how long a previously matched pair stays blocked.
	CooldownWeeks int `koanf:"cooldown_weeks"`

	// GroupTTLWeeks is how long membership in a formed group keeps a
	// member out of the eligible pool.
	GroupTTLWeeks int `koanf:"group_ttl_weeks"`

	// HistoryRetentionWeeks bounds how far back pair history is kept.
	HistoryRetentionWeeks int `koanf:"history_retention_weeks"`

	// WorkerCount sets the number of bucket formation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory bucket job queue.
	QueueSize int `koanf:"queue_size"`

	// RunTimeoutSeconds caps a single matching run end to end.
	RunTimeoutSeconds int `koanf:"run_timeout_seconds"`

	// ScheduleIntervalHours sets the automatic trigger cadence.
	ScheduleIntervalHours int `koanf:"schedule_interval_hours"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		Weights:               scoring.DefaultWeights(),
		MaxAgeGap:             10,
		MinGroupSize:          formation.DefaultMinGroupSize,
		MaxGroupSize:          formation.DefaultMaxGroupSize,
		AcceptanceThreshold:   formation.DefaultAcceptanceThreshold,
		CooldownWeeks:         history.DefaultCooldownWeeks,
		GroupTTLWeeks:         4,
		HistoryRetentionWeeks: 52,
		WorkerCount:           runtime.NumCPU(),
		QueueSize:             256,
		RunTimeoutSeconds:     180,
		ScheduleIntervalHours: 168, // weekly
	}
}

// RunTimeout returns the per-run budget as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// ScheduleInterval returns the automatic trigger cadence as a duration.
func (c *Config) ScheduleInterval() time.Duration {
	return time.Duration(c.ScheduleIntervalHours) * time.Hour
}
