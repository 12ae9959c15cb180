// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// VoteWeights maps vote type names to their weights.
	VoteWeights map[string]int64 `koanf:"vote_weights"`

	// BountyWeight is the one-time evidence contribution bonus.
	BountyWeight int64 `koanf:"bounty_weight"`

	// FundingThreshold is the weighted score at which a record becomes
	// fundable.
	FundingThreshold int64 `koanf:"funding_threshold"`

	// TrendingThreshold is the scans-per-window count at which a record
	// is considered trending.
	TrendingThreshold int `koanf:"trending_threshold"`

	// VelocityWindowHours sets the trailing scan-velocity window.
	VelocityWindowHours int `koanf:"velocity_window_hours"`

	// MilestoneQueueSize bounds the in-memory milestone queue.
	MilestoneQueueSize int `koanf:"milestone_queue_size"`

	// WorkerCount sets the number of milestone notification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the vote ledger.
	ShardCount int `koanf:"shard_count"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel: "info",
		Addr:     ":9080",
		VoteWeights: map[string]int64{
			"search":      1,
			"scan":        5,
			"member_scan": 20,
		},
		BountyWeight:        10,
		FundingThreshold:    500,
		TrendingThreshold:   10,
		VelocityWindowHours: 24,
		MilestoneQueueSize:  10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          500_000,
		ShardCount:          8,
	}
	return c
}
