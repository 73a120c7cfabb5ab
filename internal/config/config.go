// Package config provides configuration loading and validation for the
// collector binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	// RiotAPIKey is the credential sent as X-Riot-Token on every request.
	RiotAPIKey string

	// PostgresDSN is the connection string for the persistent store.
	PostgresDSN string

	// RedisDSN, when set, points the rate limiter at a shared Redis counter
	// store so several processes can split one quota. Empty means in-memory
	// counters local to this process.
	RedisDSN string

	// PoolMaxSize caps the Postgres connection pool.
	PoolMaxSize int

	// WorkersPerRegion and WorkersPerPlatform size the per-route worker
	// groups of the match and match-id stages.
	WorkersPerRegion   int
	WorkersPerPlatform int

	// RefillThreshold is the queue length below which the refiller claims
	// another batch of leases.
	RefillThreshold int

	// FactoryBatchSize is how many work items one claim leases.
	FactoryBatchSize int

	// QueueTimeout bounds worker idleness before it exits.
	QueueTimeout time.Duration

	// HTTPErrorTimeout is the retry sleep after transport-level failures.
	HTTPErrorTimeout time.Duration

	// ServerErrorTimeout is the retry sleep after an upstream 5xx.
	ServerErrorTimeout time.Duration

	// StrictServerErrors stops a shard's workers on upstream 5xx instead of
	// retrying.
	StrictServerErrors bool

	// LeaseDuration bounds orphan recovery: a claimed work item redelivers
	// this long after the claimer dies.
	LeaseDuration time.Duration

	// UserRequeryAge is how old a player's last match-id listing must be
	// before the player is eligible for another listing pass.
	UserRequeryAge time.Duration

	// StatusAddr is the listen address of the health/metrics/ws endpoint.
	// Empty disables the status server.
	StatusAddr string
}

// Load reads configuration from environment variables, applies defaults and
// validates required values.
func Load() (*Config, error) {
	cfg := &Config{
		RiotAPIKey:  strings.TrimSpace(os.Getenv("RIOT_API_KEY")),
		PostgresDSN: strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisDSN:    strings.TrimSpace(os.Getenv("REDIS_DSN")),
		StatusAddr:  strings.TrimSpace(os.Getenv("STATUS_ADDR")),
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}

	var err error
	if cfg.PoolMaxSize, err = intEnv("PG_POOL_MAX_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.WorkersPerRegion, err = intEnv("WORKER_PER_REGION", 1); err != nil {
		return nil, err
	}
	if cfg.WorkersPerPlatform, err = intEnv("WORKER_PER_PLATFORM", 1); err != nil {
		return nil, err
	}
	if cfg.RefillThreshold, err = intEnv("REFILL_QUEUE_THRESHOLD", 30); err != nil {
		return nil, err
	}
	if cfg.FactoryBatchSize, err = intEnv("JOB_FACTORY_BATCH_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.QueueTimeout, err = durationEnv("QUEUE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPErrorTimeout, err = durationEnv("HTTP_ERROR_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ServerErrorTimeout, err = durationEnv("SERVER_ERROR_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.LeaseDuration, err = durationEnv("LEASE_DURATION", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UserRequeryAge, err = durationEnv("USER_REQUERY_AGE", 100*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StrictServerErrors, err = boolEnv("STRICT_SERVER_ERRORS", false); err != nil {
		return nil, err
	}

	if cfg.PoolMaxSize <= 0 {
		return nil, fmt.Errorf("PG_POOL_MAX_SIZE must be > 0")
	}
	if cfg.FactoryBatchSize <= 0 {
		return nil, fmt.Errorf("JOB_FACTORY_BATCH_SIZE must be > 0")
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func boolEnv(name string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}
