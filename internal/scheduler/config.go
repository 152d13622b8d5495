package scheduler

import (
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
)

const (
	JobQuotaReconcile = "quota_reconcile"
	JobStockVerify    = "stock_verify"
)

// Config controls maintenance intervals and which jobs run.
type Config struct {
	// Enabled starts the background loop with the app; RunOnce works either way.
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// EnabledJobs empty means every job runs.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Maintenance.Enabled,
		RunInterval: time.Duration(cfg.Maintenance.IntervalSec) * time.Second,
		EnabledJobs: cfg.Maintenance.Jobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
