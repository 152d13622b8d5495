package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy holds business knobs that operators may change without a restart.
type Policy struct {
	StockOpname  StockOpnamePolicy  `mapstructure:"stockOpname"`
	StorageQuota StorageQuotaPolicy `mapstructure:"storageQuota"`
}

// StockOpnamePolicy configures the reconciliation calendar.
type StockOpnamePolicy struct {
	// Timezone is the IANA zone used to decide whether the opname date has elapsed.
	Timezone string `mapstructure:"timezone"`
}

// StorageQuotaPolicy configures defaults for new divisions.
type StorageQuotaPolicy struct {
	// DefaultMaxSize is applied to new divisions, in bytes. Zero means unlimited.
	DefaultMaxSize int64 `mapstructure:"defaultMaxSize"`
}

func DefaultPolicy() Policy {
	return Policy{
		StockOpname: StockOpnamePolicy{
			Timezone: "Asia/Jakarta",
		},
		StorageQuota: StorageQuotaPolicy{
			DefaultMaxSize: 0,
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (p StockOpnamePolicy) Location() *time.Location {
	name := strings.TrimSpace(p.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder wraps a fixed policy, mostly for tests and CLI runs.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

// NewPolicyHolder reads policy.yml and keeps it current as the file changes.
func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	if cfg.PolicyPath != "" {
		v.SetConfigFile(cfg.PolicyPath)
	} else {
		v.SetConfigName("policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/eoffice")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.stockOpname.timezone", defaults.StockOpname.Timezone)
	v.SetDefault("policy.storageQuota.defaultMaxSize", defaults.StorageQuota.DefaultMaxSize)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read policy: %w", err)
		}
		watch = false
	}

	var policy Policy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.StorageQuota.DefaultMaxSize < 0 {
		return errors.New("policy.storageQuota.defaultMaxSize cannot be negative")
	}
	if tz := strings.TrimSpace(p.StockOpname.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("policy.stockOpname.timezone: %w", err)
		}
	}
	return nil
}
