package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LimitsConfig holds operational guardrails for wallet movement. Values are
// plain floats in the file and converted to decimals at the boundary.
type LimitsConfig struct {
	MinTransferAmount float64 `mapstructure:"minTransferAmount"`
	MaxTransferAmount float64 `mapstructure:"maxTransferAmount"`
	MaxAdjustAmount   float64 `mapstructure:"maxAdjustAmount"`
}

func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MinTransferAmount: 1,
		MaxTransferAmount: 500_000,
		MaxAdjustAmount:   100_000,
	}
}

func (c LimitsConfig) MinTransfer() decimal.Decimal {
	return decimal.NewFromFloat(c.MinTransferAmount)
}

func (c LimitsConfig) MaxTransfer() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTransferAmount)
}

func (c LimitsConfig) MaxAdjust() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxAdjustAmount)
}

// LimitsHolder exposes the current limits and hot-reloads them when the
// mounted config file changes.
type LimitsHolder struct {
	current atomic.Value // holds LimitsConfig
}

func NewLimitsHolder() (*LimitsHolder, error) {
	v := viper.New()

	v.SetConfigName("settlo")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/settlo/config")
	v.AddConfigPath("/etc/settlo")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SETTLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultLimitsConfig()
		v.SetDefault("limits.minTransferAmount", defaults.MinTransferAmount)
		v.SetDefault("limits.maxTransferAmount", defaults.MaxTransferAmount)
		v.SetDefault("limits.maxAdjustAmount", defaults.MaxAdjustAmount)
	}

	var cfg LimitsConfig
	if err := v.UnmarshalKey("limits", &cfg); err != nil {
		return nil, err
	}
	if err := validateLimitsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LimitsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LimitsConfig
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Printf("[limits-config] reload failed: %v", err)
			return
		}
		if err := validateLimitsConfig(updated); err != nil {
			log.Printf("[limits-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[limits-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticLimitsHolder pins the limits to a fixed value with no file watching.
func StaticLimitsHolder(cfg LimitsConfig) *LimitsHolder {
	holder := &LimitsHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *LimitsHolder) Get() LimitsConfig {
	return h.current.Load().(LimitsConfig)
}

func validateLimitsConfig(cfg LimitsConfig) error {
	if cfg.MaxTransferAmount <= 0 {
		return errors.New("limits.maxTransferAmount must be positive")
	}
	if cfg.MinTransferAmount < 0 || cfg.MinTransferAmount >= cfg.MaxTransferAmount {
		return errors.New("limits.minTransferAmount out of range")
	}
	if cfg.MaxAdjustAmount <= 0 {
		return errors.New("limits.maxAdjustAmount must be positive")
	}
	return nil
}
