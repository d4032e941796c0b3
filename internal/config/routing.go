package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RoutingConfig controls how inbound reply text is routed before NLU kicks in.
type RoutingConfig struct {
	ConfirmKeywords    []string `mapstructure:"confirmKeywords"`
	RescheduleKeywords []string `mapstructure:"rescheduleKeywords"`
	DeclineKeywords    []string `mapstructure:"declineKeywords"`
}

func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		ConfirmKeywords:    []string{"yes", "y", "confirm", "ok"},
		RescheduleKeywords: []string{"resched", "reschedule"},
		DeclineKeywords:    []string{"no", "n"},
	}
}

// RoutingConfigHolder serves the current routing config and hot-reloads it
// when the underlying file changes.
type RoutingConfigHolder struct {
	current atomic.Value // holds RoutingConfig
}

func NewRoutingConfigHolder() (*RoutingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("routing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bookline/config")
	v.AddConfigPath("/etc/bookline")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultRoutingConfig()
		v.SetDefault("routing.confirmKeywords", defaults.ConfirmKeywords)
		v.SetDefault("routing.rescheduleKeywords", defaults.RescheduleKeywords)
		v.SetDefault("routing.declineKeywords", defaults.DeclineKeywords)
	}

	var cfg RoutingConfig
	if err := v.UnmarshalKey("routing", &cfg); err != nil {
		return nil, err
	}
	if err := validateRoutingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RoutingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RoutingConfig
		if err := v.UnmarshalKey("routing", &updated); err != nil {
			log.Printf("[routing-config] reload failed: %v", err)
			return
		}
		if err := validateRoutingConfig(updated); err != nil {
			log.Printf("[routing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[routing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RoutingConfigHolder) Get() RoutingConfig {
	return h.current.Load().(RoutingConfig)
}

func validateRoutingConfig(cfg RoutingConfig) error {
	if len(cfg.ConfirmKeywords) == 0 {
		return errors.New("routing.confirmKeywords cannot be empty")
	}
	if len(cfg.RescheduleKeywords) == 0 {
		return errors.New("routing.rescheduleKeywords cannot be empty")
	}
	return nil
}
