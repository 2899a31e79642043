package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds the billing knobs operators tune without a redeploy.
type BillingConfig struct {
	// WebhookToleranceSeconds bounds the age of a signed webhook timestamp.
	WebhookToleranceSeconds int `mapstructure:"webhookToleranceSeconds"`
	// FreeAccountCarLimit is the default limit for admin-granted free licenses.
	FreeAccountCarLimit int `mapstructure:"freeAccountCarLimit"`
	// AllowUnverifiedEvents admits synthetic unsigned events for integration
	// testing. Ignored entirely when the process runs in production.
	AllowUnverifiedEvents bool `mapstructure:"allowUnverifiedEvents"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		WebhookToleranceSeconds: 300,
		FreeAccountCarLimit:     10000,
		AllowUnverifiedEvents:   false,
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/carbase/config") // Volume-mounted config
	v.AddConfigPath("/etc/carbase")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("CARBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.webhookToleranceSeconds", defaults.WebhookToleranceSeconds)
	v.SetDefault("billing.freeAccountCarLimit", defaults.FreeAccountCarLimit)
	v.SetDefault("billing.allowUnverifiedEvents", defaults.AllowUnverifiedEvents)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config, for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Current() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.WebhookToleranceSeconds <= 0 {
		return errors.New("billing.webhookToleranceSeconds must be positive")
	}
	if cfg.FreeAccountCarLimit <= 0 {
		return errors.New("billing.freeAccountCarLimit must be positive")
	}
	return nil
}
