package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StoreConfig holds storefront settings that operators tune without a
// redeploy. The backing file is watched and reloaded on change.
type StoreConfig struct {
	StoreName          string   `mapstructure:"store_name"`
	Currency           string   `mapstructure:"currency"`
	OperatorRecipients []string `mapstructure:"operator_recipients"`

	NotificationDelaySeconds int `mapstructure:"notification_delay_seconds"`

	ReviewRateLimit  int `mapstructure:"review_rate_limit"`
	ReviewRateWindow int `mapstructure:"review_rate_window_seconds"`
}

type StoreWatcher struct {
	mu  sync.RWMutex
	cfg StoreConfig
	v   *viper.Viper
	log *zap.Logger
}

func NewStoreWatcher(path string, log *zap.Logger) (*StoreWatcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("store_name", "Laguna")
	v.SetDefault("currency", "usd")
	v.SetDefault("notification_delay_seconds", 30)
	v.SetDefault("review_rate_limit", 5)
	v.SetDefault("review_rate_window_seconds", 3600)

	w := &StoreWatcher{v: v, log: log.Named("store_config")}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			w.log.Warn("store config not readable, using defaults", zap.Error(err))
		}
	}
	if err := w.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := w.reload(); err != nil {
			w.log.Error("store config reload failed", zap.Error(err))
			return
		}
		w.log.Info("store config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return w, nil
}

func (w *StoreWatcher) reload() error {
	var cfg StoreConfig
	if err := w.v.Unmarshal(&cfg); err != nil {
		return err
	}

	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	return nil
}

// Current returns a snapshot of the store configuration.
func (w *StoreWatcher) Current() StoreConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}
