package config

import (
	"time"

	"github.com/spf13/viper"
)

type APICfg struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

type RealtimeCfg struct {
	URL                   string `mapstructure:"url"`
	ReconnectAttempts     int    `mapstructure:"reconnect_attempts"`
	ReconnectDelaySeconds int    `mapstructure:"reconnect_delay_seconds"`
}

type SessionCfg struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type MetricsCfg struct {
	Addr string `mapstructure:"addr"` // empty disables the listener
}

type DevServerCfg struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      string `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type Config struct {
	Development bool         `mapstructure:"development"`
	API         APICfg       `mapstructure:"api"`
	Realtime    RealtimeCfg  `mapstructure:"realtime"`
	Session     SessionCfg   `mapstructure:"session"`
	Metrics     MetricsCfg   `mapstructure:"metrics"`
	DevServer   DevServerCfg `mapstructure:"dev_server"`
	// Derived
	APITimeout     time.Duration
	ReconnectDelay time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("IMOVE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.API.MaxIdleConns == 0 {
		cfg.API.MaxIdleConns = 10
	}
	if cfg.Realtime.ReconnectAttempts == 0 {
		cfg.Realtime.ReconnectAttempts = 5
	}
	if cfg.Realtime.ReconnectDelaySeconds == 0 {
		cfg.Realtime.ReconnectDelaySeconds = 2
	}
	if cfg.DevServer.Port == "" {
		cfg.DevServer.Port = "4000"
	}
	cfg.APITimeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	cfg.ReconnectDelay = time.Duration(cfg.Realtime.ReconnectDelaySeconds) * time.Second
	return &cfg, nil
}
