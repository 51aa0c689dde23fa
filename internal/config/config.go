package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Client-side knobs.
	ServerURL        string        `mapstructure:"server_url"`
	SyncMargin       float64       `mapstructure:"sync_margin"`
	SeekPollInterval time.Duration `mapstructure:"seek_poll_interval"`
	URLPollInterval  time.Duration `mapstructure:"url_poll_interval"`
	SendBuffer       int           `mapstructure:"send_buffer"`

	// Reaction flood control on the coordinator.
	ReactionLimit  int           `mapstructure:"reaction_limit"`
	ReactionWindow time.Duration `mapstructure:"reaction_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("sync_margin", 1.0)
	v.SetDefault("seek_poll_interval", "500ms")
	v.SetDefault("url_poll_interval", "1s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("reaction_limit", 5)
	v.SetDefault("reaction_window", "10s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
