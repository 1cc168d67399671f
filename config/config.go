// Package config loads the feed driving process's (cmd/feed)
// configuration from flags, environment variables, and an optional
// YAML file, layered through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full layered configuration for a running process.
type Config struct {
	Engine struct {
		Capacity       int `mapstructure:"capacity"`
		MaxPriceLevels int `mapstructure:"max_price_levels"`
		Debug          bool
	} `mapstructure:"engine"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Kafka struct {
		BrokerAddr string `mapstructure:"broker_addr"`
		Topic      string `mapstructure:"topic"`
	} `mapstructure:"kafka"`
}

// Load builds a Config from, in increasing priority: built-in
// defaults, an optional YAML file (-config/LIMITBOOK_CONFIG), and
// environment variables prefixed LIMITBOOK_ or matching flags. flags
// may be nil for callers that don't define their own flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("engine.capacity", 100000)
	v.SetDefault("engine.max_price_levels", 4096)
	v.SetDefault("engine.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.broker_addr", "localhost:9092")
	v.SetDefault("kafka.topic", "limitbook.trades")

	v.SetEnvPrefix("limitbook")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
