package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Redis struct {
		Addr           string `mapstructure:"addr"`
		ListingTTLSecs int    `mapstructure:"listing_ttl_seconds"`
	} `mapstructure:"redis"`

	Kafka struct {
		Brokers    []string `mapstructure:"brokers"`
		AuditTopic string   `mapstructure:"audit_topic"`
	} `mapstructure:"kafka"`

	Platform struct {
		GraphBaseURL string `mapstructure:"graph_base_url"`
		PageLimit    int    `mapstructure:"page_limit"`
	} `mapstructure:"platform"`

	Worker struct {
		IntervalMinutes int `mapstructure:"interval_minutes"`
		LockTTLMinutes  int `mapstructure:"lock_ttl_minutes"`
	} `mapstructure:"worker"`
}

func Load() Config {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	Validate(&cfg)
	return cfg
}

// Validate applies defaults for anything the file/env left unset.
func Validate(c *Config) {
	if c.Server.Addr == "" { c.Server.Addr = ":8080" }
	if c.Postgres.Port == 0 { c.Postgres.Port = 5432 }
	if c.Postgres.SSLMode == "" { c.Postgres.SSLMode = "disable" }
	if c.Postgres.MaxOpenConns == 0 { c.Postgres.MaxOpenConns = 10 }
	if c.Postgres.MaxIdleConns == 0 { c.Postgres.MaxIdleConns = 10 }
	if c.Redis.ListingTTLSecs <= 0 { c.Redis.ListingTTLSecs = 60 }
	if c.Platform.GraphBaseURL == "" { c.Platform.GraphBaseURL = "https://graph.facebook.com/v20.0" }
	if c.Platform.PageLimit <= 0 { c.Platform.PageLimit = 200 }
	if c.Worker.IntervalMinutes <= 0 { c.Worker.IntervalMinutes = 60 }
	if c.Worker.LockTTLMinutes <= 0 { c.Worker.LockTTLMinutes = 10 }
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) WorkerInterval() time.Duration {
	return time.Duration(c.Worker.IntervalMinutes) * time.Minute
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.Worker.LockTTLMinutes) * time.Minute
}

func (c Config) ListingTTL() time.Duration {
	return time.Duration(c.Redis.ListingTTLSecs) * time.Second
}
