// Package config assembles runtime configuration. Environment variables are
// the primary source; an optional YAML file fills in anything the
// environment leaves unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `yaml:"addr"`
}

// Audit configures the audit trail storage.
type Audit struct {
	Dir            string `yaml:"dir"`
	RetentionYears int    `yaml:"retention_years"`
}

// Postgres configures the dispute store. Empty URL selects the in-memory
// store.
type Postgres struct {
	URL string `yaml:"url"`
}

// Redis configures the assessment store. Empty URL selects the in-memory
// store.
type Redis struct {
	URL           string   `yaml:"url"`
	AssessmentTTL Duration `yaml:"assessment_ttl"`
	PoolSize      int      `yaml:"pool_size"`
	MinIdleConns  int      `yaml:"min_idle_conns"`
	DialTimeout   Duration `yaml:"dial_timeout"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout"`
}

// Kafka configures the optional audit mirror. Empty brokers disable it.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Audit    Audit    `yaml:"audit"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Server: Server{Addr: envOr("VERITY_ADDR", ":8080")},
		Audit: Audit{
			Dir:            envOr("VERITY_AUDIT_DIR", "./audit_logs"),
			RetentionYears: 7,
		},
		Postgres: Postgres{URL: os.Getenv("VERITY_POSTGRES_URL")},
		Redis: Redis{
			URL:          os.Getenv("VERITY_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  Duration(5 * time.Second),
			ReadTimeout:  Duration(3 * time.Second),
			WriteTimeout: Duration(3 * time.Second),
		},
		Kafka: Kafka{Topic: envOr("VERITY_KAFKA_TOPIC", "verity.audit")},
	}
	if brokers := os.Getenv("VERITY_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitCSV(brokers)
	}
	return cfg
}

// Load builds a Config from the environment, then overlays values from the
// YAML file at path when it exists. Environment values win.
func Load(path string) (Config, error) {
	base := FromEnv()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	merge(&base, file)
	return base, nil
}

// merge fills base fields still at their env/default zero values from file.
func merge(base *Config, file Config) {
	if os.Getenv("VERITY_ADDR") == "" && file.Server.Addr != "" {
		base.Server.Addr = file.Server.Addr
	}
	if os.Getenv("VERITY_AUDIT_DIR") == "" && file.Audit.Dir != "" {
		base.Audit.Dir = file.Audit.Dir
	}
	if file.Audit.RetentionYears > 0 {
		base.Audit.RetentionYears = file.Audit.RetentionYears
	}
	if base.Postgres.URL == "" {
		base.Postgres.URL = file.Postgres.URL
	}
	if base.Redis.URL == "" {
		base.Redis.URL = file.Redis.URL
	}
	if file.Redis.AssessmentTTL > 0 {
		base.Redis.AssessmentTTL = file.Redis.AssessmentTTL
	}
	if len(base.Kafka.Brokers) == 0 {
		base.Kafka.Brokers = file.Kafka.Brokers
	}
	if os.Getenv("VERITY_KAFKA_TOPIC") == "" && file.Kafka.Topic != "" {
		base.Kafka.Topic = file.Kafka.Topic
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
