package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Room struct {
		Timezone   string  `yaml:"timezone"`
		SendBuffer int     `yaml:"send_buffer"`
		RateLimit  float64 `yaml:"rate_limit"`
		RateBurst  int     `yaml:"rate_burst"`
		Fixtures   string  `yaml:"fixtures"`
	} `yaml:"room"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves the timezone used to stamp outbound frames. Unknown or
// empty names fall back to UTC.
func (c Config) Location() *time.Location {
	if c.Room.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Room.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IntOr returns v when positive, otherwise fallback.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// FloatOr returns v when positive, otherwise fallback.
func FloatOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// ConfigureLogger applies level and format to logger. Unknown levels keep info.
func (c Config) ConfigureLogger(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
