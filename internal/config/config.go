package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Lobby struct {
		Transport    string `yaml:"transport"`
		PollInterval string `yaml:"poll_interval"`
		MinStudents  int    `yaml:"min_students"`
	} `yaml:"lobby"`
	Profile struct {
		TTL string `yaml:"ttl"`
	} `yaml:"profile"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Server struct {
		Port      string `yaml:"port"`
		JWTSecret string `yaml:"jwt_secret"`
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
	Bank struct {
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
}

const (
	APIURLEnv    = "QUIZSPARK_API_URL"
	TokenEnv     = "QUIZSPARK_TOKEN"
	JWTSecretEnv = "QUIZSPARK_JWT_SECRET"
	RedisAddrEnv = "QUIZSPARK_REDIS_ADDR"
	PostgresEnv  = "DATABASE_URL"
)

const (
	TransportPoll   = "poll"
	TransportStream = "stream"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.Timeout = "2s"
	cfg.Lobby.Transport = TransportPoll
	cfg.Lobby.PollInterval = "2s"
	cfg.Lobby.MinStudents = 1
	cfg.Profile.TTL = "5m"
	cfg.Log.Level = "info"
	cfg.Server.Port = "8080"
	cfg.Server.JWTSecret = "quizspark-dev-secret"
	cfg.Redis.TTL = "2h"
	cfg.Bank.TTL = "10m"
	return cfg
}

// Load reads YAML config from path on top of the defaults. A missing file is not an error.
// Values from the environment (and a .env file in the working directory) take precedence.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	if cfg.Lobby.MinStudents < 1 {
		cfg.Lobby.MinStudents = 1
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnvOrDefault(APIURLEnv, cfg.API.BaseURL)
	cfg.API.Token = getEnvOrDefault(TokenEnv, cfg.API.Token)
	cfg.Server.JWTSecret = getEnvOrDefault(JWTSecretEnv, cfg.Server.JWTSecret)
	cfg.Redis.Addr = getEnvOrDefault(RedisAddrEnv, cfg.Redis.Addr)
	cfg.Postgres.URL = getEnvOrDefault(PostgresEnv, cfg.Postgres.URL)
	cfg.Lobby.MinStudents = getEnvAsIntOrDefault("QUIZSPARK_MIN_STUDENTS", cfg.Lobby.MinStudents)
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

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
