package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Upstreams UpstreamConfig
	Redis     RedisConfig
	Notify    NotifyConfig
}

type ServerConfig struct {
	Port string
}

// UpstreamConfig holds the three upstream bases. Only the relay knows them;
// the browser side never sees these URLs.
type UpstreamConfig struct {
	AuthBaseURL    string
	CardBaseURL    string
	PaymentBaseURL string
}

type RedisConfig struct {
	URL              string
	RateLimitEnabled bool
}

type NotifyConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: os.Getenv("SERVER_PORT"),
		},
		Upstreams: UpstreamConfig{
			AuthBaseURL:    os.Getenv("AUTH_UPSTREAM_URL"),
			CardBaseURL:    os.Getenv("CARD_UPSTREAM_URL"),
			PaymentBaseURL: os.Getenv("PAYMENT_UPSTREAM_URL"),
		},
		Redis: RedisConfig{
			URL:              os.Getenv("REDIS_URL"),
			RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
		},
		Notify: NotifyConfig{
			AllowedOrigins: splitOrigins(os.Getenv("NOTIFY_ALLOWED_ORIGINS")),
		},
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		log.Printf("Warning: SERVER_PORT not set, using default: %s", cfg.Server.Port)
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
		log.Printf("Warning: REDIS_URL not set, using default: %s", cfg.Redis.URL)
	}

	return cfg
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
