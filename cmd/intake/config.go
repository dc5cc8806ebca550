package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"

	authStatic = "static"
	authRemote = "remote"
)

// intakeConfig is read from INTAKE_* environment variables.
type intakeConfig struct {
	APIURL      string        `envconfig:"API_URL"`
	APIToken    string        `envconfig:"API_TOKEN"`
	Store       string        `envconfig:"STORE" default:"memory"`
	RedisURL    string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisPrefix string        `envconfig:"REDIS_PREFIX"`
	Auth        string        `envconfig:"AUTH" default:"static"`
	Password    string        `envconfig:"PASSWORD"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	SearchLimit int           `envconfig:"SEARCH_LIMIT" default:"20"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat   string        `envconfig:"LOG_FORMAT" default:"console"`

	// EncryptionKey is a base64 AES key sealing the redis documents.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
}

func loadIntakeConfig() (intakeConfig, error) {
	var cfg intakeConfig
	if err := envconfig.Process("intake", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.Auth = strings.ToLower(strings.TrimSpace(cfg.Auth))
	return cfg, cfg.validate()
}

func (c intakeConfig) validate() error {
	switch c.Store {
	case storeMemory, storeRedis:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Auth {
	case authStatic:
	case authRemote:
		if c.APIURL == "" {
			return fmt.Errorf("remote auth requires INTAKE_API_URL")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth)
	}
	if c.SearchLimit < 1 {
		return fmt.Errorf("invalid search limit %d", c.SearchLimit)
	}
	return nil
}
