package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/internal/client"
	"github.com/clinica/intranet-api/internal/workflow"
	"github.com/clinica/intranet-api/internal/workflow/redisstore"
	"github.com/clinica/intranet-api/pkg/security"
)

// app holds the wired workflow controller and its backing services.
type app struct {
	ctrl  *workflow.Controller
	api   *client.Client
	store *redisstore.Store
}

func newApp(ctx context.Context, cfg intakeConfig) (*app, error) {
	a := &app{}

	if cfg.APIURL != "" {
		api, err := client.New(client.Config{
			BaseURL: cfg.APIURL,
			Token:   cfg.APIToken,
			Timeout: cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.api = api
	}

	opts := workflow.Options{SearchLimit: cfg.SearchLimit}
	if a.api != nil {
		opts.Searcher = a.api
	}

	switch cfg.Store {
	case storeRedis:
		storeCfg := redisstore.Config{URL: cfg.RedisURL, Prefix: cfg.RedisPrefix}
		if cfg.EncryptionKey != "" {
			key, err := security.ParseKey(cfg.EncryptionKey)
			if err != nil {
				return nil, err
			}
			if storeCfg.Encryptor, err = security.NewAESEncryptor(key); err != nil {
				return nil, err
			}
		}
		store, err := redisstore.Open(ctx, storeCfg)
		if err != nil {
			return nil, err
		}
		a.store = store
		opts.Records = store.Records()
		opts.Notifications = store.Notifications()
		opts.Session = store.Session()
	default:
		opts.Records = workflow.NewMemoryRepository(workflow.RecordKey)
		opts.Notifications = workflow.NewMemoryRepository(workflow.NotificationKey)
		opts.Session = workflow.NewMemorySession()
	}

	switch cfg.Auth {
	case authRemote:
		opts.Directory = workflow.NewRemoteDirectory(a.api)
	default:
		dir, err := workflow.NewStaticDirectory(security.NewBcryptHasher(security.DefaultCost), cfg.Password)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to build user directory: %w", err)
		}
		opts.Directory = dir
	}

	a.ctrl = workflow.NewController(opts)
	log.Debug().Str("store", cfg.Store).Str("auth", cfg.Auth).Bool("remote_search", a.api != nil).Msg("intake ready")
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis store")
		}
		a.store = nil
	}
}
