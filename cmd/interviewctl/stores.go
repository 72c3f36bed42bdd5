package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/store"
	"github.com/zhouzirui/z-interview/backend/internal/store/file"
	"github.com/zhouzirui/z-interview/backend/internal/store/primary"
)

// storeFlags override the environment store settings.
type storeFlags struct {
	primaryURL   string
	fallbackPath string
}

func loadStoreConfig(flags storeFlags) (config.StoreConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.StoreConfig{}, err
	}

	storeCfg := cfg.Store
	if flags.primaryURL != "" {
		storeCfg.PrimaryURL = flags.primaryURL
	}
	if flags.fallbackPath != "" {
		storeCfg.FallbackPath = flags.fallbackPath
	}
	return storeCfg, nil
}

func openRouter(ctx context.Context, cfg config.StoreConfig) (*store.Router, error) {
	primaryStore, err := primary.Open(ctx, primary.Config{
		URL:        cfg.PrimaryURL,
		Database:   cfg.Database,
		Collection: cfg.Collection,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open primary store %s: %w", primary.Describe(cfg.PrimaryURL), err)
	}
	return store.NewRouter(primaryStore, file.Open(cfg.FallbackPath), cfg.TranscriptLimit), nil
}
