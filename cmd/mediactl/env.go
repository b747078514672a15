package main

import (
	"context"
	"fmt"

	"media-picker/internal/mediastore"
	"media-picker/internal/startup"
)

// loadConfig reads the service configuration without the startup banner.
func loadConfig() (*startup.Config, error) {
	config, err := startup.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return config, nil
}

// openStore opens the repository index named by config.
func openStore(ctx context.Context, config *startup.Config, opts ...mediastore.Option) (*mediastore.Store, error) {
	store, err := mediastore.New(ctx, config.DatabasePath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open repository index %s: %w", config.DatabasePath, err)
	}
	return store, nil
}
