// Package settings persists the panel's API key and model choice.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
)

// Settings is the persisted record. Field names on disk match the keys the
// browser extension used, so an exported record can be loaded as is.
type Settings struct {
	APIKey string `yaml:"geminiApiKey" json:"geminiApiKey"`
	Model  string `yaml:"geminiModel" json:"geminiModel"`
}

// Store loads and saves Settings. Load on an empty store returns the zero
// Settings and no error.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// NormalizeModel trims the name, drops the API's "models/" prefix and
// falls back to def when nothing is left.
func NormalizeModel(model, def string) string {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		return def
	}
	return model
}

// Sanitize replaces a stored model that is empty or contains any rejected
// marker with def. Aliases such as "-latest" have shifted meaning upstream
// and were observed to fail generation.
func Sanitize(s Settings, def string, rejected []string) Settings {
	if s.Model == "" {
		s.Model = def
		return s
	}
	for _, marker := range rejected {
		if marker != "" && strings.Contains(s.Model, marker) {
			s.Model = def
			break
		}
	}
	return s
}

// Open builds the store selected by cfg. The returned release function
// closes any connection pool and is never nil.
func Open(ctx context.Context, cfg config.SettingsConfig, logger *zap.Logger) (Store, func(), error) {
	switch cfg.Backend {
	case config.SettingsBackendFile, "":
		return NewFileStore(cfg.File), func() {}, nil
	case config.SettingsBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to create database pool: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool, cfg.Profile, logger)
		if err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return store, pool.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}
