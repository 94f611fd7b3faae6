package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is the subset of pgxpool.Pool the store uses, so tests can mock it.
type DBPool interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS panel_settings (
            profile        TEXT PRIMARY KEY,
            gemini_api_key TEXT NOT NULL DEFAULT '',
            gemini_model   TEXT NOT NULL DEFAULT '',
            updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
        );
    `
	sqlSelectSettings = `SELECT gemini_api_key, gemini_model FROM panel_settings WHERE profile = $1`
	sqlUpsertSettings = `
        INSERT INTO panel_settings (profile, gemini_api_key, gemini_model, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (profile) DO UPDATE SET
            gemini_api_key = EXCLUDED.gemini_api_key,
            gemini_model = EXCLUDED.gemini_model,
            updated_at = EXCLUDED.updated_at;
    `
)

// PostgresStore shares settings between machines, one row per profile.
type PostgresStore struct {
	pool    DBPool
	profile string
	log     *zap.Logger
}

// NewPostgresStore verifies the connection and returns a store for profile.
func NewPostgresStore(ctx context.Context, pool DBPool, profile string, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, profile: profile, log: logger.Named("settings.postgres")}, nil
}

// EnsureSchema creates the settings table if needed.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.pool.QueryRow(ctx, sqlSelectSettings, p.profile).Scan(&s.APIKey, &s.Model)
	if errors.Is(err, pgx.ErrNoRows) {
		p.log.Debug("No stored settings for profile.", zap.String("profile", p.profile))
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s Settings) error {
	tag, err := p.pool.Exec(ctx, sqlUpsertSettings, p.profile, s.APIKey, s.Model)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("failed to save settings: %d rows affected", tag.RowsAffected())
	}
	return nil
}
