package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notifrelay/internal/domain"
)

// ConfigStore is the PostgreSQL implementation of domain.ConfigRepository.
type ConfigStore struct {
	pool *pgxpool.Pool
}

// NewConfigStore creates a ConfigStore.
func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Get returns the stored config, inserting the default one on first read.
func (c *ConfigStore) Get(ctx context.Context) (domain.AppConfig, error) {
	var appsJSON []byte
	var webhookURL *string
	err := c.pool.QueryRow(ctx,
		`SELECT allowed_apps, webhook_url FROM app_config WHERE id = 1`).Scan(&appsJSON, &webhookURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Update(ctx, domain.DefaultAppConfig())
	}
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("read app config: %w", err)
	}

	cfg := domain.AppConfig{WebhookURL: webhookURL}
	if err := json.Unmarshal(appsJSON, &cfg.AllowedApps); err != nil {
		return domain.AppConfig{}, fmt.Errorf("decode allowed apps: %w", err)
	}
	if cfg.AllowedApps == nil {
		cfg.AllowedApps = []string{}
	}
	return cfg, nil
}

// Update overwrites the stored config.
func (c *ConfigStore) Update(ctx context.Context, cfg domain.AppConfig) (domain.AppConfig, error) {
	if cfg.AllowedApps == nil {
		cfg.AllowedApps = []string{}
	}
	appsJSON, err := json.Marshal(cfg.AllowedApps)
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("encode allowed apps: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO app_config (id, allowed_apps, webhook_url) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET allowed_apps = EXCLUDED.allowed_apps, webhook_url = EXCLUDED.webhook_url`,
		appsJSON, cfg.WebhookURL)
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("write app config: %w", err)
	}
	return cfg, nil
}
