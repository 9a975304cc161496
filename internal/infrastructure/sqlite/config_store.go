package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"notifrelay/internal/domain"
)

// ConfigStore returns the domain.ConfigRepository view of s.
func (s *Store) ConfigStore() *ConfigStore {
	return &ConfigStore{s: s}
}

// ConfigStore persists the single app_config row.
type ConfigStore struct {
	s *Store
}

// Get returns the stored config, inserting the default one on first read.
func (c *ConfigStore) Get(ctx context.Context) (domain.AppConfig, error) {
	var row struct {
		AllowedApps string         `db:"allowed_apps"`
		WebhookURL  sql.NullString `db:"webhook_url"`
	}
	err := c.s.db.GetContext(ctx, &row, `SELECT allowed_apps, webhook_url FROM app_config WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return c.Update(ctx, domain.DefaultAppConfig())
	}
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("reading app config: %w", err)
	}

	cfg := domain.DefaultAppConfig()
	if err := json.Unmarshal([]byte(row.AllowedApps), &cfg.AllowedApps); err != nil {
		return domain.AppConfig{}, fmt.Errorf("decoding allowed apps: %w", err)
	}
	if cfg.AllowedApps == nil {
		cfg.AllowedApps = []string{}
	}
	if row.WebhookURL.Valid {
		url := row.WebhookURL.String
		cfg.WebhookURL = &url
	}
	return cfg, nil
}

// Update overwrites the stored config.
func (c *ConfigStore) Update(ctx context.Context, cfg domain.AppConfig) (domain.AppConfig, error) {
	if cfg.AllowedApps == nil {
		cfg.AllowedApps = []string{}
	}
	apps, err := json.Marshal(cfg.AllowedApps)
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("encoding allowed apps: %w", err)
	}
	_, err = c.s.db.ExecContext(ctx, `
		INSERT INTO app_config (id, allowed_apps, webhook_url) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET allowed_apps = excluded.allowed_apps, webhook_url = excluded.webhook_url`,
		string(apps), cfg.WebhookURL)
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("writing app config: %w", err)
	}
	return cfg, nil
}
