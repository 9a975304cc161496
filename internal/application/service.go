package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"notifrelay/internal/consolidation"
	"notifrelay/internal/domain"
)

var (
	// ErrWebhookNotConfigured is returned by Resend when no webhook URL is set.
	ErrWebhookNotConfigured = errors.New("webhook url not configured")
	// ErrDeliveryFailed wraps webhook transport and status errors.
	ErrDeliveryFailed = errors.New("webhook delivery failed")
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Service holds all notification use-cases.
type Service struct {
	repo    domain.Repository
	configs domain.ConfigRepository
	engine  Consolidator
	assets  AssetStore
	webhook WebhookEmitter
	hub     Broadcaster
}

// NewService creates a new application Service.
func NewService(
	repo domain.Repository,
	configs domain.ConfigRepository,
	engine Consolidator,
	assets AssetStore,
	webhook WebhookEmitter,
	hub Broadcaster,
) *Service {
	return &Service{
		repo:    repo,
		configs: configs,
		engine:  engine,
		assets:  assets,
		webhook: webhook,
		hub:     hub,
	}
}

// Capture runs a freshly captured notification through the pipeline: allow-list gate,
// consolidation, side assets, webhook relay and live broadcast.
// Returns (nil, nil) when the app is not on the allow-list.
func (s *Service) Capture(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	if !cfg.IsAppAllowed(input.App) {
		log.Debug().Str("app", input.App).Msg("app not in allow-list, dropping notification")
		return nil, nil
	}

	n, err := s.engine.Consolidate(ctx, input)
	if err != nil {
		return nil, err
	}

	s.saveAssets(n.ID, input)

	log.Info().
		Str("id", n.ID).
		Str("app", n.App).
		Int("grouped", len(n.GroupedMessages)).
		Msg("notification stored")

	if cfg.HasWebhook() {
		// Delivery failures are logged inside and left for a user-initiated resend.
		if err := s.EmitAndMark(ctx, n, *cfg.WebhookURL); err != nil && !errors.Is(err, ErrDeliveryFailed) {
			return nil, err
		}
	}

	// Non-blocking SSE broadcast of a snapshot taken once the webhook flag is final.
	if s.hub != nil {
		snapshot := *n
		go s.hub.Broadcast(&snapshot)
	}
	return n, nil
}

func (s *Service) saveAssets(id string, input domain.CreateNotificationInput) {
	if s.assets == nil {
		return
	}
	payloads := map[string]string{
		id: input.Icon,
		id + consolidation.LargeIconSuffix: input.IconLarge,
		id + consolidation.ImageSuffix:     input.Image,
	}
	for key, data := range payloads {
		if data == "" {
			continue
		}
		if _, err := s.assets.Save(key, data); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to save notification asset")
		}
	}
}

func (s *Service) dropAssets(id string) {
	if s.assets == nil {
		return
	}
	for _, key := range consolidation.AssetKeys(id) {
		if err := s.assets.Delete(key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to delete notification asset")
		}
	}
}

// EmitAndMark relays n to url once. A record already marked as sent is skipped.
// On failure the flag is reset to false so a later resend can retry.
func (s *Service) EmitAndMark(ctx context.Context, n *domain.Notification, url string) error {
	if n.HasSentToWebhook {
		log.Warn().Str("id", n.ID).Msg("notification already sent to webhook")
		return nil
	}

	if err := s.webhook.Emit(ctx, url, n); err != nil {
		log.Error().Err(err).Str("id", n.ID).Msg("error sending notification to webhook")
		n.HasSentToWebhook = false
		if perr := s.repo.SetSentToWebhook(ctx, n.ID, false); perr != nil {
			log.Error().Err(perr).Str("id", n.ID).Msg("failed to reset webhook flag")
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	if err := s.repo.SetSentToWebhook(ctx, n.ID, true); err != nil {
		log.Error().Err(err).Str("id", n.ID).Msg("failed to mark notification as sent to webhook")
		return fmt.Errorf("mark sent to webhook: %w", err)
	}
	n.HasSentToWebhook = true
	log.Debug().Str("id", n.ID).Msg("notification sent to webhook")
	return nil
}

// Resend relays a stored notification to the configured webhook (user-initiated retry).
func (s *Service) Resend(ctx context.Context, id string) (*domain.Notification, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	if !cfg.HasWebhook() {
		return nil, ErrWebhookNotConfigured
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return n, s.EmitAndMark(ctx, n, *cfg.WebhookURL)
}

// List returns notifications, newest first.
func (s *Service) List(ctx context.Context, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Get returns a single notification.
func (s *Service) Get(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// AssetPath returns the side-store path of a record asset ("" when absent).
func (s *Service) AssetPath(id, suffix string) (string, error) {
	if s.assets == nil {
		return "", nil
	}
	return s.assets.Path(id + suffix)
}

// Delete removes a notification and its side assets.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.dropAssets(id)
	return nil
}

// Clear removes every notification and all side assets.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	if s.assets != nil {
		if err := s.assets.Clear(); err != nil {
			log.Error().Err(err).Msg("error clearing all notification assets")
		}
	}
	log.Info().Msg("all notifications cleared")
	return nil
}

// Stats returns totals, webhook delivery count and per-app counts.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	byApp, sent, err := s.repo.CountByApp(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	stats := domain.Stats{Sent: sent, ByApp: byApp}
	for _, c := range byApp {
		stats.Total += c
	}
	if s.assets != nil {
		size, err := s.assets.TotalSize()
		if err != nil {
			log.Warn().Err(err).Msg("failed to measure asset store")
		}
		stats.Assets = size
	}
	return stats, nil
}

// GetConfig returns the allow-list and webhook configuration.
func (s *Service) GetConfig(ctx context.Context) (domain.AppConfig, error) {
	return s.configs.Get(ctx)
}

// SetWebhookURL sets the webhook URL. An empty url disables relaying.
func (s *Service) SetWebhookURL(ctx context.Context, url string) (domain.AppConfig, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		cfg.WebhookURL = nil
	} else {
		cfg.WebhookURL = &url
	}
	return s.configs.Update(ctx, cfg)
}

// AddAllowedApp adds app to the allow-list unless an equal (case-insensitive) entry exists.
func (s *Service) AddAllowedApp(ctx context.Context, app string) (domain.AppConfig, error) {
	app = strings.TrimSpace(app)
	if app == "" {
		return domain.AppConfig{}, fmt.Errorf("app name must not be empty")
	}
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	for _, existing := range cfg.AllowedApps {
		if strings.EqualFold(existing, app) {
			return cfg, nil
		}
	}
	cfg.AllowedApps = append(cfg.AllowedApps, app)
	return s.configs.Update(ctx, cfg)
}

// RemoveAllowedApp removes every case-insensitive match of app from the allow-list.
func (s *Service) RemoveAllowedApp(ctx context.Context, app string) (domain.AppConfig, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	kept := make([]string, 0, len(cfg.AllowedApps))
	for _, existing := range cfg.AllowedApps {
		if !strings.EqualFold(existing, app) {
			kept = append(kept, existing)
		}
	}
	cfg.AllowedApps = kept
	return s.configs.Update(ctx, cfg)
}

// PurgeTTL deletes old notifications. Called by a background scheduler.
func (s *Service) PurgeTTL(ctx context.Context, days int) {
	if days <= 0 {
		return
	}
	ids, err := s.repo.PurgeOlderThan(ctx, days)
	if err != nil {
		log.Error().Err(err).Msg("notification TTL purge failed")
		return
	}
	for _, id := range ids {
		s.dropAssets(id)
	}
	log.Info().Int("deleted", len(ids)).Int("older_than_days", days).Msg("notification TTL purge completed")
}
