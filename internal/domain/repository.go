package domain

import "context"

// Repository defines the port for notification persistence.
// Implementations live in infrastructure/sqlite and infrastructure/postgres.
type Repository interface {
	// Create stores a new notification; the store assigns the ID.
	Create(ctx context.Context, input CreateNotificationInput) (*Notification, error)

	// Replace deletes oldID and inserts input as a new record in one atomic step.
	Replace(ctx context.Context, oldID string, input CreateNotificationInput) (*Notification, error)

	// List fetches notifications matching the filter, newest first.
	List(ctx context.Context, filter NotificationFilter) ([]*Notification, error)

	// ListByApp returns every notification of an app (consolidation candidates).
	ListByApp(ctx context.Context, app string) ([]*Notification, error)

	// GetByID fetches a single notification. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// DeleteByID removes a notification. Returns ErrNotFound if absent.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAll removes every notification.
	DeleteAll(ctx context.Context) error

	// SetSentToWebhook persists the webhook delivery flag.
	SetSentToWebhook(ctx context.Context, id string, sent bool) error

	// CountByApp returns per-app record counts and the number already sent to the webhook.
	CountByApp(ctx context.Context) (map[string]int64, int64, error)

	// PurgeOlderThan deletes notifications stored more than days ago and returns their IDs.
	PurgeOlderThan(ctx context.Context, days int) ([]string, error)
}

// ConfigRepository persists the single AppConfig document.
type ConfigRepository interface {
	// Get returns the stored config, creating the default one on first read.
	Get(ctx context.Context) (AppConfig, error)
	Update(ctx context.Context, cfg AppConfig) (AppConfig, error)
}
