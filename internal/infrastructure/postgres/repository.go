package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notifrelay/internal/domain"
)

// Repository is the PostgreSQL implementation of domain.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Schema creates the tables used by Repository and ConfigStore.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id                  UUID PRIMARY KEY,
	seq                 BIGSERIAL,
	time                TEXT NOT NULL,
	app                 TEXT NOT NULL,
	title               TEXT NOT NULL,
	title_big           TEXT NOT NULL DEFAULT '',
	text                TEXT NOT NULL DEFAULT '',
	extra_info_text     TEXT NOT NULL DEFAULT '',
	grouped_messages    JSONB NOT NULL DEFAULT '[]',
	has_sent_to_webhook BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notifications_conversation ON notifications (app, title, title_big);
CREATE TABLE IF NOT EXISTS app_config (
	id           SMALLINT PRIMARY KEY CHECK (id = 1),
	allowed_apps JSONB NOT NULL DEFAULT '[]',
	webhook_url  TEXT
);
`

// Migrate applies Schema.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const returningColumns = `id, time, app, title, title_big, text, extra_info_text,
	grouped_messages, has_sent_to_webhook, created_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insert(ctx context.Context, q querier, input domain.CreateNotificationInput) (*domain.Notification, error) {
	grouped := input.GroupedMessages
	if grouped == nil {
		grouped = []domain.GroupedMessage{}
	}
	groupedJSON, err := json.Marshal(grouped)
	if err != nil {
		return nil, fmt.Errorf("encode grouped messages: %w", err)
	}

	row := q.QueryRow(ctx, `
		INSERT INTO notifications (id, time, app, title, title_big, text, extra_info_text, grouped_messages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+returningColumns,
		uuid.New(), input.Time, input.App, input.Title, input.TitleBig,
		input.Text, input.ExtraInfoText, groupedJSON)

	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// Create inserts a new notification record.
func (r *Repository) Create(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return insert(ctx, r.pool, input)
}

// Replace deletes oldID and inserts input in one transaction.
func (r *Repository) Replace(ctx context.Context, oldID string, input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(oldID)
	if err != nil {
		return nil, fmt.Errorf("replace %s: %w", oldID, domain.ErrNotFound)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("replace %s: %w", oldID, domain.ErrNotFound)
	}

	n, err := insert(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}
	return n, nil
}

// List fetches notifications matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f domain.NotificationFilter) ([]*domain.Notification, error) {
	query := `SELECT ` + returningColumns + ` FROM notifications WHERE TRUE`
	var args []any
	paramIdx := 1

	if f.App != "" {
		query += fmt.Sprintf(" AND app = $%d", paramIdx)
		args = append(args, f.App)
		paramIdx++
	}
	if f.HasSentToWebhook != nil {
		query += fmt.Sprintf(" AND has_sent_to_webhook = $%d", paramIdx)
		args = append(args, *f.HasSentToWebhook)
		paramIdx++
	}

	query += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", paramIdx, paramIdx+1)
		args = append(args, f.Limit, f.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListByApp returns every notification of app in insertion order.
func (r *Repository) ListByApp(ctx context.Context, app string) ([]*domain.Notification, error) {
	return r.query(ctx, `SELECT `+returningColumns+` FROM notifications WHERE app = $1 ORDER BY seq`, app)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var results []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// GetByID fetches a single notification.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+returningColumns+` FROM notifications WHERE id = $1`, uid)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

// DeleteByID removes a notification.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every notification.
func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("delete all notifications: %w", err)
	}
	return nil
}

// SetSentToWebhook persists the webhook delivery flag.
func (r *Repository) SetSentToWebhook(ctx context.Context, id string, sent bool) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET has_sent_to_webhook = $1 WHERE id = $2`, sent, uid)
	if err != nil {
		return fmt.Errorf("set webhook flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByApp returns per-app counts and the number of records already sent.
func (r *Repository) CountByApp(ctx context.Context) (map[string]int64, int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT app, COUNT(*), COUNT(*) FILTER (WHERE has_sent_to_webhook)
		FROM notifications GROUP BY app`)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	defer rows.Close()

	byApp := make(map[string]int64)
	var sent int64
	for rows.Next() {
		var app string
		var total, appSent int64
		if err := rows.Scan(&app, &total, &appSent); err != nil {
			return nil, 0, fmt.Errorf("scan count: %w", err)
		}
		byApp[app] = total
		sent += appSent
	}
	return byApp, sent, rows.Err()
}

// PurgeOlderThan deletes notifications older than the given number of days.
func (r *Repository) PurgeOlderThan(ctx context.Context, days int) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	rows, err := r.pool.Query(ctx, `DELETE FROM notifications WHERE created_at < $1 RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge notifications: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purged id: %w", err)
		}
		ids = append(ids, id.String())
	}
	return ids, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (*domain.Notification, error) {
	var n domain.Notification
	var id uuid.UUID
	var groupedJSON []byte

	err := row.Scan(
		&id, &n.Time, &n.App, &n.Title, &n.TitleBig, &n.Text, &n.ExtraInfoText,
		&groupedJSON, &n.HasSentToWebhook, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.ID = id.String()
	if len(groupedJSON) > 0 {
		if err := json.Unmarshal(groupedJSON, &n.GroupedMessages); err != nil {
			return nil, fmt.Errorf("decode grouped messages: %w", err)
		}
	}
	return &n, nil
}
