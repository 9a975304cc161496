// Package sqlite is the local, file-backed implementation of the notification and config stores.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"notifrelay/internal/domain"
)

// Store implements domain.Repository and domain.ConfigRepository on SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path, enables WAL mode and runs migrations.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

type notificationRow struct {
	ID               string `db:"id"`
	Time             string `db:"time"`
	App              string `db:"app"`
	Title            string `db:"title"`
	TitleBig         string `db:"title_big"`
	Text             string `db:"text"`
	ExtraInfoText    string `db:"extra_info_text"`
	GroupedMessages  string `db:"grouped_messages"`
	HasSentToWebhook bool   `db:"has_sent_to_webhook"`
	CreatedAt        int64  `db:"created_at"`
}

const selectColumns = `id, time, app, title, title_big, text, extra_info_text,
	grouped_messages, has_sent_to_webhook, created_at`

func (r notificationRow) toDomain() (*domain.Notification, error) {
	n := &domain.Notification{
		ID:               r.ID,
		Time:             r.Time,
		App:              r.App,
		Title:            r.Title,
		TitleBig:         r.TitleBig,
		Text:             r.Text,
		ExtraInfoText:    r.ExtraInfoText,
		HasSentToWebhook: r.HasSentToWebhook,
		CreatedAt:        time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.GroupedMessages != "" {
		if err := json.Unmarshal([]byte(r.GroupedMessages), &n.GroupedMessages); err != nil {
			return nil, fmt.Errorf("decoding grouped messages of %s: %w", r.ID, err)
		}
	}
	return n, nil
}

func rowsToDomain(rows []notificationRow) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// insert writes input as a new record through ext (db or tx).
func insert(ctx context.Context, ext sqlx.ExtContext, input domain.CreateNotificationInput) (*domain.Notification, error) {
	grouped := input.GroupedMessages
	if grouped == nil {
		grouped = []domain.GroupedMessage{}
	}
	groupedJSON, err := json.Marshal(grouped)
	if err != nil {
		return nil, fmt.Errorf("encoding grouped messages: %w", err)
	}

	row := notificationRow{
		ID:              uuid.New().String(),
		Time:            input.Time,
		App:             input.App,
		Title:           input.Title,
		TitleBig:        input.TitleBig,
		Text:            input.Text,
		ExtraInfoText:   input.ExtraInfoText,
		GroupedMessages: string(groupedJSON),
		CreatedAt:       time.Now().UnixMilli(),
	}

	_, err = sqlx.NamedExecContext(ctx, ext, `
		INSERT INTO notifications (
			id, time, app, title, title_big, text, extra_info_text,
			grouped_messages, has_sent_to_webhook, created_at
		) VALUES (
			:id, :time, :app, :title, :title_big, :text, :extra_info_text,
			:grouped_messages, :has_sent_to_webhook, :created_at
		)`, row)
	if err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}
	return row.toDomain()
}

// Create inserts a new notification record.
func (s *Store) Create(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return insert(ctx, s.db, input)
}

// Replace deletes oldID and inserts input inside one transaction.
func (s *Store) Replace(ctx context.Context, oldID string, input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, oldID)
	if err != nil {
		return nil, fmt.Errorf("deleting notification %s: %w", oldID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("replacing %s: %w", oldID, domain.ErrNotFound)
	}

	n, err := insert(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing replace: %w", err)
	}
	return n, nil
}

// List fetches notifications matching the filter, newest first.
func (s *Store) List(ctx context.Context, f domain.NotificationFilter) ([]*domain.Notification, error) {
	var conditions []string
	var args []any

	if f.App != "" {
		conditions = append(conditions, "app = ?")
		args = append(args, f.App)
	}
	if f.HasSentToWebhook != nil {
		conditions = append(conditions, "has_sent_to_webhook = ?")
		args = append(args, *f.HasSentToWebhook)
	}

	query := "SELECT " + selectColumns + " FROM notifications"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return rowsToDomain(rows)
}

// ListByApp returns every notification of app in insertion order.
func (s *Store) ListByApp(ctx context.Context, app string) ([]*domain.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+selectColumns+" FROM notifications WHERE app = ? ORDER BY rowid", app)
	if err != nil {
		return nil, fmt.Errorf("listing notifications of %s: %w", app, err)
	}
	return rowsToDomain(rows)
}

// GetByID fetches a single notification.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+selectColumns+" FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return row.toDomain()
}

// DeleteByID removes a notification.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every notification.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// SetSentToWebhook persists the webhook delivery flag.
func (s *Store) SetSentToWebhook(ctx context.Context, id string, sent bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET has_sent_to_webhook = ? WHERE id = ?`, sent, id)
	if err != nil {
		return fmt.Errorf("updating webhook flag of %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByApp returns per-app counts and the number of records already sent.
func (s *Store) CountByApp(ctx context.Context) (map[string]int64, int64, error) {
	var rows []struct {
		App   string `db:"app"`
		Total int64  `db:"total"`
		Sent  int64  `db:"sent"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT app, COUNT(*) AS total, COALESCE(SUM(has_sent_to_webhook), 0) AS sent
		FROM notifications GROUP BY app`)
	if err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	byApp := make(map[string]int64, len(rows))
	var sent int64
	for _, r := range rows {
		byApp[r.App] = r.Total
		sent += r.Sent
	}
	return byApp, sent, nil
}

// PurgeOlderThan deletes notifications stored more than days ago and returns their IDs.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`DELETE FROM notifications WHERE created_at < ? RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purging notifications: %w", err)
	}
	return ids, nil
}
