package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifrelay/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(app, title string, texts ...string) domain.CreateNotificationInput {
	in := domain.CreateNotificationInput{Time: "1718000000000", App: app, Title: title, TitleBig: "big", Text: "hello"}
	for _, t := range texts {
		in.GroupedMessages = append(in.GroupedMessages, domain.GroupedMessage{Title: title, Text: t})
	}
	return in
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpen_FileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notifications.db")
	s, err := Open(path)
	require.NoError(t, err)
	created, err := s.Create(context.Background(), sample("app", "t"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Create(ctx, sample("com.whatsapp", "Ana", "a", "b"))
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.HasSentToWebhook)
	assert.WithinDuration(t, time.Now(), n.CreatedAt, time.Minute)

	got, err := s.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, "big", got.TitleBig)
	assert.Equal(t, []domain.GroupedMessage{{Title: "Ana", Text: "a"}, {Title: "Ana", Text: "b"}}, got.GroupedMessages)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), domain.CreateNotificationInput{App: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)
}

func TestStore_PlainRecordHasNoGrouping(t *testing.T) {
	s := newTestStore(t)
	n, err := s.Create(context.Background(), sample("app", "t"))
	require.NoError(t, err)
	assert.False(t, n.IsGrouped())
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old, err := s.Create(ctx, sample("app", "t", "a"))
	require.NoError(t, err)

	n, err := s.Replace(ctx, old.ID, sample("app", "t", "a", "b"))
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, n.ID)

	_, err = s.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := s.ListByApp(ctx, "app")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, n.ID, all[0].ID)
}

func TestStore_ReplaceMissingLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Replace(ctx, "missing", sample("app", "t", "a"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := s.ListByApp(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a1, err := s.Create(ctx, sample("a", "1"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sample("a", "2"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sample("b", "3"))
	require.NoError(t, err)
	require.NoError(t, s.SetSentToWebhook(ctx, a1.ID, true))

	all, err := s.List(ctx, domain.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].Title, "newest first")

	byApp, err := s.List(ctx, domain.NotificationFilter{App: "a"})
	require.NoError(t, err)
	assert.Len(t, byApp, 2)

	sent := true
	onlySent, err := s.List(ctx, domain.NotificationFilter{HasSentToWebhook: &sent})
	require.NoError(t, err)
	require.Len(t, onlySent, 1)
	assert.Equal(t, a1.ID, onlySent[0].ID)

	page, err := s.List(ctx, domain.NotificationFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2", page[0].Title)
}

func TestStore_ListByAppInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"x", "y", "z"} {
		_, err := s.Create(ctx, sample("app", title))
		require.NoError(t, err)
	}
	all, err := s.ListByApp(ctx, "app")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "x", all[0].Title)
	assert.Equal(t, "z", all[2].Title)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Create(ctx, sample("app", "t"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sample("app", "u"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(ctx, n.ID))
	assert.ErrorIs(t, s.DeleteByID(ctx, n.ID), domain.ErrNotFound)

	require.NoError(t, s.DeleteAll(ctx))
	all, err := s.List(ctx, domain.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_SetSentToWebhook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Create(ctx, sample("app", "t"))
	require.NoError(t, err)

	require.NoError(t, s.SetSentToWebhook(ctx, n.ID, true))
	got, err := s.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.HasSentToWebhook)

	require.NoError(t, s.SetSentToWebhook(ctx, n.ID, false))
	got, err = s.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.HasSentToWebhook)

	assert.ErrorIs(t, s.SetSentToWebhook(ctx, "missing", true), domain.ErrNotFound)
}

func TestStore_CountByApp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Create(ctx, sample("a", "1"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sample("a", "2"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sample("b", "3"))
	require.NoError(t, err)
	require.NoError(t, s.SetSentToWebhook(ctx, n.ID, true))

	byApp, sent, err := s.CountByApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, byApp)
	assert.Equal(t, int64(1), sent)
}

func TestStore_PurgeOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old, err := s.Create(ctx, sample("app", "old"))
	require.NoError(t, err)
	fresh, err := s.Create(ctx, sample("app", "fresh"))
	require.NoError(t, err)

	stale := time.Now().AddDate(0, 0, -10).UnixMilli()
	_, err = s.db.Exec(`UPDATE notifications SET created_at = ? WHERE id = ?`, stale, old.ID)
	require.NoError(t, err)

	ids, err := s.PurgeOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids)

	_, err = s.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestConfigStore_DefaultAndUpdate(t *testing.T) {
	cs := newTestStore(t).ConfigStore()
	ctx := context.Background()

	cfg, err := cs.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedApps)
	assert.Nil(t, cfg.WebhookURL)

	url := "https://hooks.example.com/n"
	cfg.AllowedApps = []string{"WhatsApp", "Telegram"}
	cfg.WebhookURL = &url
	_, err = cs.Update(ctx, cfg)
	require.NoError(t, err)

	got, err := cs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"WhatsApp", "Telegram"}, got.AllowedApps)
	require.NotNil(t, got.WebhookURL)
	assert.Equal(t, url, *got.WebhookURL)

	got.WebhookURL = nil
	_, err = cs.Update(ctx, got)
	require.NoError(t, err)
	got, err = cs.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.WebhookURL)
}
