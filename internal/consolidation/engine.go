// Package consolidation merges cumulative "grouped message" notifications so the store keeps
// only the latest state of each ongoing conversation.
package consolidation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"notifrelay/internal/domain"
)

// Store is the subset of domain.Repository the engine needs.
type Store interface {
	Create(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error)
	Replace(ctx context.Context, oldID string, input domain.CreateNotificationInput) (*domain.Notification, error)
	ListByApp(ctx context.Context, app string) ([]*domain.Notification, error)
}

// AssetRemover deletes side-stored icon/image files of a record.
type AssetRemover interface {
	Delete(key string) error
}

// Asset key suffixes used by the side-store.
const (
	LargeIconSuffix = "_large"
	ImageSuffix     = "_image"
)

// AssetKeys returns every side-store key belonging to a record id.
func AssetKeys(id string) []string {
	return []string{id, id + LargeIconSuffix, id + ImageSuffix}
}

// Engine decides whether an incoming notification extends, replaces or coexists with a
// stored one and performs at most one store mutation.
type Engine struct {
	store   Store
	assets  AssetRemover
	matcher Matcher
	locks   *keyLocker
}

// Option customises an Engine.
type Option func(*Engine)

// WithMatcher overrides the default thresholds.
func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithAssets enables cascading deletion of side assets for superseded records.
func WithAssets(a AssetRemover) Option {
	return func(e *Engine) { e.assets = a }
}

// New creates an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, matcher: DefaultMatcher(), locks: newKeyLocker()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Consolidate stores input, replacing the prior grouping of the same conversation when
// input extends it.
func (e *Engine) Consolidate(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if len(input.GroupedMessages) == 0 {
		n, err := e.store.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("create notification: %w", err)
		}
		return n, nil
	}

	key := input.Key()
	unlock := e.locks.Lock(key.String())
	defer unlock()

	records, err := e.store.ListByApp(ctx, input.App)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	prior := e.matcher.SelectCandidate(key, input.GroupedMessages, records)
	if prior == nil {
		n, err := e.store.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("create notification: %w", err)
		}
		log.Debug().
			Str("id", n.ID).
			Str("app", n.App).
			Int("messages", len(n.GroupedMessages)).
			Msg("grouped notification stored as new conversation")
		return n, nil
	}

	n, err := e.store.Replace(ctx, prior.ID, input)
	if err != nil {
		return nil, fmt.Errorf("replace notification %s: %w", prior.ID, err)
	}
	e.dropAssets(prior.ID)

	log.Debug().
		Str("id", n.ID).
		Str("replaced", prior.ID).
		Str("app", n.App).
		Int("prior_messages", len(prior.GroupedMessages)).
		Int("messages", len(n.GroupedMessages)).
		Msg("grouped notification superseded")
	return n, nil
}

func (e *Engine) dropAssets(id string) {
	if e.assets == nil {
		return
	}
	for _, key := range AssetKeys(id) {
		if err := e.assets.Delete(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete superseded notification asset")
		}
	}
}
