package application

import (
	"context"

	"notifrelay/internal/domain"
)

// NotificationInput is the DTO capture sources hand to Service.Capture.
type NotificationInput = domain.CreateNotificationInput

// Collaborator ports. Implementations live under infrastructure/ and transport/.

// Consolidator stores a captured notification, merging grouped conversations.
type Consolidator interface {
	Consolidate(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error)
}

// AssetStore keeps icons and images outside the record store, keyed by record id
// plus the "_large" and "_image" suffixes.
type AssetStore interface {
	Save(key, base64Data string) (string, error)
	Delete(key string) error
	Path(key string) (string, error)
	Clear() error
	TotalSize() (int64, error)
}

// WebhookEmitter POSTs a payload to url and fails on non-2xx responses.
type WebhookEmitter interface {
	Emit(ctx context.Context, url string, payload any) error
}

// Broadcaster pushes newly stored notifications to live listeners.
// Implementation lives in transport/http/sse_hub.go.
type Broadcaster interface {
	Broadcast(notification *domain.Notification)
}
