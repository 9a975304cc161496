package handlers

import "notifrelay/internal/kafka/registry"

// Topics consumed by the capture pipeline.
const (
	TopicAndroid = "android-notifications"
	TopicCapture = "capture-events"
)

// Register is a convenience alias so each handler file calls Register(...)
// instead of registry.Register(...), keeping imports minimal.
func Register(topic, eventType string, h registry.EventHandler) {
	registry.Register(topic, eventType, h)
}

// RegisterDirect registers a handler for topics that don't use eventType routing.
func RegisterDirect(topic string, h registry.EventHandler) {
	registry.Register(topic, "", h)
}
