package handlers

import (
	"encoding/json"

	"notifrelay/internal/domain"
)

func init() {
	Register(TopicCapture, "NOTIFICATION_POSTED", handleNotificationPosted)
}

type captureEnv struct {
	EventType string               `json:"eventType"`
	EventID   string               `json:"eventId"`
	Payload   listenerNotification `json:"payload"`
}

func handleNotificationPosted(data []byte) *domain.CreateNotificationInput {
	var env captureEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	if env.Payload.App == "" {
		return nil
	}
	return env.Payload.toInput()
}
