package handlers

import (
	"encoding/json"

	"notifrelay/internal/domain"
)

func init() {
	RegisterDirect(TopicAndroid, handleListenerPayload)
}

// listenerNotification is the JSON emitted by the Android notification listener.
type listenerNotification struct {
	Time            string                  `json:"time"`
	App             string                  `json:"app"`
	Title           string                  `json:"title"`
	TitleBig        string                  `json:"titleBig"`
	Text            string                  `json:"text"`
	SubText         string                  `json:"subText"`
	SummaryText     string                  `json:"summaryText"`
	BigText         string                  `json:"bigText"`
	ExtraInfoText   string                  `json:"extraInfoText"`
	GroupedMessages []domain.GroupedMessage `json:"groupedMessages"`
	Icon            string                  `json:"icon"`
	IconLarge       string                  `json:"iconLarge"`
	Image           string                  `json:"image"`
}

func (l listenerNotification) toInput() *domain.CreateNotificationInput {
	return &domain.CreateNotificationInput{
		Time:            l.Time,
		App:             l.App,
		Title:           l.Title,
		TitleBig:        l.TitleBig,
		Text:            l.Text,
		ExtraInfoText:   l.ExtraInfoText,
		GroupedMessages: l.GroupedMessages,
		Icon:            l.Icon,
		IconLarge:       l.IconLarge,
		Image:           l.Image,
	}
}

// handleListenerPayload accepts either the bare listener object or the headless task
// wrapper {"notification": "<listener JSON as string>"}.
func handleListenerPayload(data []byte) *domain.CreateNotificationInput {
	var wrapper struct {
		Notification json.RawMessage `json:"notification"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil
	}
	if len(wrapper.Notification) > 0 {
		var inner string
		if err := json.Unmarshal(wrapper.Notification, &inner); err == nil {
			data = []byte(inner)
		} else {
			data = wrapper.Notification
		}
	}

	var n listenerNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	return n.toInput()
}
