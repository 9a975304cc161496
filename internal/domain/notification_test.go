package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppConfig_IsAppAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		app     string
		want    bool
	}{
		{"empty list allows all", nil, "Slack", true},
		{"empty app rejected", nil, "", false},
		{"case-insensitive match", []string{"WhatsApp", "Telegram"}, "whatsapp", true},
		{"not listed", []string{"WhatsApp", "Telegram"}, "Slack", false},
		{"no partial match", []string{"WhatsApp"}, "WhatsApp Business", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{AllowedApps: tt.allowed}
			assert.Equal(t, tt.want, cfg.IsAppAllowed(tt.app))
		})
	}
}

func TestAppConfig_HasWebhook(t *testing.T) {
	blank := "  "
	url := "https://example.com"
	assert.False(t, AppConfig{}.HasWebhook())
	assert.False(t, AppConfig{WebhookURL: &blank}.HasWebhook())
	assert.True(t, AppConfig{WebhookURL: &url}.HasWebhook())
}

func TestCreateNotificationInput_Validate(t *testing.T) {
	ok := CreateNotificationInput{Time: "1", App: "a", Title: "t"}
	assert.NoError(t, ok.Validate())

	for _, in := range []CreateNotificationInput{
		{App: "a", Title: "t"},
		{Time: "1", Title: "t"},
		{Time: "1", App: "a"},
	} {
		assert.ErrorIs(t, in.Validate(), ErrInvalidNotification)
	}
}

func TestConversationKey(t *testing.T) {
	a := ConversationKey{App: "a", Title: "b", TitleBig: "c"}
	b := ConversationKey{App: "a", Title: "bc", TitleBig: ""}
	assert.NotEqual(t, a.String(), b.String())

	n := Notification{App: "a", Title: "b", TitleBig: "c"}
	assert.Equal(t, a, n.Key())
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("1718000000000")
	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1718000000000), got)

	got, ok = ParseTime("2024-06-10T10:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
	_, ok = ParseTime("")
	assert.False(t, ok)
}
