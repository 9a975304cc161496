package domain

import "strings"

// AppConfig is the user configuration read before each captured notification is processed.
type AppConfig struct {
	AllowedApps []string `json:"allowedApps"`
	WebhookURL  *string  `json:"webhookUrl"`
}

// DefaultAppConfig allows every app and has no webhook.
func DefaultAppConfig() AppConfig {
	return AppConfig{AllowedApps: []string{}}
}

// IsAppAllowed applies the allow-list: empty list allows all, otherwise a
// case-insensitive exact match is required. An empty app name is always rejected.
func (c AppConfig) IsAppAllowed(app string) bool {
	if app == "" {
		return false
	}
	if len(c.AllowedApps) == 0 {
		return true
	}
	for _, allowed := range c.AllowedApps {
		if strings.EqualFold(allowed, app) {
			return true
		}
	}
	return false
}

// HasWebhook reports whether a webhook URL is configured.
func (c AppConfig) HasWebhook() bool {
	return c.WebhookURL != nil && strings.TrimSpace(*c.WebhookURL) != ""
}
