package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidNotification is returned when time, app or title is missing.
	ErrInvalidNotification = errors.New("invalid notification data")
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("notification not found")
)

// GroupedMessage is one entry of a cumulative "grouped" notification, oldest first.
type GroupedMessage struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Notification is the stored record.
type Notification struct {
	ID               string           `json:"id"`
	Time             string           `json:"time"`
	App              string           `json:"app"`
	Title            string           `json:"title"`
	TitleBig         string           `json:"titleBig"`
	Text             string           `json:"text"`
	ExtraInfoText    string           `json:"extraInfoText"`
	GroupedMessages  []GroupedMessage `json:"groupedMessages,omitempty"`
	HasSentToWebhook bool             `json:"hasSentToWebhook"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// IsGrouped reports whether the record carries grouped messages.
func (n *Notification) IsGrouped() bool {
	return len(n.GroupedMessages) > 0
}

// ConversationKey identifies an ongoing conversation within an app.
type ConversationKey struct {
	App      string
	Title    string
	TitleBig string
}

// Key returns the conversation key of the record.
func (n *Notification) Key() ConversationKey {
	return ConversationKey{App: n.App, Title: n.Title, TitleBig: n.TitleBig}
}

func (k ConversationKey) String() string {
	return k.App + "\x00" + k.Title + "\x00" + k.TitleBig
}

// CreateNotificationInput is what a capture source hands to the service.
// Icon, IconLarge and Image are base64 payloads that are never stored in the record itself.
type CreateNotificationInput struct {
	Time            string           `json:"time"`
	App             string           `json:"app"`
	Title           string           `json:"title"`
	TitleBig        string           `json:"titleBig"`
	Text            string           `json:"text"`
	ExtraInfoText   string           `json:"extraInfoText"`
	GroupedMessages []GroupedMessage `json:"groupedMessages,omitempty"`

	Icon      string `json:"icon,omitempty"`
	IconLarge string `json:"iconLarge,omitempty"`
	Image     string `json:"image,omitempty"`
}

// Validate checks the fields every record must carry.
func (in CreateNotificationInput) Validate() error {
	if in.Time == "" || in.App == "" || in.Title == "" {
		return ErrInvalidNotification
	}
	return nil
}

// Key returns the conversation key of the input.
func (in CreateNotificationInput) Key() ConversationKey {
	return ConversationKey{App: in.App, Title: in.Title, TitleBig: in.TitleBig}
}

// NotificationFilter holds query parameters for listing notifications.
type NotificationFilter struct {
	App              string
	HasSentToWebhook *bool
	Limit            int
	Offset           int
}

// Stats summarises the stored notifications.
type Stats struct {
	Total  int64            `json:"total"`
	Sent   int64            `json:"sent"`
	ByApp  map[string]int64 `json:"byApp"`
	Assets int64            `json:"assetBytes"`
}

// ParseTime interprets a listener timestamp: epoch milliseconds or RFC3339.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// NewerThan reports whether timestamp a is more recent than b.
// Parsed instants are compared when both parse, otherwise the raw strings are.
func NewerThan(a, b string) bool {
	ta, okA := ParseTime(a)
	tb, okB := ParseTime(b)
	if okA && okB {
		return ta.After(tb)
	}
	return a > b
}
