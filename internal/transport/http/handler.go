package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"notifrelay/internal/application"
	"notifrelay/internal/consolidation"
	"notifrelay/internal/domain"
)

// Handler holds all HTTP handler methods.
type Handler struct {
	svc *application.Service
	hub *Hub
}

// NewHandler creates a new Handler.
func NewHandler(svc *application.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// --- Capture ---

// Capture POST /notifications
func (h *Handler) Capture(c echo.Context) error {
	var input application.NotificationInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification payload")
	}

	n, err := h.svc.Capture(c.Request().Context(), input)
	if err != nil {
		return toHTTPError(err)
	}
	if n == nil {
		return c.JSON(http.StatusAccepted, map[string]string{"status": "dropped"})
	}
	return c.JSON(http.StatusCreated, n)
}

// --- REST Handlers ---

// ListNotifications GET /notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	filter := domain.NotificationFilter{
		App:    c.QueryParam("app"),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if v := c.QueryParam("sent"); v != "" {
		sent := v == "true"
		filter.HasSentToWebhook = &sent
	}

	notifications, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":   notifications,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetNotification GET /notifications/:id
func (h *Handler) GetNotification(c echo.Context) error {
	n, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// GetIcon GET /notifications/:id/icon?variant=large|image
func (h *Handler) GetIcon(c echo.Context) error {
	suffix := ""
	switch c.QueryParam("variant") {
	case "", "icon":
	case "large":
		suffix = consolidation.LargeIconSuffix
	case "image":
		suffix = consolidation.ImageSuffix
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown icon variant")
	}

	path, err := h.svc.AssetPath(c.Param("id"), suffix)
	if err != nil {
		return toHTTPError(err)
	}
	if path == "" {
		return echo.NewHTTPError(http.StatusNotFound, "icon not found")
	}
	return c.File(path)
}

// Stats GET /notifications/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Resend POST /notifications/:id/webhook
func (h *Handler) Resend(c echo.Context) error {
	n, err := h.svc.Resend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// Delete DELETE /notifications/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear DELETE /notifications
func (h *Handler) Clear(c echo.Context) error {
	if err := h.svc.Clear(c.Request().Context()); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Config ---

// GetConfig GET /config
func (h *Handler) GetConfig(c echo.Context) error {
	cfg, err := h.svc.GetConfig(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// SetWebhook PUT /config/webhook
func (h *Handler) SetWebhook(c echo.Context) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	cfg, err := h.svc.SetWebhookURL(c.Request().Context(), body.URL)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// AddAllowedApp POST /config/allowed-apps
func (h *Handler) AddAllowedApp(c echo.Context) error {
	var body struct {
		App string `json:"app"`
	}
	if err := c.Bind(&body); err != nil || body.App == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "app is required")
	}
	cfg, err := h.svc.AddAllowedApp(c.Request().Context(), body.App)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// RemoveAllowedApp DELETE /config/allowed-apps/:app
func (h *Handler) RemoveAllowedApp(c echo.Context) error {
	cfg, err := h.svc.RemoveAllowedApp(c.Request().Context(), c.Param("app"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// --- SSE Handler ---

// Stream GET /notifications/stream (SSE)
func (h *Handler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(c.QueryParam("app"), sendCh)
	defer h.hub.Unregister(client)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	log.Info().Str("app", c.QueryParam("app")).Msg("SSE stream opened")

	ctx := c.Request().Context()
	for {
		select {
		case msg, ok := <-sendCh:
			if !ok {
				return nil
			}
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.hub.ConnectedCount(),
	})
}

// --- Helpers ---

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidNotification):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrWebhookNotConfigured):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrDeliveryFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	log.Error().Err(err).Msg("request failed")
	return echo.ErrInternalServerError
}

func parseIntQuery(c echo.Context, key string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// buildSSEMessage formats a notification as an SSE data frame.
func buildSSEMessage(n any) []byte {
	b, _ := json.Marshal(n)
	return []byte("event: notification\ndata: " + string(b) + "\n\n")
}
