package feed

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pipescan/internal/model"
	pkgLog "pipescan/pkg/log"
	pkgResponse "pipescan/pkg/response"
)

// Handler exposes the build-event feed over HTTP: webhook ingestion on one
// side, polling and long-poll consumption on the other.
type Handler struct {
	l               pkgLog.Logger
	buffer          *Buffer
	security        *SecurityValidator
	longPollTimeout time.Duration
}

func NewHandler(l pkgLog.Logger, buffer *Buffer, securityConfig SecurityConfig, longPollTimeout time.Duration) *Handler {
	if longPollTimeout <= 0 {
		longPollTimeout = 30 * time.Second
	}
	return &Handler{
		l:               l,
		buffer:          buffer,
		security:        NewSecurityValidator(securityConfig),
		longPollTimeout: longPollTimeout,
	}
}

// HandleBuildWebhook receives a CI service-hook event and publishes it to the feed
// @Summary Receive build event
// @Description Accept a CI build service-hook event and publish it to the event feed
// @Tags Webhook
// @Accept json
// @Produce json
// @Success 200 {object} response.Resp "Event accepted"
// @Failure 401 {object} map[string]interface{} "Invalid token or IP"
// @Failure 429 {object} map[string]interface{} "Rate limit exceeded"
// @Router /webhook [post]
func (h *Handler) HandleBuildWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.security.ValidateIPAddress(c.Request); err != nil {
		h.l.Warnf(ctx, "Webhook IP rejected: %v", err)
		pkgResponse.Unauthorized(c)
		return
	}

	token := c.GetHeader("X-Webhook-Token")
	if err := h.security.ValidateToken(token); err != nil {
		h.l.Warnf(ctx, "Webhook token verification failed: %v", err)
		pkgResponse.Unauthorized(c)
		return
	}

	if err := h.security.CheckRateLimit(extractIP(c.Request)); err != nil {
		h.l.Warnf(ctx, "Rate limit exceeded: %v", err)
		pkgResponse.TooManyRequests(c)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.l.Errorf(ctx, "Failed to read webhook body: %v", err)
		pkgResponse.Error(c, err, nil)
		return
	}

	var event model.RawEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.l.Errorf(ctx, "Failed to parse webhook event: %v", err)
		pkgResponse.Error(c, err, nil)
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.ReceivedAt = time.Now()

	h.buffer.Append(event)
	h.l.Infof(ctx, "Event %s published: type=%s build=%d/%s pipeline=%s",
		event.ID, event.EventType, event.Resource.ID, event.Resource.BuildNumber, event.Resource.Definition.Name)

	pkgResponse.OK(c, gin.H{"status": "received", "id": event.ID})
}

// ListEvents returns the buffered events
// @Summary List buffered events
// @Tags Events
// @Produce json
// @Success 200 {object} response.Resp
// @Router /events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	events := h.buffer.Snapshot()
	pkgResponse.OK(c, gin.H{
		"events": events,
		"count":  len(events),
		"total":  h.buffer.Total(),
	})
}

// LatestEvent returns the most recent event
// @Summary Latest event
// @Tags Events
// @Produce json
// @Success 200 {object} response.Resp
// @Failure 404 {object} response.Resp "No events yet"
// @Router /events/latest [get]
func (h *Handler) LatestEvent(c *gin.Context) {
	event, ok := h.buffer.Latest()
	if !ok {
		pkgResponse.NotFound(c, errors.New("no events received yet"))
		return
	}
	pkgResponse.OK(c, event)
}

// buildSummary is one row of the builds listing.
type buildSummary struct {
	BuildID     int       `json:"build_id"`
	BuildNumber string    `json:"build_number"`
	Result      string    `json:"result"`
	Pipeline    string    `json:"pipeline"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ListBuilds returns a build-centric view of the buffered events
// @Summary List buffered builds
// @Tags Events
// @Produce json
// @Success 200 {object} response.Resp
// @Router /events/builds [get]
func (h *Handler) ListBuilds(c *gin.Context) {
	events := h.buffer.Snapshot()
	builds := make([]buildSummary, 0, len(events))
	for _, ev := range events {
		if !strings.HasPrefix(ev.EventType, "build.") {
			continue
		}
		builds = append(builds, buildSummary{
			BuildID:     ev.Resource.ID,
			BuildNumber: ev.Resource.BuildNumber,
			Result:      ev.Resource.Result,
			Pipeline:    ev.Resource.Definition.Name,
			ReceivedAt:  ev.ReceivedAt,
		})
	}
	pkgResponse.OK(c, gin.H{"builds": builds, "count": len(builds)})
}

// WaitEvents long-polls for events published after the client's cursor
// @Summary Wait for new events
// @Description Block until events newer than the cursor arrive or the long-poll window elapses
// @Tags Events
// @Produce json
// @Param cursor query int false "Events already seen by the client"
// @Success 200 {object} response.Resp
// @Router /events/wait [get]
func (h *Handler) WaitEvents(c *gin.Context) {
	cursor, err := strconv.Atoi(c.DefaultQuery("cursor", "0"))
	if err != nil || cursor < 0 {
		cursor = 0
	}

	events, next := h.buffer.Wait(c.Request.Context(), cursor, h.longPollTimeout)
	pkgResponse.OK(c, gin.H{
		"new_events": events,
		"cursor":     next,
		"count":      len(events),
	})
}

// Ping answers feed liveness probes
// @Summary Ping
// @Tags Events
// @Produce json
// @Success 200 {object} response.Resp
// @Router /ping [get]
func (h *Handler) Ping(c *gin.Context) {
	pkgResponse.OK(c, gin.H{"status": "ok", "total_events": h.buffer.Total()})
}
