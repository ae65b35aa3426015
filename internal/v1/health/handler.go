// Package health exposes liveness and readiness probes.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shoutwars/server/internal/v1/room"
	"github.com/shoutwars/server/internal/v1/session"
)

// Handler manages health check endpoints
type Handler struct {
	rooms    *room.Registry
	sessions *session.Registry
}

// NewHandler creates a new health check handler
func NewHandler(rooms *room.Registry, sessions *session.Registry) *Handler {
	return &Handler{rooms: rooms, sessions: sessions}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string         `json:"status"`
	Checks    map[string]any `json:"checks"`
	Timestamp string         `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// The server has no external dependencies; the one resource that can make
// it unavailable is room capacity, so readiness flips to 503 at the limit.
func (h *Handler) Readiness(c *gin.Context) {
	roomCount := h.rooms.Count()
	roomLimit := h.rooms.Limit()

	status := "ready"
	statusCode := http.StatusOK
	if roomCount >= roomLimit {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status: status,
		Checks: map[string]any{
			"room_count":    roomCount,
			"room_limit":    roomLimit,
			"session_count": h.sessions.Count(),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
