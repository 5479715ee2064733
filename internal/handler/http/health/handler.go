package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatsProvider reports live signaling counts
type StatsProvider interface {
	Stats() (users, calls int)
}

// Handler serves the health endpoint
type Handler struct {
	stats StatsProvider
	now   func() time.Time
}

// NewHandler creates a new health handler
func NewHandler(stats StatsProvider) *Handler {
	return &Handler{stats: stats, now: time.Now}
}

// Response is the health payload
type Response struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	ActiveUserCount int    `json:"activeUserCount"`
	ActiveCallCount int    `json:"activeCallCount"`
}

// Health reports liveness and current load
// GET /health
func (h *Handler) Health(c *gin.Context) {
	users, calls := h.stats.Stats()
	c.JSON(http.StatusOK, Response{
		Status:          "OK",
		Timestamp:       h.now().UTC().Format(time.RFC3339Nano),
		ActiveUserCount: users,
		ActiveCallCount: calls,
	})
}
