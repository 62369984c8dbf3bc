package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeform/models"
	"github.com/use-agent/scrapeform/session"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports live sessions and degrades status when the store is over 80% full.
func Health(sessions *session.Store, maxSessions int, backend string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := sessions.Len()

		status := "healthy"
		if maxSessions > 0 && n > int(float64(maxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Sessions: n,
			Backend:  backend,
			Version:  Version,
		})
	}
}
