package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/priceprobe/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// StatsSource exposes the counters the health endpoint reports.
type StatsSource interface {
	Stats() models.CheckerStats
}

// SessionSource exposes live browser session counters.
type SessionSource interface {
	Stats() models.SessionStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports "busy" when every browser slot is taken; further checks queue.
func Health(ck StatsSource, sessions SessionSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := ck.Stats()

		status := "healthy"
		if stats.MaxRuns > 0 && stats.InFlight >= stats.MaxRuns {
			status = "busy"
		}

		resp := models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			CheckerStats: stats,
			Version:      Version,
		}
		if sessions != nil {
			resp.SessionStats = sessions.Stats()
		}
		c.JSON(http.StatusOK, resp)
	}
}
