package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/pkg/cron"
	"github.com/reviewinsight/server/internal/pkg/response"
)

// Pinger is a backing service whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Info is the static part of the health payload.
type Info struct {
	Version  string
	Provider string
	Store    string
	Started  time.Time
}

// RegisterRoutes mounts GET /health and GET /health/cron. redis may be nil
// when the memory backends are in use.
func RegisterRoutes(rg *gin.RouterGroup, info Info, redis Pinger, sched *cron.Scheduler) {
	rg.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		body := gin.H{
			"version":  info.Version,
			"provider": info.Provider,
			"store":    info.Store,
			"uptime":   time.Since(info.Started).Truncate(time.Second).String(),
		}
		if redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			ok := redis.Ping(ctx) == nil
			body["redis"] = ok
			if !ok {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		body["status"] = status
		c.JSON(code, body)
	})

	rg.GET("/health/cron", func(c *gin.Context) {
		response.OK(c, sched.List())
	})
}
