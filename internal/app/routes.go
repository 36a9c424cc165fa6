package app

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reviewinsight/server/internal/middleware"
	"github.com/reviewinsight/server/internal/modules/insight"
	"github.com/reviewinsight/server/internal/modules/storage/dataset"
	"github.com/reviewinsight/server/internal/modules/system/health"
	"github.com/reviewinsight/server/internal/pkg/response"
)

const apiPrefix = "/api"

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		if isAPI(c) {
			response.NotFound(c)
			return
		}
		a.pages.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	// HTML pages
	a.pages.RegisterRoutes(r, a.limit(a.pages.TooManyRequests))

	// JSON API
	api := r.Group(apiPrefix)
	api.Use(apiCORS(a.cfg.AllowedOrigins, a.cfg.IsDev()))
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	var redis health.Pinger
	if a.redis != nil {
		redis = a.redis
	}
	health.RegisterRoutes(api, health.Info{
		Version:  Version,
		Provider: a.cfg.LLM.Provider,
		Store:    a.storeName(),
		Started:  a.started,
	}, redis, a.sched)

	dataset.NewHandler(a.datasets).RegisterRoutes(api)
	insight.NewHandler(a.insight, a.datasets).RegisterRoutes(api, a.limit(nil))
}

// limit guards LLM-backed routes. reject renders the refusal; nil sends JSON.
func (a *App) limit(reject gin.HandlerFunc) gin.HandlerFunc {
	if a.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(a.limiter, a.logger, reject)
}

func isAPI(c *gin.Context) bool {
	path := c.Request.URL.Path
	return path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
}
