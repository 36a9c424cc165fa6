package app

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// apiCORS allows the configured origins on /api. An empty list, or
// development mode, allows any origin.
func apiCORS(origins []string, dev bool) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Retry-After", "X-Request-ID"},
		// The dataset cookie is the fallback for the id.
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || dev {
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cors.New(cfg)
	}
	cfg.AllowOriginFunc = func(origin string) bool {
		host := originHost(origin)
		for _, pattern := range origins {
			if matchOrigin(pattern, host) {
				return true
			}
		}
		return false
	}
	return cors.New(cfg)
}

// originHost returns the "host[:port]" portion of an origin URL.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOrigin accepts exact hosts, "*.example.com" and "host:*" patterns.
// Patterns written as full URLs match on their host part.
func matchOrigin(pattern, host string) bool {
	pattern = originHost(pattern)
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
