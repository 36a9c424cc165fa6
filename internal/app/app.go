package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reviewinsight/server/internal/config"
	"github.com/reviewinsight/server/internal/middleware"
	"github.com/reviewinsight/server/internal/modules/insight"
	"github.com/reviewinsight/server/internal/modules/processing/ai"
	"github.com/reviewinsight/server/internal/modules/storage/dataset"
	"github.com/reviewinsight/server/internal/modules/web"
	pkgcron "github.com/reviewinsight/server/internal/pkg/cron"
	pkgredis "github.com/reviewinsight/server/internal/pkg/redis"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	redis  *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	datasets *dataset.Service
	insight  *insight.Service
	pages    *web.Handler
	limiter  middleware.Limiter
	sweepers []sweeper
	started  time.Time
}

// New wires config → Redis → stores → LLM pipeline → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, sched: pkgcron.New(), started: time.Now()}

	if cfg.Redis.Enable {
		rc, err := pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rc
	}

	store, cache := a.backends()

	var mirror dataset.Mirror
	if cfg.Storage.S3.Enable {
		s3m, err := dataset.NewS3Mirror(cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		mirror = s3m
	}
	a.datasets = dataset.NewService(store, mirror, cfg.UploadDir(), cfg.MaxUploadBytes(), logger.Named("dataset"))

	completer, err := ai.NewCompleter(cfg.LLM)
	if err != nil {
		return nil, err
	}
	builder := ai.NewBuilder(completer, cfg.LLM, cache, logger.Named("llm"))
	a.insight = insight.NewService(builder, logger.Named("insight"))

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	a.pages = web.NewHandler(renderer, a.datasets, a.insight, cfg.Upload.MaxSizeMB, logger.Named("web"))
	a.limiter = a.rateLimiter()

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	a.router = router
	a.registerRoutes()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	registerCronJobs(a.sched, a.sweepers, logger)
	go a.sched.Start(ctx)

	logger.Info("application ready",
		zap.String("env", cfg.Env),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("store", a.storeName()),
		zap.Bool("s3_mirror", mirror != nil),
		zap.Duration("cache_ttl", cfg.LLM.CacheTTL),
	)
	return a, nil
}

// backends picks Redis or in-process stores. Memory ones are swept by cron.
func (a *App) backends() (dataset.Store, ai.Cache) {
	ttl := a.cfg.LLM.CacheTTL
	prefix := a.cfg.Redis.Prefix
	if a.redis != nil {
		var cache ai.Cache
		if ttl > 0 {
			cache = ai.NewRedisCache(a.redis, prefix, ttl)
		}
		return dataset.NewRedisStore(a.redis, prefix, a.cfg.DatasetTTL), cache
	}

	store := dataset.NewMemoryStore(a.cfg.DatasetTTL)
	a.sweepers = append(a.sweepers, sweeper{name: "sweep_datasets", description: "drop expired datasets", fn: store.Sweep})
	if ttl <= 0 {
		return store, nil
	}
	cache := ai.NewMemoryCache(ttl)
	a.sweepers = append(a.sweepers, sweeper{name: "sweep_llm_cache", description: "drop expired model replies", fn: cache.Sweep})
	return store, cache
}

func (a *App) rateLimiter() middleware.Limiter {
	rl := a.cfg.RateLimit
	if rl.PerMinute == 0 {
		return nil
	}
	if a.redis != nil {
		return middleware.NewRedisLimiter(a.redis, a.cfg.Redis.Prefix, rl.PerMinute)
	}
	limiter := middleware.NewMemoryLimiter(rl.PerMinute, rl.Burst)
	a.sweepers = append(a.sweepers, sweeper{name: "sweep_rate_limits", description: "drop idle rate limit buckets", fn: limiter.Sweep})
	return limiter
}

func (a *App) storeName() string {
	if a.redis != nil {
		return "redis"
	}
	return "memory"
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes Redis.
func (a *App) Shutdown() {
	a.cancel()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
