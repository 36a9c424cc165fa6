package ai

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appcfg "github.com/reviewinsight/server/internal/config"
	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
)

// Builder renders the four review prompts and sends them through a Completer.
// Replies are returned verbatim; parsing is the caller's job.
type Builder struct {
	completer Completer
	cfg       appcfg.LLMConfig
	cache     Cache
	logger    *zap.Logger
	inflight  singleflight.Group
}

// NewBuilder wires a Builder. A nil cache disables memoization.
func NewBuilder(completer Completer, cfg appcfg.LLMConfig, cache Cache, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{completer: completer, cfg: cfg, cache: cache, logger: logger}
}

// Summarize asks for the Index,Review,Satisfaction Score,Sentiment CSV.
func (b *Builder) Summarize(ctx context.Context, reviews models.ReviewSet) (string, error) {
	return b.run(ctx, appcfg.TaskSummarize, summarizeSystemPrompt, serializeIndexed(reviews))
}

// Tag asks for the Index,Tags CSV.
func (b *Builder) Tag(ctx context.Context, reviews models.ReviewSet) (string, error) {
	return b.run(ctx, appcfg.TaskTag, tagSystemPrompt, serializeIndexed(reviews))
}

// Analyze asks for a free-text business summary of all reviews.
func (b *Builder) Analyze(ctx context.Context, reviews models.ReviewSet) (string, error) {
	return b.run(ctx, appcfg.TaskAnalysis, analysisSystemPrompt, serializePlain(reviews))
}

// Suggest asks for free-text improvement recommendations.
func (b *Builder) Suggest(ctx context.Context, reviews models.ReviewSet) (string, error) {
	return b.run(ctx, appcfg.TaskImprovements, improvementsSystemPrompt, serializePlain(reviews))
}

func (b *Builder) run(ctx context.Context, task, system, block string) (string, error) {
	tc := b.cfg.Task(task)
	if strings.TrimSpace(tc.APIKey) == "" {
		return "", apperr.Config("missing API key for %s (set %s_key or llm.api_key)", task, task)
	}
	if strings.TrimSpace(tc.Model) == "" {
		return "", apperr.Config("missing model for %s", task)
	}

	req := Request{
		Task:      task,
		Model:     tc.Model,
		APIKey:    tc.APIKey,
		System:    system,
		User:      userTurn(block),
		MaxTokens: b.cfg.MaxTokens,
	}
	key := CacheKey(task, req.Model, req.User)

	if b.cache != nil && b.cfg.CacheTTL > 0 {
		if reply, ok, err := b.cache.Get(ctx, key); err != nil {
			b.logger.Warn("llm cache read failed", zap.String("task", task), zap.Error(err))
		} else if ok {
			b.logger.Debug("llm cache hit", zap.String("task", task), zap.String("model", req.Model))
			return reply, nil
		}
	}

	// The shared call outlives any single caller; each caller waits on its own ctx.
	ch := b.inflight.DoChan(key, func() (interface{}, error) {
		return b.call(context.WithoutCancel(ctx), req, key)
	})
	select {
	case <-ctx.Done():
		return "", apperr.Provider(0, ctx.Err(), "%s: caller gave up", task)
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			b.logger.Debug("llm call shared", zap.String("task", task))
		}
		return res.Val.(string), nil
	}
}

func (b *Builder) call(ctx context.Context, req Request, key string) (string, error) {
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := b.completer.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		b.logger.Error("llm call failed",
			zap.String("task", req.Task),
			zap.String("model", req.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		if apperr.KindOf(err) == "" {
			err = apperr.Provider(0, err, "%s: request failed", req.Task)
		}
		return "", err
	}
	b.logger.Info("llm call",
		zap.String("task", req.Task),
		zap.String("model", req.Model),
		zap.Int("user_bytes", len(req.User)),
		zap.Int("reply_bytes", len(reply)),
		zap.Duration("elapsed", elapsed),
	)
	b.logger.Debug("llm reply", zap.String("task", req.Task), zap.String("preview", truncateText(reply, 200)))

	if b.cache != nil && b.cfg.CacheTTL > 0 {
		if err := b.cache.Set(ctx, key, reply); err != nil {
			b.logger.Warn("llm cache write failed", zap.String("task", req.Task), zap.Error(err))
		}
	}
	return reply, nil
}
