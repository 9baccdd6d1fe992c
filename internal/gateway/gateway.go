// Package gateway is the single path to the hosted model. It caches every
// response by prompt content, enforces the daily call allowance and retries
// throttled calls.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/store"
	"github.com/spigell/jobpilot/internal/utils"
)

var (
	// ErrQuotaExceeded means today's call allowance is used up.
	ErrQuotaExceeded = errors.New("daily model call quota exceeded")
	// ErrRateLimitExhausted means the provider kept throttling until retries ran out.
	ErrRateLimitExhausted = errors.New("model rate limit persisted after retries")
	// ErrUsageUnsaved means the daily counter could not be written, so the
	// allowance can no longer be enforced.
	ErrUsageUnsaved = errors.New("model usage counter cannot be saved")
	// ErrModelUnavailable wraps any other failure to obtain a response.
	ErrModelUnavailable = errors.New("model call failed")
)

// IsFatal reports whether err must stop the session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrRateLimitExhausted) ||
		errors.Is(err, ErrUsageUnsaved)
}

const (
	DefaultMaxDailyCalls      = 20
	DefaultGemmaMaxDailyCalls = 14400
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 20 * time.Second
	defaultErrorPause         = 2 * time.Second
)

// File names used inside the work directory.
const (
	CacheFileName = "prompt_cache.json"
	UsageFileName = "usage.json"
	LogFileName   = "api_usage_log.csv"
)

type Config struct {
	CacheFile     string
	UsageFile     string
	LogFile       string
	MaxDailyCalls int
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Invoker is what the engines need from the gateway.
type Invoker interface {
	Invoke(ctx context.Context, prompt any, purpose string) (string, error)
}

type Gateway struct {
	generator ai.Generator
	cache     *store.JSONMap
	usage     *usageCounter
	log       *usageLog
	logger    *zap.Logger

	maxRetries   int
	retryBackoff time.Duration
	errorPause   time.Duration

	group singleflight.Group
	wait  func(ctx context.Context, d time.Duration) error
}

func New(generator ai.Generator, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDailyCalls <= 0 {
		cfg.MaxDailyCalls = DefaultMaxDailyCalls
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}

	now := time.Now

	return &Gateway{
		generator:    generator,
		cache:        store.NewJSONMap(cfg.CacheFile, logger),
		usage:        &usageCounter{path: cfg.UsageFile, max: cfg.MaxDailyCalls, now: now, logger: logger},
		log:          &usageLog{path: cfg.LogFile, now: now},
		logger:       logger,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		errorPause:   defaultErrorPause,
		wait:         utils.WaitFor,
	}
}

// Invoke returns the model response for prompt, serving repeats from the
// cache without touching the quota.
func (g *Gateway) Invoke(ctx context.Context, prompt any, purpose string) (string, error) {
	text, err := Canonicalize(prompt)
	if err != nil {
		return "", err
	}
	key := Key(text)

	if cached, ok := g.cache.Get(key); ok {
		g.logger.Debug("prompt cache hit", zap.String("purpose", purpose), zap.String("key", key))
		return cached, nil
	}

	res, err, shared := g.group.Do(key, func() (any, error) {
		return g.call(ctx, key, text, purpose)
	})
	if shared {
		g.logger.Debug("shared in-flight model call", zap.String("purpose", purpose))
	}
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (g *Gateway) call(ctx context.Context, key, text, purpose string) (string, error) {
	if cached, ok := g.cache.Get(key); ok {
		return cached, nil
	}

	if g.generator == nil {
		return "", fmt.Errorf("%w: no model configured", ErrModelUnavailable)
	}

	usage, err := g.usage.reserve()
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			g.record(purpose, statusQuotaExceeded)
			g.logger.Error("daily model quota reached",
				zap.Int("count", usage.Count),
				zap.Int("max", g.usage.max),
			)
		}
		return "", err
	}

	g.logger.Info("model call",
		zap.String("purpose", purpose),
		zap.Int("usage", usage.Count),
		zap.Int("max", g.usage.max),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		out, err := g.generator.GenerateContent(ctx, text)
		if err == nil {
			if err := g.cache.Put(key, out); err != nil {
				g.logger.Warn("saving prompt cache failed", zap.Error(err))
			}
			g.record(purpose, statusSuccess)
			return out, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if errors.Is(err, ai.ErrRateLimited) {
			g.record(purpose, statusRateLimit)
			if attempt == g.maxRetries {
				g.record(purpose, statusFailedRateLimit)
				return "", fmt.Errorf("%w: %w", ErrRateLimitExhausted, err)
			}

			backoff := g.retryBackoff * time.Duration(attempt)
			g.logger.Warn("model rate limited, backing off",
				zap.String("purpose", purpose),
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", g.maxRetries),
			)
			if err := g.wait(ctx, backoff); err != nil {
				return "", err
			}
			continue
		}

		lastErr = err
		g.record(purpose, statusErrorPrefix+utils.TruncateForLog(err.Error(), 20))
		g.logger.Warn("model call failed",
			zap.String("purpose", purpose),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < g.maxRetries {
			if err := g.wait(ctx, g.errorPause); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: %w", ErrModelUnavailable, lastErr)
}

func (g *Gateway) record(purpose, status string) {
	if err := g.log.append(purpose, status); err != nil {
		g.logger.Warn("writing usage log failed", zap.Error(err))
	}
}

// Usage returns today's call count and the daily allowance.
func (g *Gateway) Usage() (int, int, error) {
	g.usage.mu.Lock()
	defer g.usage.mu.Unlock()

	return g.usage.today().Count, g.usage.max, nil
}

// ResetUsage sets today's counter back to zero.
func (g *Gateway) ResetUsage() error {
	if err := g.usage.reset(); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	g.logger.Info("model usage counter reset")
	return nil
}

// Model names the backing model, or "" when the gateway only serves
// bookkeeping such as usage reports.
func (g *Gateway) Model() string {
	if g.generator == nil {
		return ""
	}
	return g.generator.Model()
}

// MaxDailyCallsFor returns the default allowance for a model name.
func MaxDailyCallsFor(model string) int {
	if strings.Contains(strings.ToLower(model), "gemma") {
		return DefaultGemmaMaxDailyCalls
	}
	return DefaultMaxDailyCalls
}
