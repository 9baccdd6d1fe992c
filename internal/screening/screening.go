// Package screening scores job postings against the candidate profile:
// local heuristics first, then the model, one posting or a whole batch per
// call.
package screening

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/gateway"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/utils"
)

const (
	DefaultBatchSize      = 10
	DefaultMatchThreshold = 70

	PurposeSingle = "Job Screening"
	PurposeBatch  = "Job Screening (Batch)"

	singleTextLimit = 5000
	batchTextLimit  = 2000
)

const (
	ReasonCallFailed   = "AI Call Failed"
	ReasonParseError   = "AI JSON Parse Error"
	ReasonBatchMissing = "Batch Error / Parsing Failed"
	ReasonClearance    = "Heuristic: Security Clearance required but not in profile"
	ReasonCitizenship  = "Heuristic: US Citizenship required but not in profile"

	reasonMissing      = "No reason provided"
	reasonBatchMissing = "N/A"
)

// Source says how a result was produced.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
	SourceFallback  Source = "fallback"
)

type Job struct {
	ID   string
	Text string
}

type Result struct {
	Score  int
	Reason string
	Source Source
}

type Config struct {
	BatchSize           int  `mapstructure:"batch-size" validate:"gte=0"`
	MatchThreshold      int  `mapstructure:"match-threshold" validate:"gte=0,lte=100"`
	CitizenshipRequired bool `mapstructure:"citizenship-required"`
}

type Engine struct {
	gateway gateway.Invoker
	cfg     Config
	logger  *zap.Logger
}

func New(invoker gateway.Invoker, cfg Config, logger *zap.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{gateway: invoker, cfg: cfg, logger: logger}
}

// Actionable reports whether r clears the match threshold.
func (e *Engine) Actionable(r Result) bool {
	return r.Score >= e.cfg.MatchThreshold
}

func (e *Engine) Threshold() int {
	return e.cfg.MatchThreshold
}

// Heuristic applies the local hard-negative rules. It reports false when no
// rule fired and the posting needs the model.
func (e *Engine) Heuristic(jobText string, p profile.Profile) (Result, bool) {
	text := strings.ToLower(jobText)

	if containsAny(text, "security clearance", "secret clearance", "top secret") && !p.Mentions("clearance") {
		return Result{Score: 0, Reason: ReasonClearance, Source: SourceHeuristic}, true
	}

	if e.cfg.CitizenshipRequired &&
		containsAny(text, "us citizen only", "only us citizen", "u.s. citizens only", "us citizens only") &&
		!p.Mentions("citizen") {
		return Result{Score: 0, Reason: ReasonCitizenship, Source: SourceHeuristic}, true
	}

	return Result{}, false
}

// ScreenOne scores a single posting. Only fatal gateway errors are returned.
func (e *Engine) ScreenOne(ctx context.Context, jobText string, p profile.Profile) (Result, error) {
	if r, ok := e.Heuristic(jobText, p); ok {
		e.logger.Info("posting rejected by heuristic", zap.String("reason", r.Reason))
		return r, nil
	}

	raw, err := e.gateway.Invoke(ctx, singlePrompt(p.Text(), utils.TruncateRunes(jobText, singleTextLimit)), PurposeSingle)
	if err != nil {
		if gateway.IsFatal(err) {
			return Result{}, err
		}
		e.logger.Warn("screening call failed", zap.Error(err))
		return Result{Score: 0, Reason: ReasonCallFailed, Source: SourceFallback}, nil
	}

	data, err := ai.DecodeObject(raw)
	if err != nil {
		e.logger.Warn("screening response is not json",
			zap.Error(err),
			zap.String("response", utils.TruncateForLog(raw, 200)),
		)
		return Result{Score: 0, Reason: ReasonParseError, Source: SourceFallback}, nil
	}

	return parseResult(data, reasonMissing), nil
}

// ScreenBatch scores jobs keyed by Job.ID. Every id gets a result. On a fatal
// gateway error it stops and returns what was scored so far with the error.
func (e *Engine) ScreenBatch(ctx context.Context, jobs []Job, p profile.Profile) (map[string]Result, error) {
	results := make(map[string]Result, len(jobs))

	pending := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if r, ok := e.Heuristic(job.Text, p); ok {
			e.logger.Info("posting rejected by heuristic", zap.String("id", job.ID), zap.String("reason", r.Reason))
			results[job.ID] = r
			continue
		}
		pending = append(pending, job)
	}

	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(pending))
		chunk := pending[start:end]

		scored, err := e.screenChunk(ctx, chunk, p)
		if err != nil {
			return results, err
		}
		for id, r := range scored {
			results[id] = r
		}
	}

	return results, nil
}

func (e *Engine) screenChunk(ctx context.Context, chunk []Job, p profile.Profile) (map[string]Result, error) {
	log := e.logger.With(zap.Int("batch_size", len(chunk)))
	scored := make(map[string]Result, len(chunk))

	raw, err := e.gateway.Invoke(ctx, batchPrompt(p.Text(), formatBatch(chunk)), PurposeBatch)
	switch {
	case err != nil && gateway.IsFatal(err):
		return nil, err
	case err != nil:
		log.Warn("batch screening call failed", zap.Error(err))
	default:
		data, err := ai.DecodeObject(raw)
		if err != nil {
			log.Warn("batch screening response is not json", zap.Error(err))
			break
		}
		for id, value := range data {
			entry, ok := value.(map[string]any)
			if !ok {
				continue
			}
			scored[id] = parseResult(entry, reasonBatchMissing)
		}
	}

	results := make(map[string]Result, len(chunk))
	for _, job := range chunk {
		r, ok := scored[job.ID]
		if !ok {
			r = Result{Score: 0, Reason: ReasonBatchMissing, Source: SourceFallback}
		}
		results[job.ID] = r
	}

	log.Info("batch screened", zap.Int("parsed", len(scored)))
	return results, nil
}

func parseResult(data map[string]any, defaultReason string) Result {
	score, _ := ai.CoerceInt(data["score"])
	reason := strings.TrimSpace(ai.CoerceString(data["reason"]))
	if reason == "" {
		reason = defaultReason
	}
	return Result{Score: clamp(score, 0, 100), Reason: reason, Source: SourceModel}
}

func formatBatch(jobs []Job) string {
	var b strings.Builder
	for _, job := range jobs {
		fmt.Fprintf(&b, "\n[JOB_ID: %s]\n%s\n", job.ID, utils.Flatten(utils.TruncateRunes(job.Text, batchTextLimit)))
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
