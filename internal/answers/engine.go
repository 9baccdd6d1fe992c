// Package answers resolves free-text application questions into committed
// answers, trying cheap deterministic sources before the model.
package answers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/gateway"
	"github.com/spigell/jobpilot/internal/intent"
	"github.com/spigell/jobpilot/internal/preferences"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/store"
	"github.com/spigell/jobpilot/internal/utils"
)

const (
	// CacheFileName is the answer cache inside the work directory.
	CacheFileName = "qa_cache.json"

	// FuzzyCutoff is the minimum similarity ratio for a fuzzy cache hit.
	FuzzyCutoff = 0.95
)

// Layer names the source that produced an answer.
type Layer string

const (
	LayerRule       Layer = "strict_rule"
	LayerExactCache Layer = "exact_cache"
	LayerFuzzyCache Layer = "fuzzy_cache"
	LayerIntent     Layer = "intent"
	LayerModel      Layer = "model"
	LayerModelRaw   Layer = "model_raw"
)

type Answer struct {
	Text       string
	Layer      Layer
	Confidence float64
}

type Engine struct {
	gateway    gateway.Invoker
	cache      *store.JSONMap
	classifier *intent.Classifier
	prefs      *preferences.Preferences
	logger     *zap.Logger
	maxLogLen  int
}

// New builds an engine. classifier may be nil, which disables intent matching.
func New(invoker gateway.Invoker, cache *store.JSONMap, classifier *intent.Classifier, prefs *preferences.Preferences, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefs == nil {
		prefs = &preferences.Preferences{}
	}
	return &Engine{
		gateway:    invoker,
		cache:      cache,
		classifier: classifier,
		prefs:      prefs,
		logger:     logger,
		maxLogLen:  80,
	}
}

// ProfileLoader yields the candidate profile. Resolve calls it only when a
// question reaches the model.
type ProfileLoader func(ctx context.Context) (profile.Profile, error)

// Answer returns the answer for question, or nil when no layer produced a
// usable one. Only quota exhaustion and persistent throttling are returned
// as errors.
func (e *Engine) Answer(ctx context.Context, question, options string, p profile.Profile) (*Answer, error) {
	return e.Resolve(ctx, question, options, func(context.Context) (profile.Profile, error) {
		return p, nil
	})
}

// Resolve is Answer with the profile loaded on demand. A failure to load the
// profile is returned as is.
func (e *Engine) Resolve(ctx context.Context, question, options string, load ProfileLoader) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	log := e.logger.With(zap.String("question", utils.TruncateForLog(question, e.maxLogLen)))

	if rule, value, ok := matchRule(question, e.prefs); ok {
		log.Info("answered by strict rule", zap.String("rule", rule))
		return &Answer{Text: value, Layer: LayerRule}, nil
	}

	if answer := e.fromExactCache(question, log); answer != nil {
		return answer, nil
	}

	if answer := e.fromFuzzyCache(question, log); answer != nil {
		return answer, nil
	}

	if answer := e.fromIntent(question, log); answer != nil {
		return answer, nil
	}

	if e.gateway == nil {
		return nil, nil
	}

	p, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return e.fromModel(ctx, question, options, p, log)
}

func (e *Engine) fromExactCache(question string, log *zap.Logger) *Answer {
	stored, ok := e.cache.Get(question)
	if !ok {
		return nil
	}

	clean := CleanCached(stored, question, e.prefs.DefaultExperience())
	if clean == "" {
		return nil
	}

	if clean != stored {
		log.Info("repairing cached answer", zap.String("from", stored), zap.String("to", clean))
		if err := e.cache.Put(question, clean); err != nil {
			log.Warn("saving repaired answer failed", zap.Error(err))
		}
	}

	log.Debug("answered from cache")
	return &Answer{Text: clean, Layer: LayerExactCache}
}

func (e *Engine) fromFuzzyCache(question string, log *zap.Logger) *Answer {
	entries := e.cache.All()
	if len(entries) == 0 {
		return nil
	}

	target := strings.Split(question, "")

	var (
		bestKey   string
		bestScore float64
	)
	for key := range entries {
		m := difflib.NewMatcher(strings.Split(key, ""), target)
		if m.RealQuickRatio() < FuzzyCutoff || m.QuickRatio() < FuzzyCutoff {
			continue
		}
		score := m.Ratio()
		if score < FuzzyCutoff {
			continue
		}
		if score > bestScore || (score == bestScore && key > bestKey) {
			bestKey, bestScore = key, score
		}
	}

	if bestKey == "" {
		return nil
	}

	stored := strings.TrimSpace(entries[bestKey])
	if stored == "" {
		return nil
	}

	log.Info("answered from similar cached question",
		zap.String("matched", utils.TruncateForLog(bestKey, e.maxLogLen)),
		zap.Float64("ratio", bestScore),
	)
	return &Answer{Text: entries[bestKey], Layer: LayerFuzzyCache, Confidence: bestScore}
}

func (e *Engine) fromIntent(question string, log *zap.Logger) *Answer {
	if e.classifier == nil {
		return nil
	}

	match, ok := e.classifier.Match(question)
	if !ok {
		log.Debug("no confident intent match", zap.Float64("confidence", match.Confidence))
		return nil
	}

	value, ok := intent.Resolve(match.Key, e.prefs)
	if !ok {
		log.Debug("intent has no configured value", zap.String("intent", match.Key.String()))
		return nil
	}

	log.Info("answered by intent",
		zap.String("intent", match.Key.String()),
		zap.Float64("confidence", match.Confidence),
	)
	return &Answer{Text: value, Layer: LayerIntent, Confidence: match.Confidence}
}

func (e *Engine) fromModel(ctx context.Context, question, options string, p profile.Profile, log *zap.Logger) (*Answer, error) {
	raw, err := e.gateway.Invoke(ctx, buildPrompt(question, options, p.Text()), PurposeQuestionAnswering)
	if err != nil {
		if gateway.IsFatal(err) {
			return nil, err
		}
		log.Warn("model could not answer", zap.Error(err))
		return nil, nil
	}

	data, err := ai.DecodeObject(raw)
	if err != nil {
		log.Warn("model answer is not json, using raw text", zap.Error(err))
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, nil
		}
		return &Answer{Text: text, Layer: LayerModelRaw}, nil
	}

	kind := ParseKind(ai.CoerceString(data["type"]))
	final := Normalize(ai.CoerceString(data["answer"]), kind, question, e.prefs.DefaultExperience())
	if final == "" {
		log.Warn("model returned an empty answer")
		return nil, nil
	}

	if err := e.cache.Put(question, final); err != nil {
		log.Warn("saving answer failed", zap.Error(err))
	}
	if e.classifier != nil {
		e.classifier.Learn(question, final)
	}

	log.Info("answered by model", zap.String("type", string(kind)), zap.String("answer", final))
	return &Answer{Text: final, Layer: LayerModel}, nil
}
