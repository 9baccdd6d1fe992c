package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/ai/gemini"
	"github.com/spigell/jobpilot/internal/answers"
	"github.com/spigell/jobpilot/internal/gateway"
	"github.com/spigell/jobpilot/internal/intent"
	"github.com/spigell/jobpilot/internal/ledger"
	"github.com/spigell/jobpilot/internal/logger"
	"github.com/spigell/jobpilot/internal/preferences"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/screening"
	"github.com/spigell/jobpilot/internal/secrets"
	"github.com/spigell/jobpilot/internal/store"
)

const (
	apiKeyEnv   = "GEMINI_API_KEY"
	apiKeyHint  = "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or the 'ai.api-key-file' key in the configuration file"
	quotaHint   = "the daily call allowance is used up; wait until tomorrow or raise ai.max-daily-calls"
	rateHint    = "the provider keeps throttling requests; retry later or raise ai.retry-backoff"
	usageHint   = "the usage counter in the work directory cannot be written; check permissions and free space"
	sessionLogs = "session.log"
)

// session holds everything a command needs. Components that talk to the
// model are only built by withModel.
type session struct {
	ID     string
	config *Config
	prefs  *preferences.Preferences
	logger *zap.Logger

	gateway *gateway.Gateway
	ledger  *ledger.Ledger

	answers   *answers.Engine
	screening *screening.Engine
	profiles  *profile.Builder
}

// newSession builds the logger, reads the configuration and opens the
// ledger. It exits the process on failure like the rest of the cli.
func newSession(ctx context.Context, command string) *session {
	base, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		base.Fatal("getting a config", zap.Error(err))
	}

	if err := os.MkdirAll(config.WorkDir, 0o750); err != nil {
		base.Fatal("creating the work directory", zap.String("work-dir", config.WorkDir), zap.Error(err))
	}

	// Rebuild with a file sink so a session can be reviewed afterwards.
	base, err = logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
		File:  filepath.Join(config.WorkDir, sessionLogs),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	id := uuid.NewString()
	l := logger.ForSession(base, id, command)

	l.Info("starting the jobpilot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	prefs, err := config.structuredPreferences()
	if err != nil {
		l.Fatal("decoding preferences", zap.Error(err), zap.String("hint", "check the 'preferences' section of the configuration file"))
	}

	led, err := ledger.Open(ctx, filepath.Join(config.WorkDir, ledger.FileName), l)
	if err != nil {
		l.Fatal("opening the decision ledger", zap.Error(err))
	}

	s := &session{
		ID:     id,
		config: config,
		prefs:  prefs,
		logger: l,
		ledger: led,
	}
	s.gateway = s.newGateway(nil)

	return s
}

// withModel connects the session to the configured model and builds the
// engines on top of it.
func (s *session) withModel(ctx context.Context) *session {
	generator, err := s.newGenerator(ctx)
	if err != nil {
		s.logger.Fatal("building the model client", zap.Error(err), zap.String("hint", apiKeyHint))
	}

	s.gateway = s.newGateway(generator)

	aiLogger := logger.ForModel(s.logger, gemini.Provider, generator.Model())

	cache := store.NewJSONMap(s.path(answers.CacheFileName), aiLogger)
	seeds, err := intent.BuiltinSeeds()
	if err != nil {
		s.logger.Fatal("loading intent seeds", zap.Error(err))
	}
	classifier := intent.New(seeds, intent.LearnedSeeds(cache.All()))

	s.answers = answers.New(s.gateway, cache, classifier, s.prefs, aiLogger)
	s.screening = screening.New(s.gateway, screening.Config{
		BatchSize:           s.config.AI.BatchSize,
		MatchThreshold:      s.config.AI.MatchThreshold,
		CitizenshipRequired: s.config.AI.Heuristics.CitizenshipRequired,
	}, aiLogger)
	s.profiles = profile.NewBuilder(s.gateway, s.config.WorkDir, aiLogger)

	return s
}

func (s *session) newGenerator(ctx context.Context) (*gemini.Generator, error) {
	cfg := s.config.AI

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Env:   apiKeyEnv,
		Value: cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	return gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxLogLength, logger.ForModel(s.logger, gemini.Provider, cfg.Model))
}

func (s *session) newGateway(generator ai.Generator) *gateway.Gateway {
	cfg := s.config.AI

	maxCalls := cfg.MaxDailyCalls
	if maxCalls <= 0 {
		maxCalls = gateway.MaxDailyCallsFor(cfg.Model)
	}

	l := s.logger
	if generator != nil {
		l = logger.ForModel(l, gemini.Provider, generator.Model())
	}

	return gateway.New(generator, gateway.Config{
		CacheFile:     s.path(gateway.CacheFileName),
		UsageFile:     s.path(gateway.UsageFileName),
		LogFile:       s.path(gateway.LogFileName),
		MaxDailyCalls: maxCalls,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, l)
}

// loadProfile returns the stored profile or builds it from the resume file.
func (s *session) loadProfile(ctx context.Context) (profile.Profile, error) {
	var resume string
	if s.config.ResumeFile != "" {
		data, err := os.ReadFile(s.config.ResumeFile)
		if err != nil {
			return profile.Profile{}, fmt.Errorf("read resume: %w", err)
		}
		resume = string(data)
	}

	return s.profiles.Build(ctx, resume, s.config.Preferences)
}

// fatal stops the session, pointing the operator at the quota or rate
// limit when that is the cause.
func (s *session) fatal(msg string, err error) {
	fields := []zap.Field{zap.Error(err)}

	switch {
	case errors.Is(err, gateway.ErrQuotaExceeded):
		fields = append(fields, zap.String("hint", quotaHint))
	case errors.Is(err, gateway.ErrRateLimitExhausted):
		fields = append(fields, zap.String("hint", rateHint))
	case errors.Is(err, gateway.ErrUsageUnsaved):
		fields = append(fields, zap.String("hint", usageHint))
	}

	s.close()
	s.logger.Fatal(msg, fields...)
}

func (s *session) path(name string) string {
	return filepath.Join(s.config.WorkDir, name)
}

func (s *session) close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn("closing the ledger", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) Config {
	out := *config
	if config.AI != nil {
		aiConfig := *config.AI
		if aiConfig.APIKey != "" {
			aiConfig.APIKey = "***"
		}
		out.AI = &aiConfig
	}
	return out
}
