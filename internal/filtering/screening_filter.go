package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/ledger"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/screening"
)

// Screener scores postings against the profile.
type Screener interface {
	ScreenBatch(ctx context.Context, jobs []screening.Job, p profile.Profile) (map[string]screening.Result, error)
	Actionable(r screening.Result) bool
}

type screeningFilter struct {
	enabled bool
	reason  string
	config  *ScreeningConfig
	deps    *ScreeningDeps
	results map[string]screening.Result
}

type ScreeningDeps struct {
	Screener Screener
	Ledger   Recorder
	Profile  profile.Profile
	Logger   *zap.Logger
}

type ScreeningConfig struct {
	Enabled bool
	// Scout keeps matches in the scout table and records nothing in the
	// decision ledger.
	Scout bool
}

// NewScreening creates the model-based screening step.
func NewScreening(cfg *ScreeningConfig, deps *ScreeningDeps) Filter {
	if cfg == nil {
		cfg = &ScreeningConfig{}
	}
	return &screeningFilter{
		enabled: cfg.Enabled,
		config:  cfg,
		deps:    deps,
		results: make(map[string]screening.Result),
	}
}

func (f *screeningFilter) Name() string { return "screening" }

func (f *screeningFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *screeningFilter) IsEnabled() bool { return f.enabled }

func (f *screeningFilter) Validate() error {
	if f.deps == nil {
		return fmt.Errorf("deps are not initialized: filter is not usable")
	}
	if f.deps.Screener == nil {
		return fmt.Errorf("screener is required")
	}
	if f.deps.Ledger == nil {
		return fmt.Errorf("ledger is required")
	}
	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if f.deps.Profile.IsZero() {
		return fmt.Errorf("candidate profile is required")
	}
	return nil
}

// Apply screens every posting. Postings that were scored before a fatal
// gateway error are still recorded, the rest are left for the next session.
func (f *screeningFilter) Apply(ctx context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()

	batch := make([]screening.Job, 0, p.Len())
	for _, posting := range p.Items {
		text, err := screening.PlainText(posting.Description)
		if err != nil {
			f.deps.Logger.Warn("converting description to text failed",
				zap.String("posting_id", posting.ID),
				zap.Error(err),
			)
			text = posting.Description
		}
		if text == "" {
			text = posting.Label()
		}
		batch = append(batch, screening.Job{ID: posting.ID, Text: text})
	}

	results, screenErr := f.deps.Screener.ScreenBatch(ctx, batch, f.deps.Profile)

	var recordErr error
	p.RemoveFunc(func(posting *jobs.Posting) bool {
		r, ok := results[posting.ID]
		if !ok || recordErr != nil {
			return screenErr != nil
		}
		f.results[posting.ID] = r

		keep, err := f.handle(ctx, posting, r)
		if err != nil {
			recordErr = err
		}
		return !keep
	})

	if screenErr != nil {
		return p, Step{}, screenErr
	}
	if recordErr != nil {
		return p, Step{}, recordErr
	}

	left := p.Len()
	return p, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *screeningFilter) handle(ctx context.Context, posting *jobs.Posting, r screening.Result) (bool, error) {
	log := f.deps.Logger.With(
		zap.String("posting_id", posting.ID),
		zap.String("title", posting.Title),
		zap.Int("score", r.Score),
		zap.String("reason", r.Reason),
	)

	if f.deps.Screener.Actionable(r) {
		if !f.config.Scout {
			log.Info("posting matched")
			return true, nil
		}

		added, err := f.deps.Ledger.AddScout(ctx, ledger.ScoutRecord{
			URL:      posting.URL,
			Title:    posting.Title,
			Company:  posting.Company,
			Location: posting.Location,
			Score:    r.Score,
			Reason:   r.Reason,
		})
		if err != nil {
			return true, fmt.Errorf("save scout posting %s: %w", posting.URL, err)
		}
		log.Info("posting found", zap.Bool("new", added))
		return true, nil
	}

	log.Info("posting skipped")
	if f.config.Scout {
		return false, nil
	}

	status := ledger.StatusSkippedLowScore
	if r.Source == screening.SourceHeuristic {
		status = ledger.StatusSkippedHeuristic
	}
	if err := f.deps.Ledger.Record(ctx, posting.URL, posting.Title, status, r.Reason); err != nil {
		return false, fmt.Errorf("record %s: %w", posting.URL, err)
	}
	return false, nil
}

// Results returns the screening result for every posting screened so far.
func (f *screeningFilter) Results() map[string]screening.Result {
	return f.results
}

func (f *screeningFilter) Status() Status {
	details := map[string]string{
		"scout": strconv.FormatBool(f.config.Scout),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// Results collects screening results from the steps that produced them.
func (f *Filtering) Results() map[string]screening.Result {
	out := make(map[string]screening.Result)
	for _, step := range f.steps {
		if collector, ok := step.(interface {
			Results() map[string]screening.Result
		}); ok {
			for id, r := range collector.Results() {
				out[id] = r
			}
		}
	}
	return out
}
