package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
)

const forceFlagSetMsg = "force flag is set"

type ledgerFilter struct {
	deps   *LedgerDeps
	ignore bool
}

type LedgerDeps struct {
	Ledger Recorder
	Logger *zap.Logger
}

type LedgerConfig struct {
	Ignore bool
}

// NewLedger creates a filter that removes postings already present in the ledger.
func NewLedger(cfg *LedgerConfig, deps *LedgerDeps) Filter {
	ignore := false
	if cfg != nil {
		ignore = cfg.Ignore
	}

	return &ledgerFilter{
		deps:   deps,
		ignore: ignore,
	}
}

func (f *ledgerFilter) Name() string { return "ledger" }

func (f *ledgerFilter) Disable(string) {}

func (f *ledgerFilter) IsEnabled() bool { return true }

func (f *ledgerFilter) Validate() error {
	if f.deps == nil || f.deps.Ledger == nil {
		return fmt.Errorf("ledger is required")
	}

	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	return nil
}

func (f *ledgerFilter) Apply(ctx context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.ignore {
		f.deps.Logger.Info("ignoring already processed postings", zap.String("reason", forceFlagSetMsg))
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	seen := make(map[string]bool, p.Len())
	for _, posting := range p.Items {
		ok, err := f.deps.Ledger.Seen(ctx, posting.URL)
		if err != nil {
			return p, Step{}, fmt.Errorf("check ledger for %s: %w", posting.URL, err)
		}
		seen[posting.ID] = ok
	}

	excluded := p.RemoveFunc(func(posting *jobs.Posting) bool { return seen[posting.ID] })
	if len(excluded) > 0 {
		f.deps.Logger.Info("excluding postings already in the ledger",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *ledgerFilter) Status() Status {
	details := map[string]string{
		"exclude_processed": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
