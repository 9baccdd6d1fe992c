package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/ledger"
)

const (
	ReasonTitleMatch   = "Title Match"
	ReasonCompanyMatch = "Company Match"
)

type blacklistFilter struct {
	titles    []string
	companies []string
	deps      *BlacklistDeps
}

type BlacklistConfig struct {
	Titles    []string `mapstructure:"titles"`
	Companies []string `mapstructure:"companies"`
}

type BlacklistDeps struct {
	Ledger Recorder
	Logger *zap.Logger
}

// NewBlacklist creates a filter that drops postings whose title or company
// contains a blacklisted term and records them in the ledger.
func NewBlacklist(cfg *BlacklistConfig, deps *BlacklistDeps) Filter {
	f := &blacklistFilter{deps: deps}
	if cfg != nil {
		f.titles = lowerAll(cfg.Titles)
		f.companies = lowerAll(cfg.Companies)
	}
	return f
}

func (f *blacklistFilter) Name() string { return "blacklist" }

func (f *blacklistFilter) Disable(string) {}

func (f *blacklistFilter) IsEnabled() bool { return true }

func (f *blacklistFilter) Validate() error {
	if f.deps == nil || f.deps.Ledger == nil || f.deps.Logger == nil {
		return fmt.Errorf("deps are not initialized: filter is not usable")
	}
	return nil
}

func (f *blacklistFilter) Apply(ctx context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.titles) == 0 && len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	var recordErr error
	excluded := p.RemoveFunc(func(posting *jobs.Posting) bool {
		if recordErr != nil {
			return false
		}

		status, reason, term := f.match(posting)
		if status == "" {
			return false
		}

		if err := f.deps.Ledger.Record(ctx, posting.URL, posting.Title, status, reason); err != nil {
			recordErr = fmt.Errorf("record %s: %w", posting.URL, err)
			return false
		}

		f.deps.Logger.Info("posting blacklisted",
			zap.String("posting_id", posting.ID),
			zap.String("status", status.String()),
			zap.String("term", term),
		)
		return true
	})
	if recordErr != nil {
		return p, Step{}, recordErr
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *blacklistFilter) match(posting *jobs.Posting) (ledger.Status, string, string) {
	title := strings.ToLower(posting.Title)
	for _, term := range f.titles {
		if strings.Contains(title, term) {
			return ledger.StatusBlacklistedTitle, ReasonTitleMatch, term
		}
	}

	company := strings.ToLower(posting.Company)
	for _, term := range f.companies {
		if strings.Contains(company, term) {
			return ledger.StatusBlacklistedCompany, ReasonCompanyMatch, term
		}
	}

	return "", "", ""
}

func (f *blacklistFilter) Status() Status {
	details := map[string]string{}
	if len(f.titles) > 0 {
		details["titles"] = strings.Join(f.titles, ",")
	}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
