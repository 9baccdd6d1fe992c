package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/filtering"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/ledger"
	"github.com/spigell/jobpilot/internal/profile"
)

const (
	PromptRecordApplied   = "Record all as applied"
	PromptReportByCompany = "Report by companies"
	PromptManualRecord    = "Record outcomes in manual mode"
	PromptPostingsToFile  = "Dump postings to file"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Procced?",
	Items: []string{PromptRecordApplied, PromptReportByCompany, PromptManualRecord, PromptPostingsToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen postings against the profile and record the decisions",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addPostingsFlags(runCmd)
	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation if found suitable postings, just print them")
}

func addPostingsFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("postings", "p", "", "JSON file with the postings to screen")
	cmd.Flags().BoolP("ignore-ledger", "f", false, "screen postings even if the ledger already has a decision for them")
	cmd.MarkFlagRequired("postings")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	s := newSession(ctx, cmd.Name()).withModel(ctx)
	defer s.close()

	postings, filters, ok := screenPostings(ctx, cmd, s, false)
	if !ok {
		return
	}

	results := filters.Results()
	scores := func(p *jobs.Posting) map[string]string {
		r, ok := results[p.ID]
		if !ok {
			return nil
		}
		return map[string]string{"score": strconv.Itoa(r.Score), "reason": r.Reason}
	}

	for {
		if flagBool(cmd, "auto-aprove") {
			report(s.logger, postings, scores)
			return
		}

		_, action, err := prompt.Run()
		if err != nil {
			s.fatal("exiting", err)
		}

		s.logger.Info("current list of postings", zap.Int("count", postings.Len()))

		if err := handleAction(ctx, action, s, postings, scores); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			s.fatal("exiting", err)
		}
	}
}

// screenPostings loads the postings file and runs the filter pipeline. It
// returns false when nothing is left to act on.
func screenPostings(ctx context.Context, cmd *cobra.Command, s *session, scout bool) (*jobs.Postings, *filtering.Filtering, bool) {
	path, _ := cmd.Flags().GetString("postings")

	postings, err := jobs.LoadFile(path)
	if err != nil {
		s.fatal("loading postings", err)
	}

	s.logger.Info("loaded postings", zap.String("file", path), zap.Int("count", postings.Len()))

	if postings.Len() == 0 {
		s.logger.Info("exiting", zap.String("reason", "no postings found"))
		return nil, nil, false
	}

	p, err := s.loadProfile(ctx)
	if err != nil {
		if errors.Is(err, profile.ErrEmptyResume) {
			s.logger.Fatal("building the profile", zap.Error(err), zap.String("hint", "set 'resume-file' in the configuration file"))
		}
		s.fatal("building the profile", err)
	}

	filters := prepareFilters(cmd, s, p, scout)

	for _, st := range filters.Describe() {
		s.logger.Debug("filter", zap.String("name", st.Name), zap.Bool("enabled", st.Enabled), zap.Any("details", st.Details))
	}

	filtered, err := filters.RunFilters(ctx, postings)
	if err != nil {
		s.fatal("filtering failed", err)
	}

	if filtered.Len() == 0 {
		s.logger.Info("exiting", zap.String("reason", "no postings left after filters"))
		return nil, nil, false
	}

	return filtered, filters, true
}

func prepareFilters(cmd *cobra.Command, s *session, p profile.Profile, scout bool) *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewLedger(
			&filtering.LedgerConfig{Ignore: flagBool(cmd, "ignore-ledger")},
			&filtering.LedgerDeps{Ledger: s.ledger, Logger: s.logger},
		),
		filtering.NewBlacklist(s.config.Blacklist, &filtering.BlacklistDeps{Ledger: s.ledger, Logger: s.logger}),
		filtering.NewScreening(
			&filtering.ScreeningConfig{Enabled: true, Scout: scout},
			&filtering.ScreeningDeps{Screener: s.screening, Ledger: s.ledger, Profile: p, Logger: s.logger},
		),
	}

	return filtering.New(steps, s.logger)
}

func handleAction(ctx context.Context, action string, s *session, postings *jobs.Postings, scores func(*jobs.Posting) map[string]string) error {
	switch action {
	case PromptRecordApplied:
		if err := recordAll(ctx, s, postings, ledger.StatusApplied); err != nil {
			return err
		}
		return errExit
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptManualRecord:
		return manualRecord(ctx, s, postings)
	case PromptReportByCompany:
		report(s.logger, postings, scores)
		return nil
	case PromptPostingsToFile:
		filename, err := postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func report(logger *zap.Logger, postings *jobs.Postings, scores func(*jobs.Posting) map[string]string) {
	pretty, _ := json.MarshalIndent(postings.ReportByCompany(scores), "", "  ")
	logger.Info(string(pretty), zap.Int("postings count", postings.Len()))
}

func recordAll(ctx context.Context, s *session, postings *jobs.Postings, status ledger.Status) error {
	for _, p := range postings.Items {
		if err := s.ledger.Record(ctx, p.URL, p.Title, status, ""); err != nil {
			return err
		}
	}

	s.logger.Info("recorded postings", zap.String("status", status.String()), zap.Int("count", postings.Len()))
	return nil
}

func manualRecord(ctx context.Context, s *session, postings *jobs.Postings) error {
	for {
		items := make([]string, 0, postings.Len()+1)
		for _, p := range postings.Items {
			items = append(items, fmt.Sprintf("%s %s / %s", p.ID, p.Label(), p.URL))
		}

		postingPrompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := postingPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		id := strings.Split(selected, " ")[0]
		posting := postings.FindByID(id)
		if posting == nil {
			return fmt.Errorf("there is no such posting id %s", id)
		}

		statusPrompt := promptui.Select{
			Label: "Outcome",
			Items: append(statusNames(), PromptBack),
		}

		_, chosen, err := statusPrompt.Run()
		if err != nil {
			return err
		}
		if chosen == PromptBack {
			continue
		}

		status, err := ledger.ParseStatus(chosen)
		if err != nil {
			return err
		}

		if err := s.ledger.Record(ctx, posting.URL, posting.Title, status, "manual"); err != nil {
			return err
		}

		s.logger.Info("recorded posting",
			zap.String("posting_id", posting.ID),
			zap.String("title", posting.Title),
			zap.String("status", status.String()),
		)

		postings.Exclude(jobs.IDField, []string{posting.ID})
		if postings.Len() == 0 {
			return nil
		}
	}
}

func statusNames() []string {
	names := make([]string, 0)
	for _, st := range ledger.Statuses() {
		names = append(names, st.String())
	}
	return names
}

func flagBool(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && strings.EqualFold(flag.Value.String(), "true")
}
