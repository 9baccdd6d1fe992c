package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain the decision ledger",
}

var ledgerStatusCmd = &cobra.Command{
	Use:   "status [URL]",
	Short: "Show the decision for a posting, or counts per status",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()

		s := newSession(ctx, "ledger status")
		defer s.close()

		if len(args) == 0 {
			counts, err := s.ledger.Counts(ctx)
			if err != nil {
				s.fatal("counting ledger records", err)
			}
			for _, st := range ledger.Statuses() {
				s.logger.Info("ledger status", zap.String("status", st.String()), zap.Int("count", counts[st]))
			}
			return
		}

		rec, err := s.ledger.Status(ctx, args[0])
		if err != nil {
			s.fatal("reading the ledger", err)
		}
		if rec == nil {
			s.logger.Info("posting not found in the ledger", zap.String("url", args[0]))
			return
		}

		s.logger.Info("posting found in the ledger",
			zap.String("url", rec.URL),
			zap.String("title", rec.Title),
			zap.String("status", rec.Status.String()),
			zap.String("reason", rec.Reason),
			zap.String("timestamp", rec.Timestamp),
		)
	},
}

var ledgerRecordCmd = &cobra.Command{
	Use:   "record URL STATUS",
	Short: "Record the outcome of a posting, e.g. after an application attempt",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		s := newSession(ctx, "ledger record")
		defer s.close()

		status, err := ledger.ParseStatus(args[1])
		if err != nil {
			s.logger.Fatal("parsing status", zap.Error(err), zap.Strings("allowed", statusNames()))
		}

		title, _ := cmd.Flags().GetString("title")
		reason, _ := cmd.Flags().GetString("reason")

		if err := s.ledger.Record(ctx, args[0], title, status, reason); err != nil {
			s.fatal("recording the posting", err)
		}

		s.logger.Info("recorded posting", zap.String("url", args[0]), zap.String("status", status.String()))
	},
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded postings, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, "ledger list")
		defer s.close()

		var status ledger.Status
		if raw, _ := cmd.Flags().GetString("status"); raw != "" {
			parsed, err := ledger.ParseStatus(raw)
			if err != nil {
				s.logger.Fatal("parsing status", zap.Error(err), zap.Strings("allowed", statusNames()))
			}
			status = parsed
		}

		records, err := s.ledger.List(ctx, status)
		if err != nil {
			s.fatal("listing the ledger", err)
		}

		pretty, _ := json.MarshalIndent(records, "", "  ")
		s.logger.Info(string(pretty), zap.Int("count", len(records)))
	},
}

var ledgerForgetCmd = &cobra.Command{
	Use:   "forget URL",
	Short: "Remove a posting from the ledger so it is screened again",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()

		s := newSession(ctx, "ledger forget")
		defer s.close()

		found, err := s.ledger.Forget(ctx, args[0])
		if err != nil {
			s.fatal("forgetting the posting", err)
		}

		s.logger.Info("forget posting", zap.String("url", args[0]), zap.Bool("found", found))
	},
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every decision from the ledger",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, "ledger reset")
		defer s.close()

		if !flagBool(cmd, "yes") && !confirm("Delete every recorded decision") {
			s.logger.Info("exiting", zap.String("reason", "reset not confirmed"))
			return
		}

		n, err := s.ledger.Reset(ctx)
		if err != nil {
			s.fatal("resetting the ledger", err)
		}

		s.logger.Info("ledger reset", zap.Int64("deleted", n))
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd, ledgerRecordCmd, ledgerListCmd, ledgerForgetCmd, ledgerResetCmd)

	ledgerRecordCmd.Flags().String("title", "", "posting title to store with the record")
	ledgerRecordCmd.Flags().String("reason", "", "free form reason")
	ledgerListCmd.Flags().String("status", "", fmt.Sprintf("show only records with this status (one of %q)", statusNames()))
	ledgerResetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(label string) bool {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := p.Run()
	return err == nil
}
