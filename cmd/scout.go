package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Screen postings without recording decisions and keep the matches for later",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, cmd.Name()).withModel(ctx)
		defer s.close()

		postings, _, ok := screenPostings(ctx, cmd, s, true)
		if !ok {
			return
		}

		s.logger.Info("scouting finished", zap.Int("matches", postings.Len()))
	},
}

var scoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scouted postings, best score first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, "scout list")
		defer s.close()

		pending, _ := cmd.Flags().GetBool("pending")

		records, err := s.ledger.ScoutJobs(ctx, pending)
		if err != nil {
			s.fatal("listing scouted postings", err)
		}

		pretty, _ := json.MarshalIndent(records, "", "  ")
		s.logger.Info(string(pretty), zap.Int("count", len(records)))
	},
}

var scoutCompleteCmd = &cobra.Command{
	Use:   "complete URL",
	Short: "Mark a scouted posting as handled",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		s := newSession(ctx, "scout complete")
		defer s.close()

		undo, _ := cmd.Flags().GetBool("undo")

		found, err := s.ledger.SetScoutCompleted(ctx, args[0], !undo)
		if err != nil {
			s.fatal("updating the scouted posting", err)
		}
		if !found {
			s.logger.Warn("posting is not in the scout list", zap.String("url", args[0]))
			return
		}

		s.logger.Info("scouted posting updated", zap.String("url", args[0]), zap.Bool("completed", !undo))
	},
}

func init() {
	rootCmd.AddCommand(scoutCmd)
	scoutCmd.AddCommand(scoutListCmd, scoutCompleteCmd)

	addPostingsFlags(scoutCmd)
	scoutListCmd.Flags().Bool("pending", false, "show only postings not marked as completed")
	scoutCompleteCmd.Flags().Bool("undo", false, "mark the posting as pending again")
}
