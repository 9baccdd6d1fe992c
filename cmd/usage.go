package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's model call count against the daily allowance",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, cmd.Name())
		defer s.close()

		count, limit, err := s.gateway.Usage()
		if err != nil {
			s.fatal("reading model usage", err)
		}

		s.logger.Info("model usage",
			zap.Int("calls", count),
			zap.Int("limit", limit),
			zap.Int("left", max(limit-count, 0)),
		)
	},
}

var usageResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set today's model call count back to zero",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, "usage reset")
		defer s.close()

		if !flagBool(cmd, "yes") && !confirm("Reset today's model call counter") {
			s.logger.Info("exiting", zap.String("reason", "reset not confirmed"))
			return
		}

		if err := s.gateway.ResetUsage(); err != nil {
			s.fatal("resetting model usage", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageResetCmd)

	usageResetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
