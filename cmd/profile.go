package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build the candidate profile from the resume and preferences, or show the stored one",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, cmd.Name()).withModel(ctx)
		defer s.close()

		if flagBool(cmd, "rebuild") {
			if err := os.Remove(s.profiles.ProfilePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.fatal("removing the stored profile", err)
			}
		}

		p, err := s.loadProfile(ctx)
		if err != nil {
			s.fatal("building the profile", err)
		}

		s.logger.Info("candidate profile", zap.String("path", s.profiles.ProfilePath()))
		cmd.Println(p.Text())
	},
}

var profilePositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Suggest job titles worth searching for",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		s := newSession(ctx, "profile positions").withModel(ctx)
		defer s.close()

		p, err := s.loadProfile(ctx)
		if err != nil {
			s.fatal("building the profile", err)
		}

		positions, err := s.profiles.Positions(ctx, p)
		if err != nil {
			s.fatal("suggesting positions", err)
		}

		s.logger.Info("suggested positions", zap.Strings("positions", positions), zap.String("path", s.profiles.PositionsPath()))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profilePositionsCmd)

	profileCmd.Flags().Bool("rebuild", false, "discard the stored profile and generate it again")
}
