package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var answerCmd = &cobra.Command{
	Use:   "answer QUESTION",
	Short: "Answer an application form question",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		s := newSession(ctx, cmd.Name()).withModel(ctx)
		defer s.close()

		question := strings.Join(args, " ")
		options, _ := cmd.Flags().GetStringSlice("option")

		answer, err := s.answers.Resolve(ctx, question, strings.Join(options, ", "), s.loadProfile)
		if err != nil {
			s.fatal("answering the question", err)
		}

		if answer == nil {
			s.logger.Warn("no answer found", zap.String("question", question))
			return
		}

		s.logger.Info("answer",
			zap.String("question", question),
			zap.String("layer", string(answer.Layer)),
			zap.Float64("confidence", answer.Confidence),
		)
		cmd.Println(answer.Text)
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().StringSliceP("option", "o", nil, "an allowed choice for select or radio questions, can be repeated")
}
