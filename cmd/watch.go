package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	watchrender "github.com/iflb/neji-tutti-client/internal/adapters/render/watch"
	"github.com/iflb/neji-tutti-client/internal/domain"
)

func newWatchResponseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-response <automation-parameter-set-id> [last-watch-id]",
		Short: "Stream collected responses for published tasks",
		Long:  "watch-response follows the response stream of an automation parameter set. Pass a last-watch-id cursor to replay entries collected after it, \"0\" for the entire history, or nothing for future entries only.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apsID := domain.AutomationParameterSetID(args[0])
			lastWatchID := domain.WatchOnlyNew
			if len(args) == 2 {
				lastWatchID = domain.WatchID(args[1])
			}
			if err := lastWatchID.Validate(); err != nil {
				return err
			}

			client, err := connectAndSignIn(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			fmt.Fprintln(cmd.OutOrStdout(), watchrender.RenderBanner(apsID, lastWatchID))

			err = client.WatchResponsesForTasks(cmd.Context(), apsID, func(r domain.WatchedResponse) {
				fmt.Fprintln(cmd.OutOrStdout(), watchrender.RenderEntry(r))
			}, lastWatchID)

			// Interrupting the stream is the one way to stop watching.
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
