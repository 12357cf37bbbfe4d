package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iflb/neji-tutti-client/internal/domain"
)

func newPublishCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <automation-parameter-set-id> <sync-id>",
		Short: "Publish an annotation task as a marketplace job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apsID := domain.AutomationParameterSetID(args[0])
			syncID := args[1]

			client, err := connectAndSignIn(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			result, err := client.PublishTasksToMarket(cmd.Context(), apsID, syncID)
			if err != nil {
				reportPartialResources(cmd, err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Nanotask Group ID: %s\n", result.NanotaskGroupID)
			fmt.Fprintf(cmd.OutOrStdout(), "Job ID: %s\n", result.JobID)
			return nil
		},
	}
}

// reportPartialResources names remote resources that were already created
// before a publish failure, so they can be cleaned up by hand.
func reportPartialResources(cmd *cobra.Command, err error) {
	var publishErr *domain.PublishError
	if !errors.As(err, &publishErr) {
		return
	}

	if len(publishErr.NanotaskIDs) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "nanotasks already created: %v\n", publishErr.NanotaskIDs)
	}
	if publishErr.NanotaskGroupID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "nanotask group already created: %s\n", publishErr.NanotaskGroupID)
	}
}
