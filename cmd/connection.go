package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestConnectionCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check that both servers are reachable and credentials work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connectAndSignIn(cmd, app)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			fmt.Fprintln(cmd.OutOrStdout(), "open and sign_in finished")
			return client.SignOut(cmd.Context())
		},
	}
}
