package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "njt",
		Short:         "Neji Tutti client: publish annotation tasks and watch their responses",
		Long:          "njt connects to a Tutti.works and a Tutti.market server, publishes annotation tasks as marketplace jobs, and streams collected responses back to the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newPublishCmd(app),
		newWatchResponseCmd(app),
		newTestConnectionCmd(app),
	)

	return rootCmd
}
