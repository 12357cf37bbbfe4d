package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	watchrender "github.com/iflb/neji-tutti-client/internal/adapters/render/watch"
	"github.com/iflb/neji-tutti-client/internal/application"
	"github.com/iflb/neji-tutti-client/internal/domain"
)

const (
	worksPasswordSecretKey  = "works.password"
	marketPasswordSecretKey = "market.password"
)

// connectAndSignIn opens both sides and signs in from the wired config, the
// preamble every command shares. The caller owns closing the client.
func connectAndSignIn(cmd *cobra.Command, app *app) (*application.Client, error) {
	ctx := cmd.Context()

	worksPassword, err := app.secrets.Get(ctx, worksPasswordSecretKey)
	if err != nil {
		return nil, fmt.Errorf("resolve works password: %w", err)
	}
	marketPassword, err := app.secrets.Get(ctx, marketPasswordSecretKey)
	if err != nil {
		return nil, fmt.Errorf("resolve market password: %w", err)
	}

	client := app.newClient()
	if err := client.Open(ctx, app.config.WorksHost, app.config.MarketHost); err != nil {
		reportConnectionError(cmd, err)
		return nil, err
	}

	err = client.SignIn(ctx,
		domain.WorksByPassword(app.config.WorksUser, worksPassword),
		application.MarketSignInParams{
			UserID:              app.config.MarketUser,
			Password:            marketPassword,
			AccessTokenLifetime: app.config.AccessTokenLifetime,
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func reportConnectionError(cmd *cobra.Command, err error) {
	var connErr *domain.ConnectionError
	if errors.As(err, &connErr) {
		fmt.Fprintln(cmd.ErrOrStderr(), watchrender.RenderConnectionError(connErr))
	}
}
