package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/utils"
)

// SkipServicesAnnotation marks commands that only need the logger and config
const SkipServicesAnnotation = "skipServices"

// AuthGmailCmd creates the authGmail command
func AuthGmailCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:         "authGmail",
		Short:       "Authorize the gmail transport and cache its token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{SkipServicesAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				return fmt.Errorf("failed to load OAuth client config: %w", err)
			}

			oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
			if err != nil {
				return err
			}

			if _, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Gmail token cached for environment %q\n\n", app.Env)
			return nil
		},
	}
}
