// Package cli holds the cobra commands of the fitlog terminal client.
package cli

import (
	"github.com/2beens/fitlog/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd wires every command to app. The caller closes app once the
// command returned.
func NewRootCmd(app *App) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "fitlog",
		Short:         "Log workout sessions and track your profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout is for command output
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(logging.GetLevel(logLevel))
			return app.open()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "directory with config.yaml and credentials.yaml (default ~/.config/fitlog)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level [trace | debug | info | warn | error]")

	cmd.AddCommand(newSignInCommand(app))
	cmd.AddCommand(newSignUpCommand(app))
	cmd.AddCommand(newSignOutCommand(app))
	cmd.AddCommand(newSessionsCommand(app))
	cmd.AddCommand(newPresetsCommand(app))
	cmd.AddCommand(newProfileCommand(app))
	cmd.AddCommand(newBMICommand(app))
	return cmd
}
