package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/2beens/fitlog/internal/identity"

	"github.com/spf13/cobra"
)

type passwordCall func(ctx context.Context, email, password string) (*identity.User, error)

func newSignInCommand(app *App) *cobra.Command {
	return newCredentialsCommand(app, "signin", "Sign in with email and password", func() passwordCall {
		return app.provider.SignIn
	})
}

func newSignUpCommand(app *App) *cobra.Command {
	return newCredentialsCommand(app, "signup", "Create an account and sign in", func() passwordCall {
		return app.provider.SignUp
	})
}

// newCredentialsCommand resolves the provider call lazily since the
// provider is built in the root pre-run.
func newCredentialsCommand(app *App, use, short string, call func() passwordCall) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			user, err := call()(cmd.Context(), email, password)
			if err != nil {
				var authErr *identity.AuthError
				if errors.As(err, &authErr) {
					return errors.New(authErr.Message)
				}
				return fmt.Errorf("%s: %w", use, err)
			}

			app.cell.Set(user)
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when omitted)")
	return cmd
}

func readPassword(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func newSignOutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cell.Current() == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			app.cell.Set(nil)
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}
