package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/inventory"
)

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var username string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with the site username. The password is read from standard
input, one line. The session is stored so later commands run signed in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if !s.RequiresLogin() {
				fmt.Fprintln(cmd.OutOrStdout(), "Este backend no requiere inicio de sesión.")
				return nil
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(username) == "" {
				username = s.Prefs.LastUsername
			}
			if strings.TrimSpace(username) == "" {
				fmt.Fprint(out, "Usuario: ")
				if username, err = s.prompt.ReadLine(); err != nil && username == "" {
					return NewExitError(ExitCommandError, "usuario requerido")
				}
			}
			if !passwordStdin {
				fmt.Fprint(out, "Contraseña: ")
			}
			password, err := s.prompt.ReadLine()
			if err != nil && password == "" {
				return NewExitError(ExitCommandError, "contraseña requerida")
			}

			if err := s.Engine.Login(cmd.Context(), username, password); err != nil {
				if errors.Is(err, inventory.ErrAuthFailed) {
					return WrapExitError(ExitFailure, engine.LoginFailedMessage, err)
				}
				return classify(err)
			}
			s.RememberUser(strings.TrimSpace(username))
			snap := s.Engine.Snapshot()
			fmt.Fprintf(out, "Sesión iniciada como %s. %d materiales, %d movimientos.\n", snap.User.Username, len(snap.Materials), len(snap.Movements))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username (default: last used)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin without prompting")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Engine.Logout(cmd.Context()); err != nil {
				// Local state is cleared either way.
				fmt.Fprintf(cmd.ErrOrStderr(), "aviso: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sesión cerrada.")
			return nil
		},
	}
}
