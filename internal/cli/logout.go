package cli

import (
	"visadesk/internal/store"

	"github.com/spf13/cobra"
)

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err == nil {
				// The server may already have expired the session.
				if lerr := s.client.Logout(cmd.Context()); lerr != nil {
					warn(cmd, "server logout failed: "+lerr.Error())
				}
			}
			if err := store.ClearToken(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"loggedOut": true}})
		},
	}
}
