package cli

import (
	"github.com/spf13/cobra"
)

func newStateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the console's saved view state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print ui_state.json (search, filters, sort, expanded record)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := localStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ui, err := st.LoadUIState()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: ui, Meta: map[string]any{"dir": st.Dir}})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the saved search, filters, sort and expanded record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := localStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.ResetUIState(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"reset": true}})
		},
	})
	return cmd
}
