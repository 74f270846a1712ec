package cli

import (
	"io"
	"os"
	"time"

	"visadesk/internal/autofill"
	"visadesk/internal/record"
	"visadesk/internal/update"

	"github.com/spf13/cobra"
)

func newAutofillCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autofill",
		Short: "Fill record fields from a passport MRZ or a postcode lookup",
	}
	cmd.AddCommand(newAutofillPassportCmd(app))
	cmd.AddCommand(newAutofillPostcodeCmd(app))
	return cmd
}

func readMRZ(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// applyChanges loads the record and runs changes through the same update
// path as console edits.
func applyChanges(cmd *cobra.Command, app *App, s *session, table record.Table, id, travelerID int64, changes []update.Change) error {
	ctx := cmd.Context()
	b, err := loadBoard(ctx, s, table, id, travelerID)
	if err != nil {
		return writeErr(cmd, err)
	}
	run, done := s.runner(ctx, b)
	defer done()
	rep, err := run.ApplyAll(ctx, table, id, changes)
	if err != nil {
		return writeErr(cmd, err)
	}
	return finishReport(cmd, app, b, table, id, rep)
}

func newAutofillPassportCmd(app *App) *cobra.Command {
	var (
		mrzFile    string
		dryRun     bool
		travelerID int64
	)
	cmd := &cobra.Command{
		Use:   "passport <table> <id>",
		Short: "Read a passport MRZ and fill name, gender, dob, nationality, number and expiry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := record.ParseTable(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := parseID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			text, err := readMRZ(cmd, mrzFile)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := autofill.ParseMRZ(text, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			if dryRun {
				return writeOut(cmd, app, envelope{Data: p, Meta: map[string]any{"changes": p.Changes()}})
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			return applyChanges(cmd, app, s, table, id, travelerID, p.Changes())
		},
	}
	cmd.Flags().StringVar(&mrzFile, "mrz-file", "-", "File holding the two MRZ lines (- for stdin)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and print the changes without sending them")
	cmd.Flags().Int64Var(&travelerID, "traveler", 0, "Traveler id of a dependent (default: the dependent's traveler_id)")
	return cmd
}

func newAutofillPostcodeCmd(app *App) *cobra.Command {
	var travelerID int64
	cmd := &cobra.Command{
		Use:   "postcode <table> <id> <postcode>",
		Short: "Look up a postcode and fill the address fields",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := record.ParseTable(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := parseID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			changes, err := autofill.Postcode(cmd.Context(), s.client, args[2])
			if err != nil {
				return writeErr(cmd, err)
			}
			return applyChanges(cmd, app, s, table, id, travelerID, changes)
		},
	}
	cmd.Flags().Int64Var(&travelerID, "traveler", 0, "Traveler id of a dependent (default: the dependent's traveler_id)")
	return cmd
}
