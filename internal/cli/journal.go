package cli

import (
	"strconv"

	"visadesk/internal/record"
	"visadesk/internal/store"

	"github.com/spf13/cobra"
)

type journalRows []store.JournalEntry

func (j journalRows) TableHeaders() []string {
	return []string{"AT", "RECORD", "FIELD", "VALUE", "PREVIOUS", "OUTCOME", "ERROR"}
}

func (j journalRows) TableRows() [][]string {
	out := make([][]string, 0, len(j))
	for _, e := range j {
		field := e.Field
		if e.Derived {
			field += " (derived)"
		}
		out = append(out, []string{
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Table + "/" + strconv.FormatInt(e.RecordID, 10),
			field,
			e.Value,
			e.Previous,
			e.Outcome,
			e.Error,
		})
	}
	return out
}

func newJournalCmd(app *App) *cobra.Command {
	var (
		limit int
		table string
		id    int64
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show the local log of edits sent to the backend (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := localStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			j, err := st.OpenJournal(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer j.Close()

			var entries []store.JournalEntry
			if id > 0 {
				t, perr := record.ParseTable(table)
				if perr != nil {
					return writeErr(cmd, perr)
				}
				entries, err = j.ForRecord(ctx, string(t), id, limit)
			} else {
				entries, err = j.Recent(ctx, limit)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if entries == nil {
				entries = []store.JournalEntry{}
			}
			return writeOut(cmd, app, envelope{Data: entries, rows: journalRows(entries)})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max entries")
	cmd.Flags().StringVar(&table, "table", "travelers", "Record table (with --id)")
	cmd.Flags().Int64Var(&id, "id", 0, "Only entries for this record")
	return cmd
}
