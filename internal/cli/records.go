package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"visadesk/internal/edit"
	"visadesk/internal/fields"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/update"

	"github.com/spf13/cobra"
)

// recordRows renders a group as one row per non-empty field.
type recordRows struct {
	group record.Group
	reg   *fields.Registry
}

func (r recordRows) TableHeaders() []string { return []string{"RECORD", "FIELD", "VALUE"} }

func (r recordRows) TableRows() [][]string {
	var out [][]string
	for _, rec := range r.group.Records() {
		for _, f := range r.reg.Order(string(rec.Table)) {
			if v := rec.Get(f); v != "" {
				out = append(out, []string{rec.Key(), r.reg.Lookup(f).Label, v})
			}
		}
	}
	return out
}

// loadBoard fetches the group holding a record and renders it with the
// record expanded, fetching the full record when the group only carries a
// summary of it.
func loadBoard(ctx context.Context, s *session, table record.Table, id, travelerID int64) (*render.Board, error) {
	if table == record.Travelers {
		travelerID = id
	}
	if travelerID <= 0 {
		dep, err := s.client.FetchRecord(ctx, table, id)
		if err != nil {
			return nil, err
		}
		tid, perr := parseID(dep.Get("traveler_id"))
		if perr != nil {
			return nil, errMissingTraveler(dep.Key())
		}
		travelerID = tid
	}
	g, err := s.client.FetchGroup(ctx, travelerID)
	if err != nil {
		return nil, err
	}
	b := render.NewBoard(render.NewRenderer(s.reg))
	b.Reset([]record.Group{g})
	needsFetch, err := b.Expand(table, id)
	if errors.Is(err, render.ErrUnknownRecord) {
		return nil, errNotFound(string(table), strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, err
	}
	if needsFetch {
		full, err := s.client.FetchRecord(ctx, table, id)
		if err != nil {
			return nil, err
		}
		if err := b.Loaded(full); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *session) runner(ctx context.Context, b *render.Board) (*update.Runner, func()) {
	run := &update.Runner{
		Coord: update.NewCoordinator(b.Renderer()),
		Board: b,
		Patch: s.client,
		Fetch: s.client,
		Log:   s.log,
	}
	j, err := s.store.OpenJournal(ctx)
	if err != nil {
		s.log.Warn("edit journal unavailable", "err", err)
		return run, func() {}
	}
	run.Journal = j
	return run, func() { _ = j.Close() }
}

// resultOut is the printable form of an update.Result.
type resultOut struct {
	Key       string   `json:"key"`
	Phase     string   `json:"phase"`
	Value     string   `json:"value"`
	Previous  string   `json:"previous"`
	Derived   bool     `json:"derived,omitempty"`
	Stale     bool     `json:"stale,omitempty"`
	Error     string   `json:"error,omitempty"`
	Followups []string `json:"followups,omitempty"`
}

type reportOut struct {
	Results   []resultOut    `json:"results"`
	Persisted []resultOut    `json:"persisted,omitempty"`
	Notices   []string       `json:"notices,omitempty"`
	Refetched bool           `json:"refetched,omitempty"`
	Record    *record.Record `json:"record,omitempty"`
}

func (r reportOut) TableHeaders() []string { return []string{"FIELD", "PHASE", "VALUE", "ERROR"} }

func (r reportOut) TableRows() [][]string {
	var out [][]string
	for _, x := range append(append([]resultOut(nil), r.Results...), r.Persisted...) {
		out = append(out, []string{x.Key, x.Phase, x.Value, x.Error})
	}
	return out
}

func toReportOut(rep update.Report) reportOut {
	out := reportOut{Notices: rep.Notices, Refetched: rep.Refetched, Results: []resultOut{}}
	for _, res := range rep.Results {
		ro := resultOut{
			Key:      res.Key.String(),
			Phase:    res.Phase.String(),
			Value:    res.Value,
			Previous: res.Previous,
			Derived:  res.Derived,
			Stale:    res.Stale,
		}
		if res.Err != nil {
			ro.Error = res.Err.Error()
		}
		for _, f := range res.Followups {
			ro.Followups = append(ro.Followups, f.String())
		}
		out.Results = append(out.Results, ro)
	}
	for _, p := range rep.Persisted {
		ro := resultOut{Key: p.Key.String(), Phase: update.Committed.String(), Value: p.Value, Derived: true}
		if p.Err != nil {
			ro.Phase = update.Failed.String()
			ro.Error = p.Err.Error()
		}
		out.Persisted = append(out.Persisted, ro)
	}
	return out
}

// finishReport prints the report, warns about every notice and turns a
// failed write into the command's error.
func finishReport(cmd *cobra.Command, app *App, b *render.Board, table record.Table, id int64, rep update.Report) error {
	out := toReportOut(rep)
	if gv, _, ok := b.Find(table, id); ok {
		if _, rec, ok := gv.Lookup(table, id); ok {
			c := rec.Clone()
			out.Record = &c
		}
	}
	for _, n := range rep.Notices {
		warn(cmd, n)
	}
	if err := writeOut(cmd, app, envelope{Data: out, rows: out}); err != nil {
		return err
	}
	if err := rep.Err(); err != nil {
		return err
	}
	return nil
}

var errUnchanged = errors.New("value unchanged")

func newRecordsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "r"},
		Short:   "Edit and delete travelers and dependents",
	}
	cmd.AddCommand(newRecordsSetCmd(app))
	cmd.AddCommand(newRecordsDeleteCmd(app))
	return cmd
}

func newRecordsSetCmd(app *App) *cobra.Command {
	var travelerID int64
	cmd := &cobra.Command{
		Use:   "set <table> <id> <field> <value>",
		Short: "Set one field, applying the same derivations as the console (name, title, doc date)",
		Long: `Set one field of a traveler or dependent.

Dates use DD/MM/YYYY. Multi-select fields take values joined by " - ".
An empty value clears the field. Setting the current value is a no-op.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := record.ParseTable(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			id, err := parseID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			field, value := args[2], args[3]

			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			if !s.reg.Known(field) {
				warn(cmd, fmt.Sprintf("%s is not in the field registry; sending as plain text", field))
			}
			ctx := cmd.Context()
			b, err := loadBoard(ctx, s, table, id, travelerID)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, v, _ := b.Find(table, id)

			// Same state machine as the console editor: normalize, detect no-ops,
			// validate dates before anything is sent.
			ctrl := edit.NewController(s.reg)
			sess, err := ctrl.Open(v.Key(field), v.Fields[field])
			if err != nil {
				return writeErr(cmd, err)
			}
			outcome, err := sess.Close(value)
			if err != nil {
				return writeErr(cmd, err)
			}
			if outcome.Err != nil {
				return writeErr(cmd, outcome.Err)
			}
			if outcome.Path != edit.Committing {
				warn(cmd, fmt.Sprintf("%s: %v", v.Key(field), errUnchanged))
				return writeOut(cmd, app, envelope{Data: toReportOut(update.Report{})})
			}

			run, done := s.runner(ctx, b)
			defer done()
			rep, err := run.Apply(ctx, outcome.Commit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return finishReport(cmd, app, b, table, id, rep)
		},
	}
	cmd.Flags().Int64Var(&travelerID, "traveler", 0, "Traveler id of a dependent (default: the dependent's traveler_id)")
	return cmd
}

func newRecordsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a traveler or dependent",
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
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.client.Delete(cmd.Context(), table, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"deleted": true, "table": table, "id": id}})
		},
	}
}
