package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"visadesk/internal/edit"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/store"
)

// Patcher sends single-field writes. *api.Client implements it.
type Patcher interface {
	PatchField(ctx context.Context, table record.Table, id int64, field, value string) error
}

// GroupFetcher reloads a traveler with its dependents.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, travelerID int64) (record.Group, error)
}

// Journal receives every resolved write.
type Journal interface {
	Append(ctx context.Context, e store.JournalEntry) error
}

// maxFollowDepth bounds chains of derived writes (dob -> title -> name).
const maxFollowDepth = 4

// Runner drives Begin -> PATCH -> Resolve -> follow-ups one step at a time
// against a Board.
type Runner struct {
	Coord   *Coordinator
	Board   *render.Board
	Patch   Patcher
	Fetch   GroupFetcher
	Journal Journal
	Log     *slog.Logger
}

// Report collects everything one Apply did.
type Report struct {
	Results   []Result  `json:"results"`
	Persisted []Persist `json:"persisted,omitempty"`
	Notices   []string  `json:"notices,omitempty"`
	Refetched bool      `json:"refetched,omitempty"`
}

// Persist is the outcome of a FollowPersist write.
type Persist struct {
	Key   edit.Key `json:"key"`
	Value string   `json:"value"`
	Err   error    `json:"-"`
}

// Failed reports whether any write of the report failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Phase == Failed && !res.Stale {
			return true
		}
	}
	for _, p := range r.Persisted {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Err is the first write error of the report, or nil.
func (r Report) Err() error {
	for _, res := range r.Results {
		if res.Phase == Failed && !res.Stale && res.Err != nil {
			return res.Err
		}
	}
	for _, p := range r.Persisted {
		if p.Err != nil {
			return p.Err
		}
	}
	return nil
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Apply runs a committed edit to completion, including every follow-up.
// Write failures end up in the report (rolled back, with a notice); the
// returned error is for edits that could not even start.
func (r *Runner) Apply(ctx context.Context, cm edit.Commit) (Report, error) {
	var rep Report
	err := r.apply(ctx, cm, false, 0, &rep)
	return rep, err
}

// ApplyAll applies changes to one record in order, as one report.
func (r *Runner) ApplyAll(ctx context.Context, table record.Table, id int64, changes []Change) (Report, error) {
	var rep Report
	for _, ch := range changes {
		gv, _, ok := r.Board.Find(table, id)
		if !ok {
			return rep, fmt.Errorf("%s/%d: %w", table, id, ErrUnknownRecord)
		}
		cm, err := r.Coord.Derived(gv, edit.Key{Table: table, ID: id, Field: ch.Field}, ch.Value)
		if err != nil {
			return rep, err
		}
		if cm.Value == cm.Original.Value() {
			continue
		}
		if err := r.apply(ctx, cm, false, 0, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// Change is a field write produced outside the editor (autofill).
type Change struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (r *Runner) apply(ctx context.Context, cm edit.Commit, derived bool, depth int, rep *Report) error {
	gv, _, ok := r.Board.Find(cm.Key.Table, cm.Key.ID)
	if !ok {
		return fmt.Errorf("%s: %w", cm.Key, ErrUnknownRecord)
	}
	var (
		req Request
		err error
	)
	if derived {
		req, err = r.Coord.BeginDerived(gv, cm)
	} else {
		req, err = r.Coord.Begin(gv, cm)
	}
	if err != nil {
		return err
	}
	r.log().Debug("patch", "key", req.Key.String(), "seq", req.Seq, "derived", derived)
	perr := r.Patch.PatchField(ctx, req.Key.Table, req.Key.ID, req.Key.Field, req.Wire)
	res := r.Coord.Resolve(gv, req, perr)
	rep.Results = append(rep.Results, res)
	r.journal(ctx, res)
	if res.Notice != "" {
		rep.Notices = append(rep.Notices, res.Notice)
		r.log().Warn("update failed", "key", res.Key.String(), "err", res.Err)
	}
	if res.Phase != Committed || res.Stale {
		return nil
	}
	return r.follow(ctx, gv, res.Followups, depth, rep)
}

func (r *Runner) follow(ctx context.Context, gv *render.GroupView, fs []Followup, depth int, rep *Report) error {
	if depth >= maxFollowDepth {
		r.log().Warn("follow-up chain too deep", "pending", len(fs))
		return nil
	}
	for _, f := range fs {
		switch f.Kind {
		case FollowEdit:
			cm, err := r.Coord.Derived(gv, f.Key, f.Value)
			if err != nil {
				return err
			}
			if err := r.apply(ctx, cm, true, depth+1, rep); err != nil {
				return err
			}
		case FollowPersist:
			err := r.Patch.PatchField(ctx, f.Key.Table, f.Key.ID, f.Key.Field, f.Value)
			rep.Persisted = append(rep.Persisted, Persist{Key: f.Key, Value: f.Value, Err: err})
			r.journal(ctx, PersistResult(f, err))
			if err != nil {
				rep.Notices = append(rep.Notices, fmt.Sprintf("Could not save %s: %v", f.Key.Field, err))
			}
		case FollowRefetch:
			if r.Fetch == nil {
				continue
			}
			g, err := r.Fetch.FetchGroup(ctx, f.Key.ID)
			if err != nil {
				// The edit itself is saved; only the badges are out of date.
				rep.Notices = append(rep.Notices, fmt.Sprintf("Could not reload record: %v", err))
				continue
			}
			gv = r.Board.Replace(g)
			rep.Refetched = true
		}
	}
	return nil
}

func phaseOf(err error) Phase {
	if err != nil {
		return Failed
	}
	return Committed
}

func (r *Runner) journal(ctx context.Context, res Result) {
	if r.Journal == nil {
		return
	}
	if err := r.Journal.Append(ctx, Entry(res)); err != nil && !errors.Is(err, context.Canceled) {
		r.log().Warn("journal append failed", "err", err)
	}
}

// Entry is the journal form of a resolved write.
func Entry(res Result) store.JournalEntry {
	e := store.JournalEntry{
		Table:    string(res.Key.Table),
		RecordID: res.Key.ID,
		Field:    res.Key.Field,
		Value:    res.Value,
		Previous: res.Previous,
		Derived:  res.Derived,
	}
	switch {
	case res.Stale:
		e.Outcome = store.OutcomeStale
	case res.Phase == Failed:
		e.Outcome = store.OutcomeFailed
	default:
		e.Outcome = store.OutcomeCommitted
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

// PersistResult is the Result of a FollowPersist write.
func PersistResult(f Followup, err error) Result {
	return Result{Key: f.Key, Phase: phaseOf(err), Value: f.Value, Derived: true, Err: err}
}
