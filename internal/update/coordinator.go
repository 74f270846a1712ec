// Package update reconciles committed field edits with the backend: it applies
// the optimistic view change, fences out superseded responses, rolls back on
// failure and computes the follow-up writes a successful edit implies.
package update

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"visadesk/internal/edit"
	"visadesk/internal/fields"
	"visadesk/internal/record"
	"visadesk/internal/render"
)

type Phase int

const (
	Pending Phase = iota
	Committed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

type FollowKind int

const (
	// FollowEdit is a derived field write that goes through Begin/Resolve
	// like a user edit (doc_date clear, derived title).
	FollowEdit FollowKind = iota
	// FollowPersist writes a value that has no editor of its own (name).
	FollowPersist
	// FollowRefetch reloads the whole group.
	FollowRefetch
)

func (k FollowKind) String() string {
	switch k {
	case FollowPersist:
		return "persist"
	case FollowRefetch:
		return "refetch"
	default:
		return "edit"
	}
}

// Followup is a write or reload implied by a committed edit.
type Followup struct {
	Kind  FollowKind
	Key   edit.Key
	Value string
}

func (f Followup) String() string {
	if f.Kind == FollowRefetch {
		return fmt.Sprintf("%s %s/%d", f.Kind, f.Key.Table, f.Key.ID)
	}
	return fmt.Sprintf("%s %s = %q", f.Kind, f.Key, f.Value)
}

// Request is an in-flight field write.
type Request struct {
	Key edit.Key
	Seq uint64
	// Value is the display form, Wire what is sent to the backend.
	Value string
	Wire  string
	// Before is the display the edit started from.
	Before edit.Display
	// Previous is the stored value before the edit.
	Previous string
	Derived  bool
}

// Result is the resolution of a Request.
type Result struct {
	Key       edit.Key
	Seq       uint64
	Phase     Phase
	Value     string
	Previous  string
	Derived   bool
	Stale     bool
	Notice    string
	Err       error
	Followups []Followup
}

var ErrUnknownRecord = errors.New("record is not on screen")

// Coordinator holds the per-field request sequence numbers. It is safe for
// concurrent use; the views passed to it are not.
type Coordinator struct {
	reg *fields.Registry
	r   *render.Renderer
	now func() time.Time

	mu      sync.Mutex
	seq     map[edit.Key]uint64
	applied map[edit.Key]uint64
}

type Option func(*Coordinator)

// WithClock sets the clock used for age-based title derivation.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCoordinator(r *render.Renderer, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:     r.Registry(),
		r:       r,
		now:     time.Now,
		seq:     map[edit.Key]uint64{},
		applied: map[edit.Key]uint64{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Derived builds a commit for a programmatic write, snapshotting the current
// display of the field.
func (c *Coordinator) Derived(gv *render.GroupView, k edit.Key, value string) (edit.Commit, error) {
	v, rec, ok := gv.Lookup(k.Table, k.ID)
	if !ok {
		return edit.Commit{}, fmt.Errorf("%s: %w", k, ErrUnknownRecord)
	}
	before, ok := v.Fields[k.Field]
	if !ok {
		before = edit.DisplayFor(c.reg.Lookup(k.Field), rec.Get(k.Field))
	}
	return edit.Commit{Key: k, Value: value, Original: before}, nil
}

// Begin applies the optimistic update and returns the request to send.
func (c *Coordinator) Begin(gv *render.GroupView, cm edit.Commit) (Request, error) {
	return c.begin(gv, cm, false)
}

// BeginDerived is Begin for follow-up writes.
func (c *Coordinator) BeginDerived(gv *render.GroupView, cm edit.Commit) (Request, error) {
	return c.begin(gv, cm, true)
}

func (c *Coordinator) begin(gv *render.GroupView, cm edit.Commit, derived bool) (Request, error) {
	v, rec, ok := gv.Lookup(cm.Key.Table, cm.Key.ID)
	if !ok {
		return Request{}, fmt.Errorf("%s: %w", cm.Key, ErrUnknownRecord)
	}
	spec := c.reg.Lookup(cm.Key.Field)
	wire := cm.Value
	if spec.Date {
		w, err := fields.DisplayToWire(cm.Value)
		if err != nil {
			return Request{}, fmt.Errorf("%s: %w", cm.Key, err)
		}
		wire = w
	}

	c.mu.Lock()
	c.seq[cm.Key]++
	seq := c.seq[cm.Key]
	c.mu.Unlock()

	if v.BodyLoaded {
		v.Fields[cm.Key.Field] = edit.DisplayFor(spec, cm.Value)
	}
	return Request{
		Key:      cm.Key,
		Seq:      seq,
		Value:    cm.Value,
		Wire:     wire,
		Before:   cm.Original,
		Previous: rec.Get(cm.Key.Field),
		Derived:  derived,
	}, nil
}

// Resolve settles a request with the backend's answer (err == nil on
// success). Responses for superseded requests are discarded.
func (c *Coordinator) Resolve(gv *render.GroupView, req Request, err error) Result {
	res := Result{Key: req.Key, Seq: req.Seq, Value: req.Value, Previous: req.Previous, Derived: req.Derived}
	v, rec, ok := gv.Lookup(req.Key.Table, req.Key.ID)

	c.mu.Lock()
	latest := c.seq[req.Key] == req.Seq
	newer := req.Seq > c.applied[req.Key]
	if err == nil && newer {
		c.applied[req.Key] = req.Seq
	}
	c.mu.Unlock()

	if !ok {
		res.Stale = true
		res.Phase = Failed
		res.Err = fmt.Errorf("%s: %w", req.Key, ErrUnknownRecord)
		return res
	}
	if !latest {
		// The backend did apply a superseded success; keep the data in step
		// without touching the view.
		if err == nil && newer {
			rec.Set(req.Key.Field, req.Value)
		}
		res.Stale = true
		res.Phase = Committed
		if err != nil {
			res.Phase = Failed
			res.Err = err
		}
		return res
	}

	spec := c.reg.Lookup(req.Key.Field)
	if err != nil {
		// Before may itself be an optimistic value from an older request
		// still in flight, so fall back to what the backend last accepted.
		if v.BodyLoaded {
			v.Fields[req.Key.Field] = edit.DisplayFor(spec, rec.Get(req.Key.Field))
		}
		res.Phase = Failed
		res.Err = err
		res.Notice = fmt.Sprintf("Could not save %s: %v", strings.ToLower(spec.Label), err)
		return res
	}

	res.Phase = Committed
	rec.Set(req.Key.Field, req.Value)
	res.Followups = c.derive(gv, v, rec, req.Key, spec)
	c.r.RefreshHeaders(gv)
	return res
}

func (c *Coordinator) derive(gv *render.GroupView, v *render.RecordView, rec *record.Record, k edit.Key, spec fields.Spec) []Followup {
	var out []Followup
	switch k.Field {
	case "status":
		v.DocDateVisible = record.DocDateVisible(rec.Get("status"))
		if !v.DocDateVisible && strings.TrimSpace(rec.Get("doc_date")) != "" {
			out = append(out, Followup{Kind: FollowEdit, Key: v.Key("doc_date"), Value: ""})
		}
	case "first_name", "last_name", "title":
		name := record.DeriveName(rec.Get("first_name"), rec.Get("last_name"))
		if name != rec.Get("name") {
			rec.Set("name", name)
			out = append(out, Followup{Kind: FollowPersist, Key: v.Key("name"), Value: name})
		}
	case "gender", "dob":
		title := record.DeriveTitle(rec.Get("gender"), rec.Get("dob"), c.now())
		if title != "" && title != rec.Get("title") {
			out = append(out, Followup{Kind: FollowEdit, Key: v.Key("title"), Value: title})
		}
	}
	if spec.AffectsDerivedDisplay {
		out = append(out, Followup{Kind: FollowRefetch, Key: edit.Key{Table: record.Travelers, ID: gv.ID()}})
	}
	return out
}
