package render

import (
	"strings"

	"visadesk/internal/edit"
	"visadesk/internal/fields"
	"visadesk/internal/record"
)

// Kind selects the per-record template.
type Kind string

const (
	KindTraveler  Kind = "traveler"
	KindDependent Kind = "dependent"
)

type Action string

const (
	ActionAddDependent Action = "add-dependent"
	ActionDelete       Action = "delete"
	ActionExpand       Action = "expand"
)

const (
	unnamedTraveler  = "Unnamed traveler"
	unnamedDependent = "Unnamed dependent"
)

// Header is the always-visible summary line of a record.
type Header struct {
	Name            string
	NamePlaceholder bool
	Status          string
	StatusClass     string
	// Progress is the percentage of required fields filled across the group
	// (travelers only).
	Progress       int
	DependentCount int
}

// RecordView is the rendered state of one record.
type RecordView struct {
	Table   record.Table
	ID      int64
	Kind    Kind
	Header  Header
	Actions []Action

	// Fields is empty until the body is loaded.
	Fields         map[string]edit.Display
	Order          []string
	DocDateVisible bool
	BodyLoaded     bool
	Expanded       bool
	// Loading is set while a full-record fetch for the body is in flight.
	Loading bool
}

func (v *RecordView) Key(field string) edit.Key {
	return edit.Key{Table: v.Table, ID: v.ID, Field: field}
}

// Visible reports whether a field of the body is shown.
func (v *RecordView) Visible(field string) bool {
	if field == "doc_date" {
		return v.DocDateVisible
	}
	return true
}

// GroupView is a rendered traveler plus dependents.
type GroupView struct {
	Group      record.Group
	Traveler   *RecordView
	Dependents []*RecordView
}

func (g *GroupView) ID() int64 { return g.Group.Traveler.ID }

// Views returns the traveler view followed by the dependent views.
func (g *GroupView) Views() []*RecordView {
	out := make([]*RecordView, 0, 1+len(g.Dependents))
	out = append(out, g.Traveler)
	return append(out, g.Dependents...)
}

// Lookup finds the view and the backing record for a table/id in the group.
func (g *GroupView) Lookup(table record.Table, id int64) (*RecordView, *record.Record, bool) {
	rec, ok := g.Group.Find(table, id)
	if !ok {
		return nil, nil, false
	}
	for _, v := range g.Views() {
		if v.Table == table && v.ID == id {
			return v, rec, true
		}
	}
	return nil, nil, false
}

// Traversal is the Tab order over every visible field of every loaded body.
func (g *GroupView) Traversal() edit.Traversal {
	var keys []edit.Key
	for _, v := range g.Views() {
		if !v.BodyLoaded || !v.Expanded {
			continue
		}
		for _, f := range v.Order {
			if v.Visible(f) {
				keys = append(keys, v.Key(f))
			}
		}
	}
	return edit.NewTraversal(keys)
}

// VisibleText is the concatenated text of the group as a user sees it; free-text
// search matches against it.
func (g *GroupView) VisibleText() string {
	return VisibleText(g.Group)
}

// VisibleText joins every non-empty field value of the group.
func VisibleText(g record.Group) string {
	var b strings.Builder
	for _, r := range g.Records() {
		for _, k := range r.FieldNames() {
			if v := r.Get(k); v != "" {
				b.WriteString(v)
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// Renderer builds views using the field registry.
type Renderer struct {
	reg *fields.Registry
}

func NewRenderer(reg *fields.Registry) *Renderer {
	return &Renderer{reg: reg}
}

func (r *Renderer) Registry() *fields.Registry { return r.reg }

// RenderGroup builds a group view. Bodies stay unloaded.
func (r *Renderer) RenderGroup(g record.Group) *GroupView {
	gv := &GroupView{Group: g.Clone()}
	gv.Traveler = r.renderRecord(gv.Group.Traveler, KindTraveler)
	for _, d := range gv.Group.Dependents {
		gv.Dependents = append(gv.Dependents, r.renderRecord(d, KindDependent))
	}
	r.RefreshHeaders(gv)
	return gv
}

func (r *Renderer) renderRecord(rec record.Record, kind Kind) *RecordView {
	v := &RecordView{
		Table:  rec.Table,
		ID:     rec.ID,
		Kind:   kind,
		Fields: map[string]edit.Display{},
	}
	switch kind {
	case KindTraveler:
		v.Actions = []Action{ActionAddDependent, ActionDelete, ActionExpand}
	default:
		v.Actions = []Action{ActionDelete, ActionExpand}
	}
	return v
}

// LoadBody renders the field body of a record from its data.
func (r *Renderer) LoadBody(v *RecordView, rec record.Record) {
	v.Order = r.reg.Order(string(rec.Table))
	v.Fields = make(map[string]edit.Display, len(v.Order))
	for _, f := range v.Order {
		v.Fields[f] = edit.DisplayFor(r.reg.Lookup(f), rec.Get(f))
	}
	v.DocDateVisible = record.DocDateVisible(rec.Get("status"))
	v.BodyLoaded = true
	v.Loading = false
}

// RefreshHeaders recomputes every header of the group from its data.
func (r *Renderer) RefreshHeaders(gv *GroupView) {
	progress := r.Progress(gv.Group)
	for _, v := range gv.Views() {
		rec, ok := gv.Group.Find(v.Table, v.ID)
		if !ok {
			continue
		}
		v.Header = r.header(*rec, v.Kind)
		if v.Kind == KindTraveler {
			v.Header.Progress = progress
			v.Header.DependentCount = len(gv.Group.Dependents)
		}
	}
}

// NameHeader is the header name for a derived name, falling back to a placeholder.
func NameHeader(name string, kind Kind) (string, bool) {
	if strings.TrimSpace(name) != "" {
		return name, false
	}
	if kind == KindDependent {
		return unnamedDependent, true
	}
	return unnamedTraveler, true
}

func (r *Renderer) header(rec record.Record, kind Kind) Header {
	name := rec.Get("name")
	if strings.TrimSpace(name) == "" {
		name = record.DeriveName(rec.Get("first_name"), rec.Get("last_name"))
	}
	h := Header{Status: rec.Get("status"), StatusClass: record.StatusClass(rec.Get("status"))}
	h.Name, h.NamePlaceholder = NameHeader(name, kind)
	return h
}

// Progress is the share of required fields that are filled across the group.
func (r *Renderer) Progress(g record.Group) int {
	total, filled := 0, 0
	for _, rec := range g.Records() {
		for _, f := range r.reg.Order(string(rec.Table)) {
			if !r.reg.Lookup(f).Required {
				continue
			}
			total++
			if strings.TrimSpace(rec.Get(f)) != "" {
				filled++
			}
		}
	}
	if total == 0 {
		return 100
	}
	return filled * 100 / total
}
