package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Table string

const (
	Travelers  Table = "travelers"
	Dependents Table = "dependents"
)

func ParseTable(s string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "travelers", "traveler", "traveller", "travellers":
		return Travelers, nil
	case "dependents", "dependent":
		return Dependents, nil
	default:
		return "", fmt.Errorf("invalid table %q (expected travelers|dependents)", s)
	}
}

// DetailSentinel is absent from summary list entries and present once the full
// record has been fetched.
const DetailSentinel = "notes"

// Record is a traveler or dependent as a flat field map. Keys are snake_case,
// dates are DD/MM/YYYY display strings.
type Record struct {
	Table  Table
	ID     int64
	Fields map[string]string
}

func New(table Table, id int64) Record {
	return Record{Table: table, ID: id, Fields: map[string]string{}}
}

// Get returns the field value or "" when the field is empty or absent.
func (r Record) Get(field string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// Has reports whether the field was present in the payload, even if empty.
func (r Record) Has(field string) bool {
	if r.Fields == nil {
		return false
	}
	_, ok := r.Fields[field]
	return ok
}

func (r *Record) Set(field, value string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.Fields[field] = value
}

// IsDetailed reports whether the full record has been loaded.
func (r Record) IsDetailed() bool { return r.Has(DetailSentinel) }

func (r Record) Clone() Record {
	out := Record{Table: r.Table, ID: r.ID, Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

func (r Record) Key() string {
	return string(r.Table) + "/" + strconv.FormatInt(r.ID, 10)
}

// MarshalJSON flattens the record the way the backend shapes it.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["id"] = r.ID
	m["table"] = string(r.Table)
	return json.Marshal(m)
}

// FieldNames returns the populated field names, sorted.
func (r Record) FieldNames() []string {
	out := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Group is a traveler plus its dependents.
type Group struct {
	Traveler   Record   `json:"traveler"`
	Dependents []Record `json:"dependents"`
}

func (g Group) ID() int64 { return g.Traveler.ID }

// Records returns the traveler followed by its dependents.
func (g Group) Records() []Record {
	out := make([]Record, 0, 1+len(g.Dependents))
	out = append(out, g.Traveler)
	return append(out, g.Dependents...)
}

// Find returns the record of the group with the given table and id.
func (g *Group) Find(table Table, id int64) (*Record, bool) {
	if table == Travelers && g.Traveler.ID == id {
		return &g.Traveler, true
	}
	if table == Dependents {
		for i := range g.Dependents {
			if g.Dependents[i].ID == id {
				return &g.Dependents[i], true
			}
		}
	}
	return nil, false
}

func (g Group) Clone() Group {
	out := Group{Traveler: g.Traveler.Clone()}
	if g.Dependents != nil {
		out.Dependents = make([]Record, len(g.Dependents))
		for i, d := range g.Dependents {
			out.Dependents[i] = d.Clone()
		}
	}
	return out
}

var ErrMissingID = errors.New("record without id")
