// Package listing owns the in-memory record set and derives what is shown
// from it: free-text search, column filters, date sorts and pagination.
package listing

import (
	"sort"
	"strings"

	"visadesk/internal/api"
	"visadesk/internal/fields"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/store"
)

// Column is a filterable column.
type Column string

const (
	ColCountry  Column = "country"
	ColCenter   Column = "center"
	ColPackage  Column = "package"
	ColStatus   Column = "status"
	ColPayment  Column = "payment_status"
	ColPriority Column = "priority"
)

// Columns lists the filter columns in picker order.
var Columns = []Column{ColCountry, ColCenter, ColPackage, ColStatus, ColPayment, ColPriority}

var builtin = fields.Default()

var columnField = map[Column]string{
	ColCountry:  "travel_country",
	ColCenter:   "visa_center",
	ColPackage:  "package",
	ColStatus:   "status",
	ColPayment:  "payment_status",
	ColPriority: "priority",
}

// Field is the record field a column filters on.
func (c Column) Field() string { return columnField[c] }

func ParseColumn(s string) (Column, bool) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	_, ok := columnField[c]
	return c, ok
}

type SortType string

const (
	SortNone       SortType = ""
	SortTravelDate SortType = "travel_date"
	SortDocDate    SortType = "doc_date"
)

func (t SortType) field() string {
	switch t {
	case SortTravelDate:
		return "planned_travel_date"
	case SortDocDate:
		return "doc_date"
	default:
		return ""
	}
}

func ParseSortType(s string) (SortType, bool) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, true
	case SortTravelDate, "travel", "planned_travel_date":
		return SortTravelDate, true
	case SortDocDate, "doc":
		return SortDocDate, true
	}
	return SortNone, false
}

type SortSpec struct {
	Type SortType
	Asc  bool
}

// State is the list view's application state. All is the single source of
// truth for filtering, sorting and re-rendering.
type State struct {
	All              []record.Group
	Search           string
	Filters          map[Column]string
	Sort             SortSpec
	ExpandedRecordID string
	ScrollToNew      bool

	Page       int
	TotalPages int
	Total      int
	Paginated  bool
	// Err is the last load failure, shown instead of the list.
	Err error
	// Reg decides which columns hold multi-select values; nil uses the
	// built-in registry.
	Reg *fields.Registry
}

func NewState() *State {
	return &State{Filters: map[Column]string{}}
}

// Visible is All filtered and sorted.
func (s *State) Visible() []record.Group {
	return SortGroups(Filter(s.All, s.Search, s.Filters, s.Reg), s.Sort)
}

// VisibleIDs is Visible as traveler ids.
func (s *State) VisibleIDs() []int64 {
	vis := s.Visible()
	out := make([]int64, len(vis))
	for i, g := range vis {
		out[i] = g.ID()
	}
	return out
}

// HasMore reports whether another page can be loaded.
func (s *State) HasMore() bool {
	return s.Paginated && s.Page+1 < s.TotalPages
}

// SetFilter sets a column filter; an empty value clears it.
func (s *State) SetFilter(c Column, value string) {
	if s.Filters == nil {
		s.Filters = map[Column]string{}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(s.Filters, c)
		return
	}
	s.Filters[c] = value
}

func (s *State) ClearFilters() {
	s.Search = ""
	s.Filters = map[Column]string{}
}

// ToggleSort selects a sort type, flipping direction when it is already
// selected. A new type starts ascending.
func (s *State) ToggleSort(t SortType) {
	if s.Sort.Type == t && t != SortNone {
		s.Sort.Asc = !s.Sort.Asc
		return
	}
	s.Sort = SortSpec{Type: t, Asc: true}
}

// Find returns the group with a traveler id.
func (s *State) Find(id int64) (record.Group, bool) {
	for _, g := range s.All {
		if g.ID() == id {
			return g, true
		}
	}
	return record.Group{}, false
}

// Replace swaps in fresh data for a group; unknown groups are appended.
func (s *State) Replace(g record.Group) {
	for i := range s.All {
		if s.All[i].ID() == g.ID() {
			s.All[i] = g.Clone()
			return
		}
	}
	s.All = append(s.All, g.Clone())
}

// ReplaceRecord swaps in a fully loaded record wherever it lives.
func (s *State) ReplaceRecord(r record.Record) bool {
	for i := range s.All {
		if rec, ok := s.All[i].Find(r.Table, r.ID); ok {
			*rec = r.Clone()
			return true
		}
	}
	return false
}

// Remove drops a group, or a dependent from its group.
func (s *State) Remove(table record.Table, id int64) {
	if table == record.Travelers {
		out := s.All[:0]
		for _, g := range s.All {
			if g.ID() != id {
				out = append(out, g)
			}
		}
		s.All = out
		return
	}
	for i := range s.All {
		deps := s.All[i].Dependents[:0]
		for _, d := range s.All[i].Dependents {
			if d.ID != id {
				deps = append(deps, d)
			}
		}
		s.All[i].Dependents = deps
	}
}

// Persisted is the part of the state saved between runs.
func (s *State) Persisted() store.ListingState {
	ls := store.ListingState{
		Search:           s.Search,
		Sort:             store.SortState{Type: string(s.Sort.Type), Asc: s.Sort.Asc},
		ExpandedRecordID: s.ExpandedRecordID,
		ScrollToNew:      s.ScrollToNew,
	}
	if len(s.Filters) > 0 {
		ls.Filters = make(map[string]string, len(s.Filters))
		for c, v := range s.Filters {
			ls.Filters[string(c)] = v
		}
	}
	return ls
}

// Restore replays saved selections. Unknown columns and sort types are dropped.
func (s *State) Restore(ls store.ListingState) {
	s.Search = ls.Search
	s.Filters = map[Column]string{}
	for k, v := range ls.Filters {
		if c, ok := ParseColumn(k); ok {
			s.SetFilter(c, v)
		}
	}
	if t, ok := ParseSortType(ls.Sort.Type); ok {
		s.Sort = SortSpec{Type: t, Asc: ls.Sort.Asc}
	}
	s.ExpandedRecordID = ls.ExpandedRecordID
	s.ScrollToNew = ls.ScrollToNew
}

// ApplyPage installs the first page (or a load-all result), replacing All.
func (s *State) ApplyPage(p api.Page) {
	s.All = append([]record.Group(nil), p.Groups...)
	s.setPaging(p)
}

// AppendPage adds a further page to All and returns the groups that were new.
func (s *State) AppendPage(p api.Page) []record.Group {
	seen := make(map[int64]bool, len(s.All))
	for _, g := range s.All {
		seen[g.ID()] = true
	}
	var added []record.Group
	for _, g := range p.Groups {
		if seen[g.ID()] {
			continue
		}
		seen[g.ID()] = true
		s.All = append(s.All, g)
		added = append(added, g)
	}
	s.setPaging(p)
	return added
}

func (s *State) setPaging(p api.Page) {
	s.Page = p.Page
	s.TotalPages = p.TotalPages
	s.Total = p.Total
	s.Paginated = p.Paginated
	s.Err = nil
}

// Filter keeps the groups matching the free-text search and every column
// filter. The status filter also matches on any dependent's status.
func Filter(groups []record.Group, search string, filters map[Column]string, reg *fields.Registry) []record.Group {
	if reg == nil {
		reg = builtin
	}
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]record.Group, 0, len(groups))
	for _, g := range groups {
		if q != "" && !strings.Contains(strings.ToLower(render.VisibleText(g)), q) {
			continue
		}
		if !matchesColumns(g, filters, reg) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func matchesColumns(g record.Group, filters map[Column]string, reg *fields.Registry) bool {
	for c, want := range filters {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		field := c.Field()
		if field == "" {
			continue
		}
		multi := reg.Lookup(field).Multi
		if matchValue(g.Traveler.Get(field), want, multi) {
			continue
		}
		if c == ColStatus && anyDependent(g, field, want, multi) {
			continue
		}
		return false
	}
	return true
}

func anyDependent(g record.Group, field, want string, multi bool) bool {
	for _, d := range g.Dependents {
		if matchValue(d.Get(field), want, multi) {
			return true
		}
	}
	return false
}

// matchValue compares case-insensitively; multi-select values match when any
// of their parts does.
func matchValue(have, want string, multi bool) bool {
	if !multi {
		return strings.EqualFold(strings.TrimSpace(have), want)
	}
	for _, part := range fields.SplitMulti(have) {
		if strings.EqualFold(part, want) {
			return true
		}
	}
	return false
}

// SortGroups returns groups ordered by the sort's date field. Groups without a
// valid date go last in both directions; ties keep their order.
func SortGroups(groups []record.Group, spec SortSpec) []record.Group {
	out := append([]record.Group(nil), groups...)
	field := spec.Type.field()
	if field == "" {
		return out
	}
	type keyed struct {
		unix int64
		ok   bool
	}
	keys := make(map[int64]keyed, len(out))
	for _, g := range out {
		t, err := fields.ParseDate(g.Traveler.Get(field))
		keys[g.ID()] = keyed{unix: t.Unix(), ok: err == nil}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := keys[out[i].ID()], keys[out[j].ID()]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if spec.Asc {
			return a.unix < b.unix
		}
		return a.unix > b.unix
	})
	return out
}

// Options returns the distinct values present for a column, sorted, for
// filter pickers. Status uses the registry's fixed order.
func Options(groups []record.Group, c Column, reg *fields.Registry) []string {
	if reg == nil {
		reg = builtin
	}
	if c == ColStatus {
		return reg.Statuses()
	}
	field := c.Field()
	multi := reg.Lookup(field).Multi
	seen := map[string]bool{}
	var out []string
	for _, g := range groups {
		for _, r := range g.Records() {
			values := []string{strings.TrimSpace(r.Get(field))}
			if multi {
				values = fields.SplitMulti(r.Get(field))
			}
			for _, v := range values {
				if v == "" {
					continue
				}
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// Chunks splits groups into a first batch of size first and further batches
// of size size.
func Chunks(groups []record.Group, first, size int) [][]record.Group {
	if len(groups) == 0 {
		return nil
	}
	if first <= 0 {
		first = len(groups)
	}
	if size <= 0 {
		size = first
	}
	var out [][]record.Group
	if first > len(groups) {
		first = len(groups)
	}
	out = append(out, groups[:first])
	for i := first; i < len(groups); i += size {
		end := i + size
		if end > len(groups) {
			end = len(groups)
		}
		out = append(out, groups[i:end])
	}
	return out
}
