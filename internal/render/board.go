package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"visadesk/internal/record"
)

var ErrUnknownRecord = errors.New("record is not rendered")

// Board holds the rendered groups for every loaded traveler and tracks which
// record is expanded. Only one group may have expanded records at a time;
// within a group any number of records may be expanded.
type Board struct {
	r      *Renderer
	views  map[int64]*GroupView
	order  []int64
	loaded []int64

	expanded string
}

func NewBoard(r *Renderer) *Board {
	return &Board{r: r, views: map[int64]*GroupView{}}
}

func (b *Board) Renderer() *Renderer { return b.r }

// Reset renders a fresh set of groups, keeping the expanded record if it is
// still present.
func (b *Board) Reset(groups []record.Group) {
	b.views = make(map[int64]*GroupView, len(groups))
	b.loaded = b.loaded[:0]
	b.order = nil
	b.Append(groups)
	if b.expanded != "" {
		b.Restore(b.expanded)
	}
}

// Append renders additional groups after the existing ones without touching
// the groups already on the board.
func (b *Board) Append(groups []record.Group) {
	for _, g := range groups {
		id := g.ID()
		if _, ok := b.views[id]; !ok {
			b.loaded = append(b.loaded, id)
			b.order = append(b.order, id)
		}
		b.views[id] = b.r.RenderGroup(g)
	}
}

// Replace re-renders one group from fresh data, keeping expansion state.
func (b *Board) Replace(g record.Group) *GroupView {
	id := g.ID()
	old, ok := b.views[id]
	gv := b.r.RenderGroup(g)
	if !ok {
		b.loaded = append(b.loaded, id)
		b.order = append(b.order, id)
	} else {
		for _, ov := range old.Views() {
			if !ov.Expanded {
				continue
			}
			nv, rec, found := gv.Lookup(ov.Table, ov.ID)
			if !found {
				continue
			}
			nv.Expanded = true
			if rec.IsDetailed() || ov.BodyLoaded {
				b.r.LoadBody(nv, *rec)
			}
		}
	}
	b.views[id] = gv
	return gv
}

// Remove drops a group from the board.
func (b *Board) Remove(id int64) {
	delete(b.views, id)
	b.loaded = without(b.loaded, id)
	b.order = without(b.order, id)
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (b *Board) Group(id int64) (*GroupView, bool) {
	gv, ok := b.views[id]
	return gv, ok
}

// SetOrder sets which groups are shown and in what order. Unknown ids are
// skipped.
func (b *Board) SetOrder(ids []int64) {
	b.order = b.order[:0]
	for _, id := range ids {
		if _, ok := b.views[id]; ok {
			b.order = append(b.order, id)
		}
	}
}

// Groups returns the shown groups in display order.
func (b *Board) Groups() []*GroupView {
	out := make([]*GroupView, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.views[id])
	}
	return out
}

// Len is the number of rendered groups, shown or not.
func (b *Board) Len() int { return len(b.loaded) }

// Find locates the group that holds a record.
func (b *Board) Find(table record.Table, id int64) (*GroupView, *RecordView, bool) {
	if table == record.Travelers {
		if gv, ok := b.views[id]; ok {
			return gv, gv.Traveler, true
		}
		return nil, nil, false
	}
	for _, gid := range b.loaded {
		gv := b.views[gid]
		if v, _, ok := gv.Lookup(table, id); ok {
			return gv, v, true
		}
	}
	return nil, nil, false
}

// Expanded is the key ("travelers/12") of the most recently expanded record.
func (b *Board) Expanded() string { return b.expanded }

// Expand opens a record. When its cached data is only a summary, needsFetch is
// true and the body stays empty until Loaded is called with the full record.
// Records in other groups are collapsed.
func (b *Board) Expand(table record.Table, id int64) (needsFetch bool, err error) {
	gv, v, ok := b.Find(table, id)
	if !ok {
		return false, fmt.Errorf("%s/%d: %w", table, id, ErrUnknownRecord)
	}
	for _, gid := range b.loaded {
		if gid == gv.ID() {
			continue
		}
		for _, ov := range b.views[gid].Views() {
			ov.Expanded = false
		}
	}
	v.Expanded = true
	b.expanded = recordKey(table, id)
	if v.BodyLoaded {
		return false, nil
	}
	_, rec, _ := gv.Lookup(table, id)
	if rec.IsDetailed() {
		b.r.LoadBody(v, *rec)
		return false, nil
	}
	v.Loading = true
	return true, nil
}

// Loaded replaces the cached record with its full version and renders the
// body.
func (b *Board) Loaded(full record.Record) error {
	gv, v, ok := b.Find(full.Table, full.ID)
	if !ok {
		return fmt.Errorf("%s: %w", full.Key(), ErrUnknownRecord)
	}
	_, rec, _ := gv.Lookup(full.Table, full.ID)
	*rec = full.Clone()
	b.r.LoadBody(v, *rec)
	b.r.RefreshHeaders(gv)
	return nil
}

// LoadFailed clears the loading flag after a failed body fetch.
func (b *Board) LoadFailed(table record.Table, id int64) {
	if _, v, ok := b.Find(table, id); ok {
		v.Loading = false
		v.Expanded = false
	}
}

func (b *Board) Collapse(table record.Table, id int64) {
	_, v, ok := b.Find(table, id)
	if !ok {
		return
	}
	v.Expanded = false
	if b.expanded == recordKey(table, id) {
		b.expanded = ""
	}
}

// Toggle expands a collapsed record or collapses an expanded one.
func (b *Board) Toggle(table record.Table, id int64) (needsFetch bool, err error) {
	_, v, ok := b.Find(table, id)
	if !ok {
		return false, fmt.Errorf("%s/%d: %w", table, id, ErrUnknownRecord)
	}
	if v.Expanded {
		b.Collapse(table, id)
		return false, nil
	}
	return b.Expand(table, id)
}

// Restore re-expands a record by key after a reload. Summary-only records are
// not fetched; the key is kept so the next Expand loads them.
func (b *Board) Restore(key string) bool {
	b.expanded = key
	t, idPart, ok := strings.Cut(key, "/")
	if !ok {
		return false
	}
	tbl, err := record.ParseTable(t)
	if err != nil {
		return false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return false
	}
	gv, v, found := b.Find(tbl, id)
	if !found {
		return false
	}
	_, rec, _ := gv.Lookup(tbl, id)
	if !rec.IsDetailed() {
		return false
	}
	v.Expanded = true
	b.r.LoadBody(v, *rec)
	return true
}

func recordKey(table record.Table, id int64) string {
	return string(table) + "/" + strconv.FormatInt(id, 10)
}
