package edit

import (
	"sort"
	"strings"
)

// Traversal is the keyboard order of editable fields across a whole group
// (traveler first, then each dependent), matching visual order.
type Traversal struct {
	keys []Key
	idx  map[Key]int
}

func NewTraversal(keys []Key) Traversal {
	t := Traversal{keys: append([]Key(nil), keys...), idx: make(map[Key]int, len(keys))}
	for i, k := range t.keys {
		t.idx[k] = i
	}
	return t
}

func (t Traversal) Len() int { return len(t.keys) }

func (t Traversal) Keys() []Key { return append([]Key(nil), t.keys...) }

func (t Traversal) Next(k Key) (Key, bool) {
	i, ok := t.idx[k]
	if !ok || i+1 >= len(t.keys) {
		return Key{}, false
	}
	return t.keys[i+1], true
}

func (t Traversal) Prev(k Key) (Key, bool) {
	i, ok := t.idx[k]
	if !ok || i == 0 {
		return Key{}, false
	}
	return t.keys[i-1], true
}

// FilterOptions narrows a single-select dropdown by a case-insensitive query.
// Options starting with the query sort before other matches.
func FilterOptions(options []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]string(nil), options...)
	}
	type hit struct {
		opt    string
		prefix bool
		pos    int
	}
	var hits []hit
	for i, o := range options {
		lo := strings.ToLower(o)
		if strings.Contains(lo, q) {
			hits = append(hits, hit{opt: o, prefix: strings.HasPrefix(lo, q), pos: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].prefix != hits[j].prefix {
			return hits[i].prefix
		}
		return hits[i].pos < hits[j].pos
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.opt
	}
	return out
}
