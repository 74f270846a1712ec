package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"visadesk/internal/fields"
)

// NormalizeKey maps backend camelCase keys to the snake_case keys used
// internally, e.g. firstName -> first_name and addressLine1 -> address_line_1.
// Keys that are already snake_case are returned unchanged.
func NormalizeKey(k string) string {
	k = strings.TrimSpace(k)
	rs := []rune(k)
	var b strings.Builder
	for i, r := range rs {
		var prev, next rune
		if i > 0 {
			prev = rs[i-1]
		}
		if i+1 < len(rs) {
			next = rs[i+1]
		}
		switch {
		case unicode.IsUpper(r):
			if i > 0 && prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(prev) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FromWire converts one backend payload into a group. Embedded dependents
// (key "dependents") become the group's dependents; date fields known to the
// registry are converted to display format.
func FromWire(raw map[string]any, table Table, reg *fields.Registry) (Group, error) {
	rec, deps, err := recordFromWire(raw, table, reg)
	if err != nil {
		return Group{}, err
	}
	g := Group{Traveler: rec}
	for _, d := range deps {
		dm, ok := d.(map[string]any)
		if !ok {
			continue
		}
		dr, _, err := recordFromWire(dm, Dependents, reg)
		if err != nil {
			return Group{}, fmt.Errorf("dependent of %s: %w", rec.Key(), err)
		}
		g.Dependents = append(g.Dependents, dr)
	}
	return g, nil
}

// RecordFromWire converts a single record payload, ignoring embedded dependents.
func RecordFromWire(raw map[string]any, table Table, reg *fields.Registry) (Record, error) {
	rec, _, err := recordFromWire(raw, table, reg)
	return rec, err
}

func recordFromWire(raw map[string]any, table Table, reg *fields.Registry) (Record, []any, error) {
	rec := New(table, 0)
	var deps []any
	for k, v := range raw {
		key := NormalizeKey(k)
		switch key {
		case "id":
			id, err := parseID(v)
			if err != nil {
				return Record{}, nil, err
			}
			rec.ID = id
			continue
		case "dependents":
			if xs, ok := v.([]any); ok {
				deps = xs
			}
			continue
		case "table":
			continue
		}
		s := stringify(v)
		if reg != nil && reg.IsDate(key) {
			s = fields.WireToDisplay(s)
		}
		rec.Fields[key] = s
	}
	if rec.ID == 0 {
		return Record{}, nil, ErrMissingID
	}
	return rec, deps, nil
}

func parseID(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Int64()
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
