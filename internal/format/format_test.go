package format

import (
	"bytes"
	"strings"
	"testing"
)

type row struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Tags      []any  `json:"tags"`
	Done      bool   `json:"done"`
}

type rows []row

func (r rows) TableHeaders() []string { return []string{"ID", "NAME"} }

func (r rows) TableRows() [][]string {
	out := make([][]string, len(r))
	for i, x := range r {
		out[i] = []string{"#" + string(rune('0'+x.ID)), x.FirstName}
	}
	return out
}

func TestWriteEDN(t *testing.T) {
	var buf bytes.Buffer
	v := row{ID: 9007199254740993, FirstName: "Ada", Tags: []any{}, Done: true}
	if err := Write(&buf, v, "edn", false); err != nil {
		t.Fatalf("Write edn: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `{:done true :first-name "Ada" :id 9007199254740993 :tags []}`
	if got != want {
		t.Fatalf("edn mismatch:\nwant: %s\ngot:  %s", want, got)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"a": []any{1, nil}}, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := "{\n  :a [\n    1\n    nil\n  ]\n}\n"
	if buf.String() != want {
		t.Fatalf("pretty edn mismatch:\nwant: %q\ngot:  %q", want, buf.String())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, rows{{ID: 1, FirstName: "Ada"}}, "table", false); err != nil {
		t.Fatalf("Write table: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"ID", "NAME", "#1", "Ada"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in table output:\n%s", s, out)
		}
	}

	if err := Write(&buf, row{}, "table", false); err == nil {
		t.Fatalf("expected error for non-tabular value")
	}
	if err := Write(&buf, row{}, "yaml", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
