package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"visadesk/internal/fields"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"firstName":      "first_name",
		"lastName":       "last_name",
		"addressLine1":   "address_line_1",
		"address_line_1": "address_line_1",
		"dob":            "dob",
		"docDate":        "doc_date",
		"travelerID":     "traveler_id",
		"HTTPStatus":     "http_status",
		"visa_center":    "visa_center",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "NormalizeKey(%q)", in)
	}
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestFromWire(t *testing.T) {
	raw := decode(t, `{
		"id": 12,
		"firstName": "Ada",
		"lastName": "Lovelace",
		"dob": "1990-12-10",
		"addressLine1": "1 High St",
		"visaPrice": 85.5,
		"notes": null,
		"dependents": [
			{"id": 7, "firstName": "Byron", "docDate": "2030-03-05"}
		]
	}`)
	g, err := FromWire(raw, Travelers, fields.Default())
	require.NoError(t, err)

	assert.Equal(t, int64(12), g.Traveler.ID)
	assert.Equal(t, Travelers, g.Traveler.Table)
	assert.Equal(t, "Ada", g.Traveler.Get("first_name"))
	assert.Equal(t, "10/12/1990", g.Traveler.Get("dob"))
	assert.Equal(t, "1 High St", g.Traveler.Get("address_line_1"))
	assert.Equal(t, "85.5", g.Traveler.Get("visa_price"))
	assert.True(t, g.Traveler.IsDetailed(), "null notes still marks the record as detailed")

	require.Len(t, g.Dependents, 1)
	d := g.Dependents[0]
	assert.Equal(t, Dependents, d.Table)
	assert.Equal(t, int64(7), d.ID)
	assert.Equal(t, "05/03/2030", d.Get("doc_date"))
	assert.False(t, d.IsDetailed())
}

func TestFromWireMissingID(t *testing.T) {
	_, err := FromWire(map[string]any{"firstName": "x"}, Travelers, nil)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", DeriveName(" Ada ", "Lovelace "))
	assert.Equal(t, "Ada", DeriveName("Ada", ""))
	assert.Equal(t, "Lovelace", DeriveName("", "Lovelace"))
	assert.Equal(t, "", DeriveName("", ""))
}

func TestDeriveTitle(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		gender, dob, want string
	}{
		{"Male", "01/01/1990", "Mr"},
		{"Female", "01/01/1990", "Ms"},
		{"Male", "01/01/2015", "Mstr"},
		{"Female", "01/01/2015", "Miss"},
		{"Female", "16/10/2008", "Ms"},
		{"Female", "17/10/2008", "Miss"},
		{"", "01/01/1990", ""},
		{"Male", "", ""},
		{"Male", "31/02/1990", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DeriveTitle(tc.gender, tc.dob, now), "DeriveTitle(%q, %q)", tc.gender, tc.dob)
	}
}

func TestDocDateVisibleAndStatusClass(t *testing.T) {
	for _, s := range []string{"Doc", "Completed", "Visa Approved", "Hold", "Reschedule"} {
		assert.True(t, DocDateVisible(s), s)
	}
	for _, s := range []string{"Wait App", "Refund Request", "Refunded", ""} {
		assert.False(t, DocDateVisible(s), s)
	}
	assert.Equal(t, "status-visa-approved", StatusClass("Visa Approved"))
	assert.Equal(t, "status-none", StatusClass(" "))
}

func TestGroupFind(t *testing.T) {
	g := Group{
		Traveler:   New(Travelers, 1),
		Dependents: []Record{New(Dependents, 2), New(Dependents, 3)},
	}
	r, ok := g.Find(Dependents, 3)
	require.True(t, ok)
	r.Set("first_name", "Zed")
	assert.Equal(t, "Zed", g.Dependents[1].Get("first_name"))

	_, ok = g.Find(Travelers, 2)
	assert.False(t, ok)

	c := g.Clone()
	c.Dependents[0].Set("first_name", "changed")
	assert.Equal(t, "", g.Dependents[0].Get("first_name"))
	assert.Len(t, g.Records(), 3)
}
