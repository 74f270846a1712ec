package fields

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDate(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"29/02/2024", false},
		{"30/02/2024", true},
		{"29/02/2023", true},
		{"31/04/2025", true},
		{"31/12/1999", false},
		{"01/13/2020", true},
		{"1/1/2020", true},
		{"2020-01-01", true},
		{"aa/bb/cccc", true},
		{"+1/03/2024", true},
		{"01/+3/2024", true},
		{"01/03/+202", true},
		{"-1/03/2024", true},
		{" 1/03/2024", true},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateDate(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDate, "ValidateDate(%q)", tc.in)
		} else {
			assert.NoError(t, err, "ValidateDate(%q)", tc.in)
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	wire, err := DisplayToWire("05/03/2030")
	require.NoError(t, err)
	assert.Equal(t, "2030-03-05", wire)
	assert.Equal(t, "05/03/2030", WireToDisplay(wire))
	assert.Equal(t, "05/03/2030", WireToDisplay("2030-03-05T00:00:00Z"))
	assert.Equal(t, "not a date", WireToDisplay("not a date"))

	_, err = DisplayToWire("01/03/+202")
	assert.ErrorIs(t, err, ErrInvalidDate)

	empty, err := DisplayToWire("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestMaskDate(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"0":            "0",
		"05":           "05",
		"053":          "05/3",
		"0503":         "05/03",
		"05032":        "05/03/2",
		"05032030":     "05/03/2030",
		"0503203099":   "05/03/2030",
		"05/03/2030":   "05/03/2030",
		"ab05-03x2030": "05/03/2030",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskDate(in), "MaskDate(%q)", in)
	}
}

func TestAgeOn(t *testing.T) {
	dob := time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 17, AgeOn(dob, time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18, AgeOn(dob, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestMulti(t *testing.T) {
	assert.Equal(t, "France - Spain", JoinMulti([]string{" France", "Spain", "France", ""}))
	assert.Equal(t, []string{"France", "Spain"}, SplitMulti("France - Spain"))
	assert.Nil(t, SplitMulti("  "))
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	tc := r.Lookup("travel_country")
	assert.True(t, tc.Multi)
	assert.Equal(t, KindMultiSelect, tc.Kind())
	assert.True(t, tc.AffectsDerivedDisplay)

	st := r.Lookup("status")
	assert.Equal(t, KindSelect, st.Kind())
	assert.Equal(t, r.Statuses(), st.Options)
	assert.Contains(t, st.Options, "Visa Approved")

	assert.Equal(t, KindDate, r.Lookup("dob").Kind())
	assert.Equal(t, KindTextArea, r.Lookup("notes").Kind())
	assert.True(t, r.Lookup("application_link").Link)

	unknown := r.Lookup("shoe_size")
	assert.False(t, r.Known("shoe_size"))
	assert.Equal(t, DefaultPlaceholder, unknown.Placeholder)
	assert.Equal(t, KindText, unknown.Kind())

	travelers := r.Order(TableTravelers)
	dependents := r.Order(TableDependents)
	assert.Contains(t, travelers, "package")
	assert.NotContains(t, dependents, "package")
	assert.Contains(t, dependents, "relationship")
	assert.Equal(t, "title", travelers[0])
}

func TestParseRegistryErrors(t *testing.T) {
	_, err := Parse([]byte("fields:\n  - name: a\n  - name: a\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("fields:\n  - name: a\n    options_from: nowhere\n"))
	assert.ErrorIs(t, err, ErrUnknownOptionsSource)
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statuses: [New, Done]\noptions:\n  visa_center: [Glasgow]\n"), 0o644))

	base := Default()
	r, err := base.LoadOverride(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Glasgow"}, r.Lookup("visa_center").Options)
	assert.Equal(t, []string{"New", "Done"}, r.Lookup("status").Options)
	// The base registry is untouched.
	assert.NotEqual(t, []string{"Glasgow"}, base.Lookup("visa_center").Options)

	same, err := base.LoadOverride(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Same(t, base, same)
}
