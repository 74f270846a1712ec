package autofill

import (
	"context"
	"errors"
	"testing"
	"time"

	"visadesk/internal/api"
	"visadesk/internal/fields"
	"visadesk/internal/record"
	"visadesk/internal/render"
	"visadesk/internal/update"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

const specimen = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<\n" +
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10"

func TestParseMRZ_Specimen(t *testing.T) {
	p, err := ParseMRZ(specimen, now)
	require.NoError(t, err)
	assert.Equal(t, Passport{
		IssuingState: "UTO",
		Surname:      "Eriksson",
		GivenNames:   "Anna Maria",
		Number:       "L898902C3",
		Nationality:  "UTO",
		DOB:          "12/08/1974",
		Gender:       "Female",
		Expiry:       "15/04/2012",
	}, p)
}

func TestParseMRZ_EmptyPersonalNumber(t *testing.T) {
	mrz := "P<GBRSMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<<" +
		"  1234567897GBR1501010M3101012<<<<<<<<<<<<<<<0 "
	p, err := ParseMRZ(mrz, now)
	require.NoError(t, err)
	assert.Equal(t, "British", p.Nationality)
	assert.Equal(t, "01/01/2015", p.DOB)
	assert.Equal(t, "01/01/2031", p.Expiry)
	assert.Equal(t, "Male", p.Gender)
	assert.Equal(t, "John", p.GivenNames)
}

func TestParseMRZ_Errors(t *testing.T) {
	_, err := ParseMRZ("P<UTO", now)
	assert.ErrorIs(t, err, ErrInvalidMRZ)

	bad := "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<" +
		"L898902C37UTO7408122F1204159ZE184226B<<<<<10"
	_, err = ParseMRZ(bad, now)
	assert.ErrorIs(t, err, ErrCheckDigit)

	_, err = ParseMRZ("I"+specimen[1:], now)
	assert.ErrorIs(t, err, ErrInvalidMRZ)

	_, err = ParseMRZ("P<UTO#"+specimen[6:], now)
	assert.ErrorIs(t, err, ErrInvalidMRZ)
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, byte('6'), CheckDigit("L898902C3"))
	assert.Equal(t, byte('2'), CheckDigit("740812"))
	assert.Equal(t, byte('0'), CheckDigit("<<<<"))
}

type fakeAPI struct {
	calls []string
	addr  api.Address
	err   error
}

func (f *fakeAPI) PatchField(_ context.Context, _ record.Table, _ int64, field, value string) error {
	f.calls = append(f.calls, field+"="+value)
	return nil
}

func (f *fakeAPI) FetchGroup(_ context.Context, id int64) (record.Group, error) {
	return record.Group{}, errors.New("no refetch in this test")
}

func (f *fakeAPI) LookupPostcode(_ context.Context, _ string) (api.Address, error) {
	return f.addr, f.err
}

func newRunner(t *testing.T, f *fakeAPI) *update.Runner {
	t.Helper()
	r := render.NewRenderer(fields.Default())
	b := render.NewBoard(r)
	tr := record.New(record.Travelers, 1)
	tr.Set("notes", "")
	b.Reset([]record.Group{{Traveler: tr}})
	_, err := b.Expand(record.Travelers, 1)
	require.NoError(t, err)
	return &update.Runner{
		Coord: update.NewCoordinator(r, update.WithClock(func() time.Time { return now })),
		Board: b,
		Patch: f,
	}
}

func TestPassportChanges_ApplyWithDerivations(t *testing.T) {
	mrz := "P<GBRSMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<<" +
		"1234567897GBR1501010M3101012<<<<<<<<<<<<<<<0"
	p, err := ParseMRZ(mrz, now)
	require.NoError(t, err)

	f := &fakeAPI{}
	run := newRunner(t, f)
	rep, err := run.ApplyAll(context.Background(), record.Travelers, 1, p.Changes())
	require.NoError(t, err)
	assert.False(t, rep.Failed())

	assert.Equal(t, []string{
		"first_name=John",
		"name=John",
		"last_name=Smith",
		"name=John Smith",
		"gender=Male",
		"dob=2015-01-01",
		"title=Mstr",
		"nationality=British",
		"passport_no=123456789",
		"passport_expiry=2031-01-01",
	}, f.calls)

	_, v, ok := run.Board.Find(record.Travelers, 1)
	require.True(t, ok)
	assert.Equal(t, "John Smith", v.Header.Name)
	assert.Equal(t, "Mstr", v.Fields["title"].Text)
}

func TestPostcode(t *testing.T) {
	f := &fakeAPI{addr: api.Address{Line1: "1 Main St", City: "Dublin", Postcode: "D02 X285"}}
	changes, err := Postcode(context.Background(), f, "d02x285")
	require.NoError(t, err)
	assert.Equal(t, []update.Change{
		{Field: "address_line_1", Value: "1 Main St"},
		{Field: "city", Value: "Dublin"},
		{Field: "zip", Value: "D02 X285"},
	}, changes)

	f.err = api.ErrPostcodeNotFound
	_, err = Postcode(context.Background(), f, "nope")
	assert.ErrorIs(t, err, api.ErrPostcodeNotFound)
}

func TestPostcodeChanges_RefetchFailureIsANotice(t *testing.T) {
	f := &fakeAPI{}
	run := newRunner(t, f)
	run.Fetch = f
	rep, err := run.ApplyAll(context.Background(), record.Travelers, 1, AddressChanges(api.Address{City: "Cork"}))
	require.NoError(t, err)
	assert.False(t, rep.Failed())
	assert.Equal(t, []string{"city=Cork"}, f.calls)
	require.Len(t, rep.Notices, 1)
	assert.Contains(t, rep.Notices[0], "reload")
}
