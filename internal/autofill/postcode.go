package autofill

import (
	"context"
	"strings"

	"visadesk/internal/api"
	"visadesk/internal/update"
)

// PostcodeLookup resolves postcodes. *api.Client implements it.
type PostcodeLookup interface {
	LookupPostcode(ctx context.Context, postcode string) (api.Address, error)
}

// AddressChanges maps a looked-up address onto the address fields. Empty
// parts are skipped so a lookup never wipes what staff typed.
func AddressChanges(a api.Address) []update.Change {
	var out []update.Change
	add := func(field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, update.Change{Field: field, Value: v})
		}
	}
	add("address_line_1", a.Line1)
	add("address_line_2", a.Line2)
	add("city", a.City)
	add("state_province", a.Province)
	add("zip", a.Postcode)
	return out
}

// Postcode looks up a postcode and returns the address changes.
func Postcode(ctx context.Context, l PostcodeLookup, code string) ([]update.Change, error) {
	a, err := l.LookupPostcode(ctx, code)
	if err != nil {
		return nil, err
	}
	return AddressChanges(a), nil
}
