package fields

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is the validation error for date fields.
var ErrInvalidDate = errors.New("invalid date (expected DD/MM/YYYY)")

const maxDateDigits = 8

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a strict DD/MM/YYYY display date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	for _, p := range parts {
		if !allDigits(p) {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
	}
	d, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	y, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if y < 1 || m < 1 || m > 12 || d < 1 || d > daysInMonth(y, time.Month(m)) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateDate checks a display date. Empty is valid (it clears the field).
func ValidateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := ParseDate(s)
	return err
}

// DisplayToWire converts DD/MM/YYYY to YYYY-MM-DD. Empty stays empty.
func DisplayToWire(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// WireToDisplay converts a backend date to DD/MM/YYYY. Timestamps are cut to
// their date part. Values that are not dates are returned unchanged.
func WireToDisplay(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > 10 && s[4] == '-' && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}

// MaskDate keeps the digits of raw (at most eight) and inserts "/" after the
// day and month, the way the date editor renders typed input.
func MaskDate(raw string) string {
	var digits []byte
	for i := 0; i < len(raw) && len(digits) < maxDateDigits; i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	var b strings.Builder
	for i, c := range digits {
		if i == 2 || i == 4 {
			b.WriteByte('/')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// AgeOn returns the age in whole years at the given day.
func AgeOn(dob, on time.Time) int {
	age := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		age--
	}
	return age
}
