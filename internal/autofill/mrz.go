// Package autofill turns passport machine-readable zones and postcode lookups
// into field changes applied through the update runner.
package autofill

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"visadesk/internal/update"
)

const td3LineLen = 44

var (
	ErrInvalidMRZ = errors.New("invalid passport MRZ")
	ErrCheckDigit = errors.New("MRZ check digit mismatch")
)

// Passport is the data read from a TD3 (passport booklet) MRZ.
type Passport struct {
	IssuingState string `json:"issuingState"`
	Surname      string `json:"surname"`
	GivenNames   string `json:"givenNames"`
	Number       string `json:"number"`
	Nationality  string `json:"nationality"`
	// DOB and Expiry are DD/MM/YYYY display dates.
	DOB    string `json:"dob"`
	Gender string `json:"gender"`
	Expiry string `json:"expiry"`
}

// Changes maps the passport onto record fields. Gender comes before dob so
// the title rule sees both.
func (p Passport) Changes() []update.Change {
	var out []update.Change
	add := func(field, v string) {
		if strings.TrimSpace(v) != "" {
			out = append(out, update.Change{Field: field, Value: v})
		}
	}
	add("first_name", p.GivenNames)
	add("last_name", p.Surname)
	add("gender", p.Gender)
	add("dob", p.DOB)
	add("nationality", p.Nationality)
	add("passport_no", p.Number)
	add("passport_expiry", p.Expiry)
	return out
}

// ParseMRZ reads the two 44-character lines of a passport MRZ. Whitespace
// and line breaks between or around the lines are ignored. now decides the
// century of the birth year.
func ParseMRZ(text string, now time.Time) (Passport, error) {
	l1, l2, err := splitLines(text)
	if err != nil {
		return Passport{}, err
	}
	if l1[0] != 'P' {
		return Passport{}, fmt.Errorf("%w: not a passport (document type %q)", ErrInvalidMRZ, l1[:2])
	}

	checks := []struct {
		name  string
		value string
		digit byte
	}{
		{"passport number", l2[0:9], l2[9]},
		{"date of birth", l2[13:19], l2[19]},
		{"expiry date", l2[21:27], l2[27]},
		{"composite", l2[0:10] + l2[13:20] + l2[21:43], l2[43]},
	}
	for _, c := range checks {
		if !checkDigitOK(c.value, c.digit) {
			return Passport{}, fmt.Errorf("%w: %s", ErrCheckDigit, c.name)
		}
	}
	// The personal number check may be '<' when the field is empty.
	if pn := l2[28:42]; strings.Trim(pn, "<") != "" || l2[42] != '<' {
		if !checkDigitOK(pn, l2[42]) {
			return Passport{}, fmt.Errorf("%w: personal number", ErrCheckDigit)
		}
	}

	surname, given := splitNames(l1[5:])
	dob, err := mrzDate(l2[13:19], now, true)
	if err != nil {
		return Passport{}, err
	}
	expiry, err := mrzDate(l2[21:27], now, false)
	if err != nil {
		return Passport{}, err
	}
	nat := strings.TrimRight(l2[10:13], "<")
	return Passport{
		IssuingState: strings.TrimRight(l1[2:5], "<"),
		Surname:      surname,
		GivenNames:   given,
		Number:       strings.TrimRight(l2[0:9], "<"),
		Nationality:  Demonym(nat),
		DOB:          dob,
		Gender:       mrzGender(l2[20]),
		Expiry:       expiry,
	}, nil
}

func splitLines(text string) (string, string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
		case r == '<' || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			return "", "", fmt.Errorf("%w: unexpected character %q", ErrInvalidMRZ, r)
		}
	}
	s := b.String()
	if len(s) != 2*td3LineLen {
		return "", "", fmt.Errorf("%w: expected two lines of %d characters, got %d characters", ErrInvalidMRZ, td3LineLen, len(s))
	}
	return s[:td3LineLen], s[td3LineLen:], nil
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// CheckDigit is the ICAO 9303 check digit (weights 7, 3, 1).
func CheckDigit(s string) byte {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return byte('0' + sum%10)
}

func checkDigitOK(s string, digit byte) bool {
	if digit == '<' {
		digit = '0'
	}
	return CheckDigit(s) == digit
}

func splitNames(field string) (surname, given string) {
	field = strings.TrimRight(field, "<")
	s, g, _ := strings.Cut(field, "<<")
	return nameCase(s), nameCase(g)
}

func nameCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '<' })
	for i, p := range parts {
		parts[i] = p[:1] + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

func mrzGender(c byte) string {
	switch c {
	case 'M':
		return "Male"
	case 'F':
		return "Female"
	default:
		return ""
	}
}

// mrzDate converts YYMMDD. Birth years after the current year belong to the
// previous century; expiry years are always 20YY.
func mrzDate(s string, now time.Time, birth bool) (string, error) {
	t, err := time.Parse("060102", s)
	if err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidMRZ, s)
	}
	yy := t.Year() % 100
	year := 2000 + yy
	if birth && year > now.Year() {
		year -= 100
	}
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), year), nil
}

var demonyms = map[string]string{
	"GBR": "British",
	"GBD": "British",
	"IRL": "Irish",
	"FRA": "French",
	"DEU": "German",
	"D":   "German",
	"ESP": "Spanish",
	"ITA": "Italian",
	"NLD": "Dutch",
	"BEL": "Belgian",
	"USA": "American",
	"IND": "Indian",
	"PAK": "Pakistani",
	"CHN": "Chinese",
	"NGA": "Nigerian",
	"POL": "Polish",
	"PRT": "Portuguese",
	"TUR": "Turkish",
	"BGD": "Bangladeshi",
	"LKA": "Sri Lankan",
}

// Demonym maps an ICAO nationality code to the nationality shown on records.
// Unknown codes are returned as-is.
func Demonym(code string) string {
	if d, ok := demonyms[code]; ok {
		return d
	}
	return code
}
