package record

import (
	"strings"
	"time"

	"visadesk/internal/fields"
)

// Status values with behavior attached to them.
const (
	StatusWaitApp      = "Wait App"
	StatusDoc          = "Doc"
	StatusHold         = "Hold"
	StatusReschedule   = "Reschedule"
	StatusVisaApproved = "Visa Approved"
	StatusCompleted    = "Completed"
)

// docDateStatuses keep doc_date visible; any other status clears it.
var docDateStatuses = map[string]bool{
	StatusDoc:          true,
	StatusCompleted:    true,
	StatusVisaApproved: true,
	StatusHold:         true,
	StatusReschedule:   true,
}

func DocDateVisible(status string) bool {
	return docDateStatuses[strings.TrimSpace(status)]
}

// StatusClass is the style class of a status, e.g. "status-visa-approved".
func StatusClass(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return "status-none"
	}
	return "status-" + strings.Join(strings.Fields(status), "-")
}

// DeriveName is the cached display name: first and last name joined by a space.
func DeriveName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// DeriveTitle returns the title implied by gender and date of birth, or ""
// when either is missing or not understood. Adults are Mr/Ms, minors Mstr/Miss.
func DeriveTitle(gender, dob string, now time.Time) string {
	born, err := fields.ParseDate(dob)
	if err != nil {
		return ""
	}
	adult := fields.AgeOn(born, now) >= 18
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "m":
		if adult {
			return "Mr"
		}
		return "Mstr"
	case "female", "f":
		if adult {
			return "Ms"
		}
		return "Miss"
	default:
		return ""
	}
}
