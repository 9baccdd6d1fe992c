package ledger

import (
	"errors"
	"fmt"
)

// Status is the terminal outcome recorded for a posting.
type Status string

const (
	StatusApplied            Status = "Applied"
	StatusAlreadyApplied     Status = "Already Applied"
	StatusFailed             Status = "Failed"
	StatusSkippedHeuristic   Status = "Skipped-Heuristic"
	StatusSkippedLowScore    Status = "Skipped-LowScore"
	StatusSkippedNotEligible Status = "Skipped-NotEligible"
	StatusBlacklistedTitle   Status = "Blacklisted-Title"
	StatusBlacklistedCompany Status = "Blacklisted-Company"
)

// ErrInvalidStatus is returned when recording a status outside the known set.
var ErrInvalidStatus = errors.New("invalid ledger status")

var statuses = []Status{
	StatusApplied,
	StatusAlreadyApplied,
	StatusFailed,
	StatusSkippedHeuristic,
	StatusSkippedLowScore,
	StatusSkippedNotEligible,
	StatusBlacklistedTitle,
	StatusBlacklistedCompany,
}

// Statuses returns every known status in a stable order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus maps a stored or user supplied value onto a known status.
func ParseStatus(value string) (Status, error) {
	for _, s := range statuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

func (s Status) String() string {
	return string(s)
}
