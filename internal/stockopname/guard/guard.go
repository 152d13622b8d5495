package guard

import (
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
)

// EnsureCanProcess allows counting while the opname is pending or draft.
func EnsureCanProcess(status domain.Status) error {
	switch status {
	case domain.StatusPending, domain.StatusDraft:
		return nil
	default:
		return domain.ErrInvalidState
	}
}

// EnsureCanFinalize allows finalization of a confirmed opname once the
// calendar day of opnameDate has passed in loc.
func EnsureCanFinalize(status domain.Status, opnameDate, now time.Time, loc *time.Location) error {
	if status != domain.StatusConfirmed {
		return domain.ErrInvalidState
	}
	if !CivilDate(now, loc).After(DateOnly(opnameDate)) {
		return domain.ErrTooEarly
	}
	return nil
}

// CivilDate is the calendar day of t in loc, at UTC midnight.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock of a stored date column.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
