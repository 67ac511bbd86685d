package dashboard

import (
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
)

const dateLayout = "2006-01-02"

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodWindow returns [start, end] when both are given, otherwise the
// calendar quarter containing now.
func PeriodWindow(now time.Time, start, end *time.Time) (Window, error) {
	if start != nil && end != nil {
		if end.Before(*start) {
			return Window{}, apperr.Validation("end date is before start date")
		}
		return Window{Start: start.UTC(), End: end.UTC()}, nil
	}
	return Quarter(now), nil
}

// Quarter returns the calendar quarter containing t: Jan-Mar, Apr-Jun,
// Jul-Sep or Oct-Dec.
func Quarter(t time.Time) Window {
	first := time.Month((int(t.Month())-1)/3*3 + 1)
	start := time.Date(t.Year(), first, 1, 0, 0, 0, 0, t.Location())
	return Window{
		Start: start.UTC(),
		End:   start.AddDate(0, 3, 0).Add(-time.Nanosecond).UTC(),
	}
}

// ParseDate accepts RFC 3339 or a bare date. A bare date used as an end
// bound covers the whole day.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
