package reminder

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05"}

// ResolveInstant combines a stored date and clock-time into an absolute
// instant in loc. The date string may carry an embedded time component
// (from stores that persist full timestamps); only its date portion is
// used — the clock argument is authoritative for the time of day. An
// empty clock means midnight. A string that does not resolve to a valid
// calendar date-time is an error, never a fallback to "now".
func ResolveInstant(date, clock string, loc *time.Location) (time.Time, error) {
	datePart := date
	if i := strings.IndexAny(datePart, "T "); i >= 0 {
		datePart = datePart[:i]
	}
	if clock == "" {
		clock = "00:00"
	}

	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation(dateLayout+" "+layout, datePart+" "+clock, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("resolve appointment instant: invalid date/time %q %q", date, clock)
}

// HoursUntil returns the signed number of hours from now until at.
// Negative means the appointment is already in the past, which is a
// valid result, not an error.
func HoursUntil(at, now time.Time) float64 {
	return at.Sub(now).Hours()
}

// Classify returns every reminder kind whose window contains hours.
// Bounds are inclusive. With the configured widths at most one kind
// matches, but callers must not rely on that.
func Classify(hours float64) []Kind {
	var kinds []Kind
	if hours >= window24Min && hours <= window24Max {
		kinds = append(kinds, Kind24Hour)
	}
	if hours >= window1Min && hours <= window1Max {
		kinds = append(kinds, Kind1Hour)
	}
	return kinds
}
