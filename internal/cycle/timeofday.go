package cycle

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a local HH:MM wall-clock time, represented as minutes since
// midnight (0..1439). It never carries a date or timezone — those live on
// the Clock.
type TimeOfDay int

// Parse accepts 24-hour "HH:MM" (e.g. "09:00", "23:58") and returns the
// corresponding TimeOfDay. It is strict: hours must be 00-23, minutes
// 00-59, exactly two digits each, separated by a single colon.
func Parse(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("cycle: invalid time of day %q: want HH:MM", s)
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("cycle: invalid time of day %q: want two-digit HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("cycle: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("cycle: invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// Format renders the TimeOfDay as zero-padded 24-hour "HH:MM".
func (t TimeOfDay) Format() string {
	m := int(t) % (24 * 60)
	if m < 0 {
		m += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Minutes returns the time of day as minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// Add returns the TimeOfDay minutes further along, wrapping past midnight.
func (t TimeOfDay) Add(minutes float64) TimeOfDay {
	total := int(t) + int(minutes)
	const day = 24 * 60
	total %= day
	if total < 0 {
		total += day
	}
	return TimeOfDay(total)
}

// AddUnwrapped returns minutes-since-midnight without wrapping, so callers
// that need to compare against a period end that itself may exceed 1440
// (e.g. night wrapping past midnight) can do so without modular arithmetic
// surprises.
func (t TimeOfDay) AddUnwrapped(minutes float64) int {
	return int(t) + int(minutes)
}

// FromMinutes builds a TimeOfDay from raw minutes-since-midnight, wrapping.
func FromMinutes(minutes int) TimeOfDay {
	const day = 24 * 60
	minutes %= day
	if minutes < 0 {
		minutes += day
	}
	return TimeOfDay(minutes)
}
