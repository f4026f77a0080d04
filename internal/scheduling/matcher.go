package scheduling

import (
	"fmt"
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// IsWithinAvailability reports whether t falls inside the profile's weekly windows.
//
// A profile with sharing disabled or no windows never constrains, so it
// always returns true. Otherwise the UTC weekday and "HH:MM" of t must fall in
// some window's half-open range [StartTime, EndTime).
func IsWithinAvailability(profile model.AvailabilityProfile, t time.Time) bool {
	if !profile.Constrains() {
		return true
	}

	day, clock := utcDayAndClock(t)
	for _, w := range profile.Windows {
		if w.DayOfWeek == day && w.StartTime <= clock && clock < w.EndTime {
			return true
		}
	}
	return false
}

func utcDayAndClock(t time.Time) (int, string) {
	u := t.UTC()
	return int(u.Weekday()), fmt.Sprintf("%02d:%02d", u.Hour(), u.Minute())
}
