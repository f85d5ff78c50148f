// ABOUTME: Time of day buckets used to pick day and night ambiences
// ABOUTME: Buckets can be parsed from names or derived from a local clock hour
package resolver

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a coarse part of the day
type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Day     TimeOfDay = "day"
	Evening TimeOfDay = "evening"
	Night   TimeOfDay = "night"
)

// TimesOfDay lists every bucket in order
var TimesOfDay = []TimeOfDay{Morning, Day, Evening, Night}

// ParseTimeOfDay converts a name into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	tod := TimeOfDay(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimesOfDay {
		if tod == known {
			return tod, nil
		}
	}
	return "", fmt.Errorf("unknown time of day: %q", s)
}

// TimeOfDayAt buckets a local clock hour
func TimeOfDayAt(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 8:
		return Morning
	case hour >= 8 && hour < 17:
		return Day
	case hour >= 17 && hour < 20:
		return Evening
	default:
		return Night
	}
}

// TimeOfDayOf buckets a local time
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDayAt(t.Hour())
}

func (t TimeOfDay) dark() bool {
	return t == Night
}

func (t TimeOfDay) dusk() bool {
	return t == Evening || t == Night
}
