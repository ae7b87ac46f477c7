package tracker

import (
	"strings"
	"time"
)

// timeLayouts is the ordered list of timestamp formats encountered in tracker
// payloads. JIRA instances are inconsistent about timezone suffixes and
// sub-second precision, so never call time.Parse with a single layout on
// tracker data.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a tracker timestamp using a multi-layout fallback.
// Returns a zero time.Time (not an error) on failure so callers can use a
// simple zero check for missing data.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// DaysSince returns whole days elapsed from t to now, or -1 for a zero t.
func DaysSince(t, now time.Time) int {
	if t.IsZero() {
		return -1
	}
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
