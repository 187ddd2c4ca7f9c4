package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// clockPattern matches "7 baje", "7pm", "7:30 pm" style time-of-day
// phrases (Hindi "baje" or an English am/pm suffix).
var clockPattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(am|pm|baje)?`)

// parseReminderTime deterministically parses a natural-language time
// phrase ("kal", "aaj", "7 baje", "tomorrow 7 pm") relative to now in
// loc, falling back to now+1h per SPEC_FULL when nothing recognizable
// is found.
func parseReminderTime(phrase string, now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return now.Add(time.Hour)
	}

	day := now
	switch {
	case strings.Contains(p, "kal") || strings.Contains(p, "tomorrow"):
		day = now.AddDate(0, 0, 1)
	case strings.Contains(p, "aaj") || strings.Contains(p, "today"):
		day = now
	}

	hour, minute, hasClock := parseClock(p)
	if !hasClock {
		if day.Format("2006-01-02") == now.Format("2006-01-02") {
			return now.Add(time.Hour)
		}
		// "kal" / "tomorrow" with no time given defaults to 09:00.
		return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, loc)
	}

	result := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	if result.Before(now) {
		result = result.AddDate(0, 0, 1)
	}
	return result
}

func parseClock(p string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(p)
	if m == nil || m[1] == "" {
		return 0, 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h > 23 {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if strings.EqualFold(m[3], "pm") && h < 12 {
		h += 12
	}
	return h, minute, true
}
