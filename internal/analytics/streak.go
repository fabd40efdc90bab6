package analytics

import (
	"time"

	"github.com/2beens/edgetrack/internal/sessions"
)

// DailyStreak counts consecutive calendar days, in loc, that had at least one
// session not finished during an edge. Counting starts at the most recent such
// day and stops at the first missing day.
func DailyStreak(list []sessions.Session, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}

	successfulDays := make(map[time.Time]bool)
	var latest time.Time
	for _, s := range list {
		if s.FinishedDuringEdge {
			continue
		}
		day := calendarDay(s.CreatedAt, loc)
		successfulDays[day] = true
		if day.After(latest) {
			latest = day
		}
	}
	if len(successfulDays) == 0 {
		return 0
	}

	streak := 0
	for day := latest; successfulDays[day]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// calendarDay is local midnight of t. AddDate keeps DST days aligned.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
