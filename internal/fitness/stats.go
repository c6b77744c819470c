package fitness

import "time"

// Stats is the summary shown above the session list.
type Stats struct {
	TotalSessions  int     `json:"totalSessions"`
	TotalMinutes   int     `json:"totalMinutes"`
	WeeklyCalories float64 `json:"weeklyCalories"`
}

// WeekStart is local midnight six days before now, the lower bound of the
// trailing 7-day window.
func WeekStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-6, 0, 0, 0, 0, now.Location())
}

// ComputeStats counts all sessions and their minutes. Calories are summed
// only for sessions dated within [WeekStart(now), now]; rows without
// calories or with an unparseable date are skipped for that sum only.
func ComputeStats(sessions []Session, now time.Time) Stats {
	if len(sessions) == 0 {
		return Stats{}
	}

	weekStart := WeekStart(now)
	stats := Stats{TotalSessions: len(sessions)}
	for _, s := range sessions {
		stats.TotalMinutes += s.Duration

		if s.CaloriesBurned == nil {
			continue
		}
		date, err := ParseDate(s.Date, now.Location())
		if err != nil {
			continue
		}
		if !date.Before(weekStart) && !date.After(now) {
			stats.WeeklyCalories += *s.CaloriesBurned
		}
	}

	return stats
}
