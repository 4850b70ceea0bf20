package timer

import (
	"fmt"
	"time"
)

// FormatClock renders a duration as zero-padded HH:MM:SS with unbounded
// hours. Negative durations render as 00:00:00.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatWithDayRollover renders durations past 24 hours as "{days}d {hours}h"
// (minutes and seconds dropped), and shorter durations as a clock.
func FormatWithDayRollover(d time.Duration) string {
	if d > 24*time.Hour {
		hours := int64(d / time.Hour)
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	return FormatClock(d)
}

// FormatDuration renders "{hours}h {minutes}m" when hours are present, else
// "{minutes}m". Used for the Completed summary only.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
