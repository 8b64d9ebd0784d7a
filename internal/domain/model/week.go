package model

import (
	"fmt"
	"time"
)

// Week identifies a scheduling week as a linear count of weeks since the
// Unix epoch, so cooldown arithmetic is a plain subtraction.
type Week int

const daysPerWeek = 7

// WeekOf returns the Week containing t (UTC).
func WeekOf(t time.Time) Week {
	days := int(t.UTC().Unix() / int64(24*time.Hour/time.Second))
	return Week(days / daysPerWeek)
}

// Sub returns the number of whole weeks between w and earlier.
func (w Week) Sub(earlier Week) int {
	return int(w - earlier)
}

// Time returns the start of the week (Thursday 1970-01-01 origin, UTC).
func (w Week) Time() time.Time {
	return time.Unix(int64(w)*int64(daysPerWeek)*24*3600, 0).UTC()
}

// String renders an ISO-style year-week label for logs and run records.
func (w Week) String() string {
	t := w.Time()
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
