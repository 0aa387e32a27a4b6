// Package time contains time related helpers
package time

import "time"

// Day is the length of one calendar day in UTC
const Day = 24 * time.Hour

// Window is a closed UTC range [From, To]
type Window struct {
	From time.Time
	To   time.Time
}

// Dates returns the window from midnight of from to midnight of to, both instants included
// Anything later on the to day falls outside
func Dates(from, to time.Time) Window {
	return Window{From: Midnight(from), To: Midnight(to)}
}

// Days returns the window covering the calendar days from..to, both days included in full
func Days(from, to time.Time) Window {
	return Window{From: Midnight(from), To: Midnight(to).Add(Day - time.Nanosecond)}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Midnight returns the start of t's calendar day in UTC
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Unix converts epoch seconds to a UTC time
func Unix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
