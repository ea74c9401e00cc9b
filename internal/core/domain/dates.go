package domain

import "time"

// DateOf truncates t to its calendar date in t's own location, returned as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// afterDate reports whether now falls on a calendar day strictly after date.
func afterDate(now, date time.Time) bool {
	return DateOf(now).After(DateOf(date))
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
