package service

import "time"

// Overlaps reports whether the half-open windows [s1, e1) and [s2, e2)
// intersect. Touching endpoints do not overlap, a reservation ending on a
// day does not block one starting that same day.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// dayUTC truncates t to midnight UTC. Reservations work in whole calendar
// days, anything finer than a day is dropped before validation or pricing.
func dayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// durationDays counts the whole days covered by [start, end). Both inputs
// must already be day-truncated.
func durationDays(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
