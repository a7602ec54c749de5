package etl

import "time"

// ── Calculator ─────────────────────────────────────────────
// Derived fields of a staged record. Both functions take the reference
// time explicitly so a run computes every record against the same instant.

// Age returns the whole years elapsed from birth to now. The current year
// does not count until the birthday (month, day) has been reached.
func Age(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// DaysSince returns the number of calendar days from date to now.
// Dates after now yield a negative count.
func DaysSince(date, now time.Time) int {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}
