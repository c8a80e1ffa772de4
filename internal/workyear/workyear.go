// Package workyear computes anniversary-based tenure. Work year N is the
// half-open window [hire+N years, hire+N+1 years); the anniversary day
// itself starts the new work year.
package workyear

import "time"

// Calc returns the work year the reference date falls in. Dates before
// the hire date clamp to 0.
func Calc(hireDate, ref time.Time) int {
	hireDate = truncate(hireDate)
	ref = truncate(ref)

	if ref.Before(hireDate) {
		return 0
	}

	years := ref.Year() - hireDate.Year()
	anniversary := anniversaryIn(hireDate, ref.Year())

	// Anniversary not reached yet this calendar year: previous work year.
	if ref.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Period returns the [start, end) window of the given work year.
func Period(hireDate time.Time, workYear int) (start, end time.Time) {
	hireDate = truncate(hireDate)
	start = hireDate.AddDate(workYear, 0, 0)
	end = hireDate.AddDate(workYear+1, 0, 0)
	return start, end
}

// AnniversaryOn reports whether date is a hire anniversary (month and day
// match). The hire date itself does not count.
func AnniversaryOn(hireDate, date time.Time) bool {
	hireDate = truncate(hireDate)
	date = truncate(date)
	if !date.After(hireDate) {
		return false
	}
	return date.Month() == hireDate.Month() && date.Day() == hireDate.Day()
}

// AnniversaryYear maps a work year to the calendar year its window ends
// in, matching how balances are labelled: hireYear + workYear + 1.
func AnniversaryYear(hireDate time.Time, workYear int) int {
	return hireDate.Year() + workYear + 1
}

func anniversaryIn(hireDate time.Time, year int) time.Time {
	return time.Date(year, hireDate.Month(), hireDate.Day(), 0, 0, 0, 0, hireDate.Location())
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
