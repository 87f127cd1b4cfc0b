package scheduling

import "time"

// AddMonths computes y' = y + (m-1+n)/12, m' = ((m-1+n) mod 12)+1,
// day' = min(d.day, days_in(y', m')), preserving end-of-month semantics
// per spec.md §4.3.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	totalMonths := int(m) - 1 + n
	y += totalMonths / 12
	mi := totalMonths % 12
	if mi < 0 {
		mi += 12
		y--
	}
	month := time.Month(mi + 1)

	lastDay := daysIn(y, month)
	if day > lastDay {
		day = lastDay
	}
	return time.Date(y, month, day, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
