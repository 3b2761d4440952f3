package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnglishMonths lists the twelve English month names in calendar order.
var EnglishMonths = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Date is a canonical calendar date: day of month, English month name, year.
type Date struct {
	Day   int
	Month string // one of EnglishMonths
	Year  int
}

// MonthIndex returns the 1-based month number, or 0 when Month is not a
// known English month.
func (d Date) MonthIndex() int {
	for i, m := range EnglishMonths {
		if m == d.Month {
			return i + 1
		}
	}
	return 0
}

// ISO renders the date as YYYY-MM-DD, the canonical column-0 format.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.MonthIndex(), d.Day)
}

// Time converts the date to a time.Time at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.MonthIndex()), d.Day, 0, 0, 0, 0, time.UTC)
}

// Equal reports whether two dates name the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Day == o.Day && d.MonthIndex() == o.MonthIndex() && d.Year == o.Year
}

// ParseCellDate parses a spreadsheet date cell. It accepts the canonical
// ISO form (2025-06-13) and the legacy locale forms the sheet accumulated
// before the format was fixed (6/13/2025 and 13/6/2025 are disambiguated by
// range). The second return value is false when the cell does not hold a
// date.
func ParseCellDate(cell string) (Date, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return Date{}, false
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return dateOf(t), true
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Date{}, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
	if errA != nil || errB != nil || errY != nil {
		return Date{}, false
	}
	// en-US writes m/d/yyyy; a first component above 12 can only be a day.
	month, day := a, b
	if month > 12 && day <= 12 {
		month, day = b, a
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}
	return Date{Day: day, Month: EnglishMonths[month-1], Year: year}, true
}

func dateOf(t time.Time) Date {
	return Date{Day: t.Day(), Month: EnglishMonths[int(t.Month())-1], Year: t.Year()}
}
