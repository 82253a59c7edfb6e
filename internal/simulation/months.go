package simulation

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// ParseMonth parses a YYYY-MM month label.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return t, nil
}

// MonthRange returns n consecutive month labels starting at start.
func MonthRange(start string, n int) ([]string, error) {
	t, err := ParseMonth(start)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.AddDate(0, i, 0).Format(monthLayout)
	}
	return out, nil
}

// monthsBetween returns the signed number of months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
