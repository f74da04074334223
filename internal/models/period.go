package models

import (
	"fmt"
	"time"
)

// Period - half-year certificate window
type Period string

const (
	FirstHalf  Period = "first_half"
	SecondHalf Period = "second_half"
)

func (p Period) Valid() bool {
	return p == FirstHalf || p == SecondHalf
}

// Range returns the half-open UTC interval [from, to) covered by the period.
func (p Period) Range(year int) (time.Time, time.Time, error) {
	switch p {
	case FirstHalf:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC), nil
	case SecondHalf:
		return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", p)
}

func (p Period) Label(year int) string {
	if p == FirstHalf {
		return fmt.Sprintf("January - June %d", year)
	}
	return fmt.Sprintf("July - December %d", year)
}
