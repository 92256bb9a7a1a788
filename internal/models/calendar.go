package models

import (
	"fmt"
	"time"
)

// Label layouts used for page titles and link text.
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
	YearLayout  = "2006"
)

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t (in UTC).
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// DateCount is the number of comments rendered for one calendar day.
type DateCount struct {
	Date  time.Time
	Count int
}

// Label formats the day as YYYY-MM-DD.
func (d DateCount) Label() string {
	return d.Date.Format(DayLayout)
}

// MonthCount is the total for one calendar month.
type MonthCount struct {
	Month Month
	Count int
}

// Label formats the month as YYYY-MM.
func (m MonthCount) Label() string {
	return m.Month.String()
}

// YearCount is the total for one calendar year.
type YearCount struct {
	Year  int
	Count int
}

// Label formats the year as YYYY.
func (y YearCount) Label() string {
	return fmt.Sprintf("%04d", y.Year)
}

// SumDays adds up the counts of a day list.
func SumDays(days []DateCount) int {
	total := 0
	for _, d := range days {
		total += d.Count
	}
	return total
}

// SumMonths adds up the counts of a month list.
func SumMonths(months []MonthCount) int {
	total := 0
	for _, m := range months {
		total += m.Count
	}
	return total
}
