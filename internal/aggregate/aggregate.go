// Package aggregate folds a chronological list of per-day comment counts into
// calendar month and year buckets.
//
// Buckets are flushed through caller-supplied callbacks as soon as the first
// entry of the next period is seen, and once more when the input ends. The
// package does no I/O of its own.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/j-veylop/comment-archive/internal/models"
)

var (
	// ErrNoDays is returned when aggregation is asked to run over an empty list.
	ErrNoDays = errors.New("no days to aggregate")
	// ErrUnordered is returned when a day does not come after its predecessor.
	ErrUnordered = errors.New("days are not in chronological order")
	// ErrDayGap is returned when a calendar day is missing from the input.
	ErrDayGap = errors.New("days are not contiguous")
)

// MonthFunc is called once per completed month with that month's days in
// chronological order. It returns the month's total.
type MonthFunc func(month models.Month, days []models.DateCount) (int, error)

// YearFunc is called once per completed year with that year's month totals in
// chronological order. It returns the year's total.
type YearFunc func(year int, months []models.MonthCount) (int, error)

// Days groups days by calendar month, then the month totals by calendar year,
// invoking onMonth and onYear for each closed bucket. It returns the sum of all
// month totals.
//
// days must be non-empty and contain every calendar day between the first and
// last entry exactly once, in order. The first callback error aborts the fold.
func Days(days []models.DateCount, onMonth MonthFunc, onYear YearFunc) (int, error) {
	if err := ValidateDays(days); err != nil {
		return 0, err
	}

	months, err := foldMonths(days, onMonth)
	if err != nil {
		return 0, err
	}

	if err := foldYears(months, onYear); err != nil {
		return 0, err
	}

	return models.SumMonths(months), nil
}

func foldMonths(days []models.DateCount, onMonth MonthFunc) ([]models.MonthCount, error) {
	current := models.MonthOf(days[0].Date)
	var bucket []models.DateCount
	var months []models.MonthCount

	flush := func() error {
		total, err := onMonth(current, bucket)
		if err != nil {
			return fmt.Errorf("failed to flush month %s: %w", current, err)
		}
		months = append(months, models.MonthCount{Month: current, Count: total})
		return nil
	}

	for _, day := range days {
		if m := models.MonthOf(day.Date); m != current {
			if err := flush(); err != nil {
				return nil, err
			}
			current = m
			bucket = nil
		}
		bucket = append(bucket, day)
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return months, nil
}

func foldYears(months []models.MonthCount, onYear YearFunc) error {
	current := months[0].Month.Year
	var bucket []models.MonthCount

	flush := func() error {
		if _, err := onYear(current, bucket); err != nil {
			return fmt.Errorf("failed to flush year %04d: %w", current, err)
		}
		return nil
	}

	for _, month := range months {
		if month.Month.Year != current {
			if err := flush(); err != nil {
				return err
			}
			current = month.Month.Year
			bucket = nil
		}
		bucket = append(bucket, month)
	}

	return flush()
}

// ValidateDays checks that days is non-empty and steps forward one calendar
// day at a time.
func ValidateDays(days []models.DateCount) error {
	if len(days) == 0 {
		return ErrNoDays
	}

	prev := models.DayOf(days[0].Date)
	for i := 1; i < len(days); i++ {
		day := models.DayOf(days[i].Date)
		if !day.After(prev) {
			return fmt.Errorf("%w: %s follows %s", ErrUnordered,
				day.Format(models.DayLayout), prev.Format(models.DayLayout))
		}
		if want := prev.AddDate(0, 0, 1); !day.Equal(want) {
			return fmt.Errorf("%w: expected %s, got %s", ErrDayGap,
				want.Format(models.DayLayout), day.Format(models.DayLayout))
		}
		prev = day
	}
	return nil
}
