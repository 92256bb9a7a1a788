package aggregate

import (
	"time"

	"github.com/j-veylop/comment-archive/internal/models"
)

// DateRange returns every calendar day from start through end inclusive, as
// midnight UTC. It returns nil when end is before start.
func DateRange(start, end time.Time) []time.Time {
	start, end = models.DayOf(start), models.DayOf(end)
	if end.Before(start) {
		return nil
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MonthRange returns every calendar month touched by [start, end].
func MonthRange(start, end time.Time) []models.Month {
	last := models.MonthOf(end)
	var months []models.Month
	for m := models.MonthOf(start); !m.Start().After(last.Start()); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// YearRange returns every calendar year touched by [start, end].
func YearRange(start, end time.Time) []int {
	var years []int
	for y := start.UTC().Year(); y <= end.UTC().Year(); y++ {
		years = append(years, y)
	}
	return years
}

// Summary holds per-period totals computed without rendering anything.
type Summary struct {
	Months []models.MonthCount
	Years  []models.YearCount
	Total  int
}

// Summarize runs Days with counting callbacks.
func Summarize(days []models.DateCount) (*Summary, error) {
	s := &Summary{}

	total, err := Days(days,
		func(month models.Month, bucket []models.DateCount) (int, error) {
			count := models.SumDays(bucket)
			s.Months = append(s.Months, models.MonthCount{Month: month, Count: count})
			return count, nil
		},
		func(year int, bucket []models.MonthCount) (int, error) {
			count := models.SumMonths(bucket)
			s.Years = append(s.Years, models.YearCount{Year: year, Count: count})
			return count, nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.Total = total
	return s, nil
}

// FillDays expands sparse per-day counts into a contiguous list covering
// [start, end], with zero counts for missing days.
func FillDays(sparse []models.DateCount, start, end time.Time) []models.DateCount {
	counts := make(map[time.Time]int, len(sparse))
	for _, d := range sparse {
		counts[models.DayOf(d.Date)] += d.Count
	}

	dates := DateRange(start, end)
	days := make([]models.DateCount, len(dates))
	for i, date := range dates {
		days[i] = models.DateCount{Date: date, Count: counts[date]}
	}
	return days
}
