package render

import (
	"time"

	"github.com/j-veylop/comment-archive/internal/config"
	"github.com/j-veylop/comment-archive/internal/models"
)

// IndexMeta is the extra data shown on the index page.
type IndexMeta struct {
	LastUpdated time.Time
	// ActivityDays is how many recent days the activity graph covers.
	// Zero disables the graph.
	ActivityDays int
}

type dayPage struct {
	Date     time.Time
	Prev     time.Time
	Next     time.Time
	Site     config.Site
	Title    string
	Month    models.Month
	Comments []models.Comment
	Count    int
}

type monthPage struct {
	Site  config.Site
	Title string
	Days  []models.DateCount
	Month models.Month
	Total int
}

type yearPage struct {
	Site   config.Site
	Title  string
	Months []models.MonthCount
	Year   int
	Total  int
}

type indexPage struct {
	Site        config.Site
	Title       string
	LastUpdated string
	Activity    string
	Days        []models.DateCount
	Total       int
}

type latestPage struct {
	Site     config.Site
	Title    string
	Comments []models.Comment
	Count    int
}

// RenderDay writes the page for one calendar day and returns the number of
// comments on it.
func (r *Renderer) RenderDay(date time.Time, comments []models.Comment) (int, error) {
	day := models.DayOf(date)
	page := dayPage{
		Site:     r.site,
		Title:    day.Format(models.DayLayout),
		Date:     day,
		Prev:     day.AddDate(0, 0, -1),
		Next:     day.AddDate(0, 0, 1),
		Month:    models.MonthOf(day),
		Comments: comments,
		Count:    len(comments),
	}

	if err := r.write(DayPath(day), dayTemplate, page); err != nil {
		return 0, err
	}
	return page.Count, nil
}

// RenderMonth writes a month page listing its days and returns the month total.
func (r *Renderer) RenderMonth(month models.Month, days []models.DateCount) (int, error) {
	page := monthPage{
		Site:  r.site,
		Title: month.String(),
		Month: month,
		Days:  days,
		Total: models.SumDays(days),
	}

	if err := r.write(MonthPath(month), monthTemplate, page); err != nil {
		return 0, err
	}
	return page.Total, nil
}

// RenderYear writes a year page listing its months and returns the year total.
func (r *Renderer) RenderYear(year int, months []models.MonthCount) (int, error) {
	label := models.YearCount{Year: year}.Label()
	page := yearPage{
		Site:   r.site,
		Title:  label,
		Year:   year,
		Months: months,
		Total:  models.SumMonths(months),
	}

	if err := r.write(YearPath(year), yearTemplate, page); err != nil {
		return 0, err
	}
	return page.Total, nil
}

// RenderIndex writes the site index. days is expected newest first.
func (r *Renderer) RenderIndex(days []models.DateCount, meta IndexMeta) (int, error) {
	page := indexPage{
		Site:        r.site,
		Title:       r.site.Title,
		Days:        days,
		Total:       models.SumDays(days),
		LastUpdated: meta.LastUpdated.UTC().Format(LastUpdatedLayout),
	}
	if meta.ActivityDays > 0 {
		page.Activity = ActivityGraph(days, meta.ActivityDays, 60, 6)
	}

	if err := r.write("/", indexTemplate, page); err != nil {
		return 0, err
	}
	return page.Total, nil
}

// RenderLatest writes the page of most recent comments.
func (r *Renderer) RenderLatest(comments []models.Comment) (int, error) {
	page := latestPage{
		Site:     r.site,
		Title:    "Latest",
		Comments: comments,
		Count:    len(comments),
	}

	if err := r.write(LatestPath, latestTemplate, page); err != nil {
		return 0, err
	}
	return page.Count, nil
}
