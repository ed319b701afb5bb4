package aggregation

import (
	"errors"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Window is a half-open time range [Start, End). A nil bound is unbounded.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Apply restricts a sale filter to the window.
func (w Window) Apply(f store.SaleFilter) store.SaleFilter {
	f.Start = w.Start
	f.End = w.End
	return f
}

// Key identifies the window in cache keys.
func (w Window) Key() string {
	if w.Start == nil {
		return "all"
	}
	return w.Start.UTC().Format(time.RFC3339)
}

func bounded(start, end time.Time) Window {
	return Window{Start: &start, End: &end}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// PeriodWindow returns the calendar window of a period containing now, in loc:
// the current day, the Sunday-anchored week, the calendar month or the calendar year.
// PeriodAllTime is unbounded.
func PeriodWindow(p models.Period, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := midnight(now, loc)

	switch p {
	case models.PeriodDay:
		return bounded(today, today.AddDate(0, 0, 1)), nil
	case models.PeriodWeek:
		start := today.AddDate(0, 0, -int(today.Weekday()))
		return bounded(start, start.AddDate(0, 0, 7)), nil
	case models.PeriodMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return bounded(start, start.AddDate(0, 1, 0)), nil
	case models.PeriodYear:
		start := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, loc)
		return bounded(start, start.AddDate(1, 0, 0)), nil
	case models.PeriodAllTime:
		return Window{}, nil
	}
	return Window{}, ErrInvalidPeriod
}

// PreviousMonthWindow returns the last complete calendar month before now.
func PreviousMonthWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	return bounded(end.AddDate(0, -1, 0), end)
}

// TrailingDays returns the window covering the last n days up to now.
func TrailingDays(n int, now time.Time) Window {
	start := now.AddDate(0, 0, -n)
	return Window{Start: &start}
}

// ChartWindow returns the trailing window used by sales charts and its grouping:
// week is the last 7 days by day, month the last 30 days by day, and year the last
// twelve months by month starting on the first day of the same month a year ago.
// Charts use trailing windows while PeriodWindow uses calendar ones.
func ChartWindow(p models.Period, now time.Time, loc *time.Location) (Window, store.GroupBy, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch p {
	case models.PeriodWeek:
		return TrailingDays(7, now), store.GroupDay, nil
	case models.PeriodMonth:
		return TrailingDays(30, now), store.GroupDay, nil
	case models.PeriodYear:
		local := now.In(loc)
		start := time.Date(local.Year()-1, local.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: &start}, store.GroupMonth, nil
	}
	return Window{}, store.GroupNone, ErrInvalidPeriod
}
