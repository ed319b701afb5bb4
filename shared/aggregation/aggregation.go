// Package aggregation computes grouped sums, counts and averages over sales within
// time windows.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/shopspring/decimal"
)

// Metric names an aggregated value.
type Metric string

const (
	MetricSum        Metric = "sum"
	MetricCount      Metric = "count"
	MetricAvg        Metric = "avg"
	MetricCommission Metric = "commission"
)

// AllMetrics is used when a query names none.
var AllMetrics = []Metric{MetricSum, MetricCount, MetricAvg, MetricCommission}

var ErrInvalidQuery = errors.New("invalid aggregation query")

// Query describes one aggregation. Cancelled sales are excluded unless IncludeCancelled is set.
type Query struct {
	Filter           store.SaleFilter
	GroupBy          store.GroupBy
	Metrics          []Metric
	Limit            int
	IncludeCancelled bool
}

// Result is a grouped row holding only the requested metrics.
type Result struct {
	Key        string           `json:"key,omitempty"`
	Sum        *decimal.Decimal `json:"sum,omitempty"`
	Count      *int64           `json:"count,omitempty"`
	Avg        *decimal.Decimal `json:"avg,omitempty"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
}

type Engine struct {
	store store.Store
	loc   *time.Location
}

// New returns an engine whose calendar keys are computed in loc.
func New(st store.Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: st, loc: loc}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func validGroupBy(g store.GroupBy) bool {
	switch g {
	case store.GroupNone, store.GroupSeller, store.GroupCategory, store.GroupDay, store.GroupMonth:
		return true
	}
	return false
}

func validMetric(m Metric) bool {
	switch m {
	case MetricSum, MetricCount, MetricAvg, MetricCommission:
		return true
	}
	return false
}

// Rows runs the query and returns complete rows, ordered: date groupings ascending by
// key, other groupings by total amount descending with ties broken by key ascending.
// Groups without sales are omitted.
func (e *Engine) Rows(ctx context.Context, q Query) ([]store.AggregateRow, error) {
	if !validGroupBy(q.GroupBy) {
		return nil, fmt.Errorf("%w: unknown grouping %q", ErrInvalidQuery, q.GroupBy)
	}

	filter := q.Filter
	if !q.IncludeCancelled {
		filter.ExcludeStatuses = append(append([]models.SaleStatus(nil), filter.ExcludeStatuses...), models.SaleCancelled)
	}

	rows, err := e.store.Aggregate(ctx, filter, q.GroupBy, e.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	out := rows[:0]
	for _, r := range rows {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	sortRows(out, q.GroupBy)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortRows(rows []store.AggregateRow, groupBy store.GroupBy) {
	switch groupBy {
	case store.GroupDay, store.GroupMonth:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			if c := rows[i].TotalAmount.Cmp(rows[j].TotalAmount); c != 0 {
				return c > 0
			}
			return rows[i].Key < rows[j].Key
		})
	}
}

// Aggregate runs the query and projects each row onto the requested metrics.
func (e *Engine) Aggregate(ctx context.Context, q Query) ([]Result, error) {
	metrics := q.Metrics
	if len(metrics) == 0 {
		metrics = AllMetrics
	}
	for _, m := range metrics {
		if !validMetric(m) {
			return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidQuery, m)
		}
	}

	rows, err := e.Rows(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		res := Result{Key: r.Key}
		for _, m := range metrics {
			switch m {
			case MetricSum:
				res.Sum = &r.TotalAmount
			case MetricCount:
				res.Count = &r.Count
			case MetricAvg:
				res.Avg = &r.AvgAmount
			case MetricCommission:
				res.Commission = &r.TotalCommission
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Totals returns the global figures of the filtered, non-cancelled sales. It is the zero
// row when nothing matches.
func (e *Engine) Totals(ctx context.Context, filter store.SaleFilter) (store.AggregateRow, error) {
	rows, err := e.Rows(ctx, Query{Filter: filter})
	if err != nil {
		return store.AggregateRow{}, err
	}
	if len(rows) == 0 {
		return store.AggregateRow{}, nil
	}
	return rows[0], nil
}

// Series returns one row per key in the given order. Keys without sales get a zero row.
func (e *Engine) Series(ctx context.Context, filter store.SaleFilter, groupBy store.GroupBy, keys []string) ([]store.AggregateRow, error) {
	rows, err := e.Rows(ctx, Query{Filter: filter, GroupBy: groupBy})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]store.AggregateRow, len(rows))
	for _, r := range rows {
		byKey[r.Key] = r
	}
	out := make([]store.AggregateRow, 0, len(keys))
	for _, k := range keys {
		r, ok := byKey[k]
		if !ok {
			r = store.AggregateRow{Key: k}
		}
		out = append(out, r)
	}
	return out, nil
}

// DayKeys lists the day keys from start to end inclusive, in loc.
func DayKeys(start, end time.Time, loc *time.Location) []string {
	start, end = midnight(start, loc), midnight(end, loc)
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(store.DayKeyLayout))
	}
	return keys
}

// MonthKeys lists the month keys from start to end inclusive, in loc.
func MonthKeys(start, end time.Time, loc *time.Location) []string {
	s, e := start.In(loc), end.In(loc)
	first := time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, loc)
	last := time.Date(e.Year(), e.Month(), 1, 0, 0, 0, 0, loc)
	var keys []string
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		keys = append(keys, m.Format(store.MonthKeyLayout))
	}
	return keys
}
