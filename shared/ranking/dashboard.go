package ranking

import (
	"context"
	"fmt"
	"time"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PeriodTotals struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalSales    int64           `json:"total_sales"`
	AvgSaleAmount decimal.Decimal `json:"avg_sale_amount"`
}

type UserCounts struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
}

type Overview struct {
	Month        PeriodTotals              `json:"month"`
	Week         PeriodTotals              `json:"week"`
	Day          PeriodTotals              `json:"day"`
	Users        UserCounts                `json:"users"`
	Achievements int64                     `json:"achievements_this_month"`
	TopSellers   []models.LeaderboardEntry `json:"top_sellers"`
}

func totalsOf(row store.AggregateRow) PeriodTotals {
	return PeriodTotals{TotalAmount: row.TotalAmount, TotalSales: row.Count, AvgSaleAmount: row.AvgAmount}
}

func (s *Service) periodTotals(ctx context.Context, period models.Period, filter store.SaleFilter) (PeriodTotals, aggregation.Window, error) {
	w, err := aggregation.PeriodWindow(period, s.now(), s.loc())
	if err != nil {
		return PeriodTotals{}, w, err
	}
	row, err := s.agg.Totals(ctx, w.Apply(filter))
	if err != nil {
		return PeriodTotals{}, w, err
	}
	return totalsOf(row), w, nil
}

// Overview returns the company-wide figures of the current day, week and month.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var (
		o   Overview
		err error
		mw  aggregation.Window
	)
	if o.Month, mw, err = s.periodTotals(ctx, models.PeriodMonth, store.SaleFilter{}); err != nil {
		return nil, err
	}
	if o.Week, _, err = s.periodTotals(ctx, models.PeriodWeek, store.SaleFilter{}); err != nil {
		return nil, err
	}
	if o.Day, _, err = s.periodTotals(ctx, models.PeriodDay, store.SaleFilter{}); err != nil {
		return nil, err
	}

	active := true
	if _, o.Users.Active, err = s.store.ListSellers(ctx, store.SellerFilter{IsActive: &active}, store.Page{Limit: 1}); err != nil {
		return nil, err
	}
	if _, o.Users.Total, err = s.store.ListSellers(ctx, store.SellerFilter{}, store.Page{Limit: 1}); err != nil {
		return nil, err
	}
	if o.Achievements, err = s.store.CountAchievements(ctx, store.AchievementFilter{EarnedSince: mw.Start}); err != nil {
		return nil, err
	}
	if o.TopSellers, err = s.Rank(ctx, models.PeriodMonth, 5); err != nil {
		return nil, err
	}
	return &o, nil
}

// Chart value types.
const (
	ChartAmount = "amount"
	ChartCount  = "count"
)

type ChartPoint struct {
	Key   string          `json:"key"`
	Value decimal.Decimal `json:"value"`
}

type Chart struct {
	Period models.Period `json:"period"`
	Type   string        `json:"type"`
	Start  time.Time     `json:"start"`
	Points []ChartPoint  `json:"points"`
}

// SalesChart returns a zero-filled series over the trailing window of the period.
// Year charts cover the last twelve months, unlike the calendar year of PeriodWindow.
func (s *Service) SalesChart(ctx context.Context, period models.Period, valueType string, sellerID *uuid.UUID) (*Chart, error) {
	if valueType == "" {
		valueType = ChartAmount
	}
	if valueType != ChartAmount && valueType != ChartCount {
		return nil, fmt.Errorf("%w: unknown chart type %q", aggregation.ErrInvalidQuery, valueType)
	}
	w, groupBy, err := aggregation.ChartWindow(period, s.now(), s.loc())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, period)
	}

	var keys []string
	if groupBy == store.GroupMonth {
		keys = aggregation.MonthKeys(*w.Start, s.now(), s.loc())
	} else {
		keys = aggregation.DayKeys(*w.Start, s.now(), s.loc())
	}
	series, err := s.agg.Series(ctx, w.Apply(store.SaleFilter{SellerID: sellerID}), groupBy, keys)
	if err != nil {
		return nil, err
	}

	chart := &Chart{Period: period, Type: valueType, Start: *w.Start, Points: make([]ChartPoint, 0, len(series))}
	for _, r := range series {
		v := r.TotalAmount
		if valueType == ChartCount {
			v = decimal.NewFromInt(r.Count)
		}
		chart.Points = append(chart.Points, ChartPoint{Key: r.Key, Value: v})
	}
	return chart, nil
}

// dashboardWindow is the window of category and performance reports: the last 7 days
// for week, the calendar month or year otherwise.
func (s *Service) dashboardWindow(period models.Period) (aggregation.Window, error) {
	switch period {
	case models.PeriodWeek:
		return aggregation.TrailingDays(7, s.now()), nil
	case models.PeriodMonth, models.PeriodYear:
		return aggregation.PeriodWindow(period, s.now(), s.loc())
	}
	return aggregation.Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, period)
}

const categoryLimit = 10

type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalSales  int64           `json:"total_sales"`
	AvgAmount   decimal.Decimal `json:"avg_amount"`
}

// SalesByCategory returns the ten best selling product categories.
func (s *Service) SalesByCategory(ctx context.Context, period models.Period) ([]CategoryTotal, error) {
	w, err := s.dashboardWindow(period)
	if err != nil {
		return nil, err
	}
	rows, err := s.agg.Rows(ctx, aggregation.Query{
		Filter:  w.Apply(store.SaleFilter{}),
		GroupBy: store.GroupCategory,
		Limit:   categoryLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]CategoryTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategoryTotal{Category: r.Key, TotalAmount: r.TotalAmount, TotalSales: r.Count, AvgAmount: r.AvgAmount})
	}
	return out, nil
}

type PerformanceEntry struct {
	models.LeaderboardEntry
	Target             decimal.Decimal `json:"target"`
	ProgressPercentage float64         `json:"progress_percentage"`
}

// Performance ranks sellers over the dashboard window of the period and adds their
// progress against the matching target. Year has no target and reports 0%.
func (s *Service) Performance(ctx context.Context, period models.Period, limit int) ([]PerformanceEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	w, err := s.dashboardWindow(period)
	if err != nil {
		return nil, err
	}
	board, err := s.leaderboard(ctx, w, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(board))
	for _, e := range board {
		ids = append(ids, e.SellerID)
	}
	targets := map[uuid.UUID]models.SalesTarget{}
	if len(ids) > 0 {
		sellers, _, err := s.store.ListSellers(ctx, store.SellerFilter{IDs: ids}, store.Page{})
		if err != nil {
			return nil, err
		}
		for _, seller := range sellers {
			targets[seller.ID] = seller.SalesTarget
		}
	}

	out := make([]PerformanceEntry, 0, len(board))
	for _, e := range board {
		target := targets[e.SellerID].For(period)
		out = append(out, PerformanceEntry{
			LeaderboardEntry:   e,
			Target:             target,
			ProgressPercentage: Percentage(e.TotalAmount, target),
		})
	}
	return out, nil
}

// monthsOfHistory is the length of the monthly series in seller statistics.
const monthsOfHistory = 6

type SellerStats struct {
	Seller           *models.Seller       `json:"seller"`
	AllTime          store.AggregateRow   `json:"all_time"`
	AchievementCount int64                `json:"achievement_count"`
	Monthly          []store.AggregateRow `json:"monthly"`
}

// SellerStats returns a seller's all-time totals and the series of the last six months,
// current month included.
func (s *Service) SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error) {
	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	filter := store.SaleFilter{SellerID: &sellerID}

	allTime, err := s.agg.Totals(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountAchievements(ctx, store.AchievementFilter{SellerID: &sellerID})
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc())
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc()).AddDate(0, -(monthsOfHistory - 1), 0)
	monthly, err := s.agg.Series(ctx,
		aggregation.Window{Start: &start}.Apply(filter),
		store.GroupMonth,
		aggregation.MonthKeys(start, now, s.loc()),
	)
	if err != nil {
		return nil, err
	}

	return &SellerStats{Seller: seller, AllTime: allTime, AchievementCount: count, Monthly: monthly}, nil
}

// SellerTotals returns the all-time totals of every seller that sold, keyed by seller id.
func (s *Service) SellerTotals(ctx context.Context) (map[uuid.UUID]store.AggregateRow, error) {
	rows, err := s.agg.Rows(ctx, aggregation.Query{GroupBy: store.GroupSeller})
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]store.AggregateRow, len(rows))
	for _, r := range rows {
		if id, err := uuid.Parse(r.Key); err == nil {
			out[id] = r
		}
	}
	return out, nil
}
