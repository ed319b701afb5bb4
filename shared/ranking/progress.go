package ranking

import (
	"context"
	"fmt"
	"time"

	"sales-arena/shared/achievements"
	"sales-arena/shared/aggregation"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Progress is a seller's standing against the target of one window.
type Progress struct {
	Period             models.Period      `json:"period"`
	Window             aggregation.Window `json:"window"`
	Stats              store.AggregateRow `json:"stats"`
	Target             decimal.Decimal    `json:"target"`
	Actual             decimal.Decimal    `json:"actual"`
	ProgressPercentage float64            `json:"progress_percentage"`
}

// Percentage returns min(100, 100*actual/target) rounded to two decimals, and 0 when
// the target is not positive.
func Percentage(actual, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	p := actual.Mul(hundred).Div(target)
	if p.GreaterThan(hundred) {
		p = hundred
	}
	return p.Round(2).InexactFloat64()
}

// SellerProgress compares the seller's non-cancelled sales in the current day, week or
// month against the matching target.
func (s *Service) SellerProgress(ctx context.Context, sellerID uuid.UUID, period models.Period) (*Progress, error) {
	switch period {
	case models.PeriodDay, models.PeriodWeek, models.PeriodMonth:
	default:
		return nil, fmt.Errorf("%w: progress is tracked per day, week or month", ErrInvalidWindow)
	}

	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	w, err := aggregation.PeriodWindow(period, s.now(), s.loc())
	if err != nil {
		return nil, err
	}
	row, err := s.agg.Totals(ctx, w.Apply(store.SaleFilter{SellerID: &sellerID}))
	if err != nil {
		return nil, err
	}

	target := seller.SalesTarget.For(period)
	return &Progress{
		Period:             period,
		Window:             w,
		Stats:              row,
		Target:             target,
		Actual:             row.TotalAmount,
		ProgressPercentage: Percentage(row.TotalAmount, target),
	}, nil
}

// streakDays bounds the history inspected for the daily goal streak.
const streakDays = 30

// DailyGoal reports whether a seller met the daily target today and for how many
// consecutive days, ending today.
type DailyGoal struct {
	Target decimal.Decimal `json:"target"`
	Today  decimal.Decimal `json:"today"`
	Met    bool            `json:"met"`
	Streak int             `json:"streak_days"`
}

// Context converts the status into the facts consumed by the achievement evaluator.
func (d DailyGoal) Context() achievements.Context {
	return achievements.Context{DailyGoalMet: d.Met, GoalStreakDays: d.Streak}
}

// DailyGoalStatus computes the daily goal facts of a seller. A zero daily target is
// never met.
func (s *Service) DailyGoalStatus(ctx context.Context, sellerID uuid.UUID) (DailyGoal, error) {
	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return DailyGoal{}, err
	}
	status := DailyGoal{Target: seller.SalesTarget.Daily, Today: decimal.Zero}

	now := s.now().In(s.loc())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc())
	start, end := today.AddDate(0, 0, -(streakDays - 1)), today.AddDate(0, 0, 1)

	series, err := s.agg.Series(ctx,
		aggregation.Window{Start: &start, End: &end}.Apply(store.SaleFilter{SellerID: &sellerID}),
		store.GroupDay,
		aggregation.DayKeys(start, today, s.loc()),
	)
	if err != nil {
		return DailyGoal{}, err
	}
	if len(series) > 0 {
		status.Today = series[len(series)-1].TotalAmount
	}

	if !status.Target.IsPositive() {
		return status, nil
	}
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].TotalAmount.LessThan(status.Target) {
			break
		}
		status.Streak++
	}
	status.Met = status.Streak > 0
	return status, nil
}
