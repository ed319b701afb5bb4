package ranking

import (
	"context"
	"fmt"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed conversion factors between target periods.
var (
	daysPerWeek   = decimal.NewFromInt(7)
	daysPerMonth  = decimal.NewFromInt(30)
	weeksPerMonth = decimal.RequireFromString("4.3")

	defaultMonthlyTarget = decimal.NewFromInt(10000)
)

// historyDays is the look-back used to measure the current pace.
const historyDays = 90

// GoalDisclaimer is returned with every simulation.
const GoalDisclaimer = "Heuristic projection based on the last 90 days of sales. It is not a guarantee."

type GoalSimulation struct {
	TargetAmount       decimal.Decimal `json:"target_amount"`
	TargetPeriod       models.Period   `json:"target_period"`
	DailyTarget        decimal.Decimal `json:"daily_target"`
	WeeklyTarget       decimal.Decimal `json:"weekly_target"`
	MonthlyTarget      decimal.Decimal `json:"monthly_target"`
	SalesNeededPerDay  int64           `json:"sales_needed_per_day"`
	SuccessProbability float64         `json:"success_probability"`
}

type CurrentPerformance struct {
	TotalSales      int64           `json:"total_sales"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AvgSaleAmount   decimal.Decimal `json:"avg_sale_amount"`
	SalesPerDay     decimal.Decimal `json:"sales_per_day"`
	CurrentDailyAvg decimal.Decimal `json:"current_daily_avg"`
}

type GoalProjection struct {
	Simulation  GoalSimulation     `json:"simulation"`
	Current     CurrentPerformance `json:"current_performance"`
	Suggestions []string           `json:"suggestions"`
	Disclaimer  string             `json:"disclaimer"`
}

// SimulateGoal projects the pace a seller needs to hit a target. A non-positive target
// falls back to the seller's monthly target, then to 10000 per month. An empty period
// means month.
func (s *Service) SimulateGoal(ctx context.Context, sellerID uuid.UUID, target decimal.Decimal, period models.Period) (*GoalProjection, error) {
	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = models.PeriodMonth
	}
	if !target.IsPositive() {
		target = seller.SalesTarget.Monthly
		period = models.PeriodMonth
		if !target.IsPositive() {
			target = defaultMonthlyTarget
		}
	}

	var daily, weekly, monthly decimal.Decimal
	switch period {
	case models.PeriodDay:
		daily, weekly, monthly = target, target.Mul(daysPerWeek), target.Mul(daysPerMonth)
	case models.PeriodWeek:
		daily, weekly, monthly = target.Div(daysPerWeek), target, target.Mul(weeksPerMonth)
	case models.PeriodMonth:
		daily, weekly, monthly = target.Div(daysPerMonth), target.Div(weeksPerMonth), target
	default:
		return nil, fmt.Errorf("%w: goals are set per day, week or month", ErrInvalidWindow)
	}

	history := aggregation.TrailingDays(historyDays, s.now())
	row, err := s.agg.Totals(ctx, history.Apply(store.SaleFilter{SellerID: &sellerID}))
	if err != nil {
		return nil, err
	}

	days := decimal.NewFromInt(historyDays)
	avg := decimal.Zero
	if row.Count > 0 {
		avg = row.TotalAmount.Div(decimal.NewFromInt(row.Count))
	}
	pace := row.TotalAmount.Div(days)

	var needed int64
	if avg.IsPositive() {
		needed = daily.Div(avg).Ceil().IntPart()
	}

	probability := Percentage(pace, daily)

	var suggestions []string
	if probability < 70 {
		suggestions = append(suggestions,
			"Increase the number of daily prospecting contacts",
			"Focus on products with a higher average ticket",
			"Improve your lead conversion rate",
		)
	}
	if avg.LessThan(monthly.Div(daysPerMonth)) {
		suggestions = append(suggestions,
			"Work on upselling techniques",
			"Identify customers with higher purchase potential",
		)
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	return &GoalProjection{
		Simulation: GoalSimulation{
			TargetAmount:       target,
			TargetPeriod:       period,
			DailyTarget:        daily.Round(2),
			WeeklyTarget:       weekly.Round(2),
			MonthlyTarget:      monthly.Round(2),
			SalesNeededPerDay:  needed,
			SuccessProbability: probability,
		},
		Current: CurrentPerformance{
			TotalSales:      row.Count,
			TotalAmount:     row.TotalAmount,
			AvgSaleAmount:   avg.Round(2),
			SalesPerDay:     decimal.NewFromInt(row.Count).Div(days).Round(2),
			CurrentDailyAvg: pace.Round(2),
		},
		Suggestions: suggestions,
		Disclaimer:  GoalDisclaimer,
	}, nil
}
