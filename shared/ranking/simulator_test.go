package ranking

import (
	"context"
	"testing"

	"sales-arena/shared/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateGoalMonthlyTarget(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{})
	// 4500 over the last 90 days: a pace of 50 per day with an average sale of 450.
	for i := 0; i < 10; i++ {
		f.sale(t, s.ID, "450", now.AddDate(0, 0, -i*5), models.SaleConfirmed, "x")
	}
	f.sale(t, s.ID, "1000", now.AddDate(0, 0, -120), models.SaleConfirmed, "x")

	p, err := f.svc.SimulateGoal(context.Background(), s.ID, decimal.NewFromInt(9000), models.PeriodMonth)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(300).Equal(p.Simulation.DailyTarget))
	assert.True(t, decimal.RequireFromString("2093.02").Equal(p.Simulation.WeeklyTarget))
	assert.True(t, decimal.NewFromInt(9000).Equal(p.Simulation.MonthlyTarget))
	assert.Equal(t, 16.67, p.Simulation.SuccessProbability)
	assert.EqualValues(t, 1, p.Simulation.SalesNeededPerDay)

	assert.EqualValues(t, 10, p.Current.TotalSales)
	assert.True(t, decimal.NewFromInt(4500).Equal(p.Current.TotalAmount))
	assert.True(t, decimal.NewFromInt(450).Equal(p.Current.AvgSaleAmount))
	assert.True(t, decimal.NewFromInt(50).Equal(p.Current.CurrentDailyAvg))
	assert.True(t, decimal.RequireFromString("0.11").Equal(p.Current.SalesPerDay))

	// Probability below 70 adds three suggestions; the average sale is above the daily target share.
	assert.Len(t, p.Suggestions, 3)
	assert.Equal(t, GoalDisclaimer, p.Disclaimer)
}

func TestSimulateGoalWithoutHistory(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{})

	p, err := f.svc.SimulateGoal(context.Background(), s.ID, decimal.NewFromInt(70), models.PeriodWeek)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(p.Simulation.DailyTarget))
	assert.True(t, decimal.NewFromInt(301).Equal(p.Simulation.MonthlyTarget))
	assert.Zero(t, p.Simulation.SalesNeededPerDay)
	assert.Zero(t, p.Simulation.SuccessProbability)
	assert.Len(t, p.Suggestions, 5)
}

func TestSimulateGoalDefaultsTarget(t *testing.T) {
	f := newFixture(t, nil)
	withTarget := f.seller(t, "A", models.SalesTarget{Monthly: decimal.NewFromInt(6000)})
	without := f.seller(t, "B", models.SalesTarget{})

	p, err := f.svc.SimulateGoal(context.Background(), withTarget.ID, decimal.Zero, models.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodMonth, p.Simulation.TargetPeriod)
	assert.True(t, decimal.NewFromInt(200).Equal(p.Simulation.DailyTarget))

	p, err = f.svc.SimulateGoal(context.Background(), without.ID, decimal.Zero, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(p.Simulation.TargetAmount))
}

func TestSimulateGoalDailyTarget(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, s.ID, "9000", now.AddDate(0, 0, -1), models.SalePending, "x")

	p, err := f.svc.SimulateGoal(context.Background(), s.ID, decimal.NewFromInt(100), models.PeriodDay)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700).Equal(p.Simulation.WeeklyTarget))
	assert.True(t, decimal.NewFromInt(3000).Equal(p.Simulation.MonthlyTarget))
	assert.Equal(t, 100.0, p.Simulation.SuccessProbability)
	assert.EqualValues(t, 1, p.Simulation.SalesNeededPerDay)
	assert.Empty(t, p.Suggestions)
}

func TestSimulateGoalErrors(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{})

	_, err := f.svc.SimulateGoal(context.Background(), s.ID, decimal.NewFromInt(100), models.PeriodYear)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = f.svc.SimulateGoal(context.Background(), uuid.New(), decimal.NewFromInt(100), models.PeriodDay)
	assert.Error(t, err)
}
