package ranking

import (
	"context"
	"testing"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.seller(t, "A", models.SalesTarget{})
	b := f.seller(t, "B", models.SalesTarget{})
	inactive := false
	_, err := f.st.UpdateSeller(ctx, b.ID, store.SellerUpdate{IsActive: &inactive})
	require.NoError(t, err)

	f.sale(t, a.ID, "100", now, models.SalePending, "x")
	// Monday of the same week.
	f.sale(t, a.ID, "200", now.AddDate(0, 0, -2), models.SalePending, "x")
	// Earlier in the month, before the week started.
	f.sale(t, b.ID, "250", now.AddDate(0, 0, -10), models.SalePending, "x")

	require.NoError(t, f.st.CreateAchievement(ctx, &models.Achievement{SellerID: a.ID, Type: models.AchievementFirstSale, Level: 1, DateEarned: now}))
	require.NoError(t, f.st.CreateAchievement(ctx, &models.Achievement{SellerID: b.ID, Type: models.AchievementFirstSale, Level: 1, DateEarned: now.AddDate(0, -2, 0)}))

	o, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(550).Equal(o.Month.TotalAmount))
	assert.EqualValues(t, 3, o.Month.TotalSales)
	assert.True(t, decimal.NewFromInt(300).Equal(o.Week.TotalAmount))
	assert.True(t, decimal.NewFromInt(100).Equal(o.Day.TotalAmount))
	assert.Equal(t, UserCounts{Active: 1, Total: 2}, o.Users)
	assert.EqualValues(t, 1, o.Achievements)
	require.Len(t, o.TopSellers, 2)
	assert.Equal(t, a.ID, o.TopSellers[0].SellerID)
}

func TestSalesChart(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, a.ID, "100", now, models.SalePending, "x")
	f.sale(t, a.ID, "50", now, models.SalePending, "x")
	f.sale(t, a.ID, "70", now.AddDate(0, 0, -3), models.SalePending, "x")

	week, err := f.svc.SalesChart(context.Background(), models.PeriodWeek, "", nil)
	require.NoError(t, err)
	require.Len(t, week.Points, 8)
	assert.Equal(t, "2024-05-08", week.Points[0].Key)
	last := week.Points[len(week.Points)-1]
	assert.Equal(t, "2024-05-15", last.Key)
	assert.True(t, decimal.NewFromInt(150).Equal(last.Value))

	count, err := f.svc.SalesChart(context.Background(), models.PeriodWeek, ChartCount, &a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(count.Points[len(count.Points)-1].Value))

	year, err := f.svc.SalesChart(context.Background(), models.PeriodYear, ChartAmount, nil)
	require.NoError(t, err)
	require.Len(t, year.Points, 13)
	assert.Equal(t, "2023-05", year.Points[0].Key)
	assert.True(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC).Equal(year.Start))
	assert.True(t, decimal.NewFromInt(220).Equal(year.Points[12].Value))

	_, err = f.svc.SalesChart(context.Background(), models.PeriodDay, ChartAmount, nil)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = f.svc.SalesChart(context.Background(), models.PeriodWeek, "median", nil)
	assert.Error(t, err)
}

func TestSalesByCategory(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, a.ID, "100", now, models.SalePending, "books")
	f.sale(t, a.ID, "300", now, models.SalePending, "games")
	f.sale(t, a.ID, "50", now, models.SalePending, "books")
	f.sale(t, a.ID, "999", now.AddDate(0, -2, 0), models.SalePending, "music")

	month, err := f.svc.SalesByCategory(context.Background(), models.PeriodMonth)
	require.NoError(t, err)
	require.Len(t, month, 2)
	assert.Equal(t, "games", month[0].Category)
	assert.Equal(t, "books", month[1].Category)
	assert.EqualValues(t, 2, month[1].TotalSales)

	year, err := f.svc.SalesByCategory(context.Background(), models.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, "music", year[0].Category)
}

func TestPerformance(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seller(t, "A", models.SalesTarget{Weekly: decimal.NewFromInt(400), Monthly: decimal.NewFromInt(1000)})
	b := f.seller(t, "B", models.SalesTarget{})
	f.sale(t, a.ID, "500", now, models.SalePending, "x")
	f.sale(t, b.ID, "200", now, models.SalePending, "x")

	month, err := f.svc.Performance(context.Background(), models.PeriodMonth, 0)
	require.NoError(t, err)
	require.Len(t, month, 2)
	assert.Equal(t, a.ID, month[0].SellerID)
	assert.Equal(t, 1, month[0].Rank)
	assert.Equal(t, 50.0, month[0].ProgressPercentage)
	assert.Zero(t, month[1].ProgressPercentage)

	week, err := f.svc.Performance(context.Background(), models.PeriodWeek, 1)
	require.NoError(t, err)
	require.Len(t, week, 1)
	assert.Equal(t, 100.0, week[0].ProgressPercentage)
}

func TestSellerStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, a.ID, "100", now, models.SalePending, "x")
	f.sale(t, a.ID, "40", now.AddDate(0, -2, 0), models.SalePending, "x")
	f.sale(t, a.ID, "999", now.AddDate(0, -8, 0), models.SalePending, "x")
	require.NoError(t, f.st.CreateAchievement(ctx, &models.Achievement{SellerID: a.ID, Type: models.AchievementFirstSale, Level: 1, DateEarned: now}))

	stats, err := f.svc.SellerStats(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.AllTime.Count)
	assert.EqualValues(t, 1, stats.AchievementCount)
	require.Len(t, stats.Monthly, 6)
	assert.Equal(t, "2023-12", stats.Monthly[0].Key)
	assert.Equal(t, "2024-05", stats.Monthly[5].Key)
	assert.True(t, decimal.NewFromInt(40).Equal(stats.Monthly[3].TotalAmount))

	totals, err := f.svc.SellerTotals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, totals[a.ID].Count)
}
