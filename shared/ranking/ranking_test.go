package ranking

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/store/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Wednesday afternoon.
var now = time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC)

type memCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string][]models.LeaderboardEntry
	err     error
}

func cacheKey(gen int64, key string) string {
	return strconv.FormatInt(gen, 10) + ":" + key
}

func (c *memCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, c.err
}

func (c *memCache) Get(_ context.Context, gen int64, key string) ([]models.LeaderboardEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	e, ok := c.entries[cacheKey(gen, key)]
	return e, ok, nil
}

func (c *memCache) Set(_ context.Context, gen int64, key string, entries []models.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]models.LeaderboardEntry{}
	}
	c.entries[cacheKey(gen, key)] = entries
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = nil
	return nil
}

// interleavedStore runs hook once, right after the first aggregation query.
type interleavedStore struct {
	*memstore.Store
	once sync.Once
	hook func()
}

func (s *interleavedStore) Aggregate(ctx context.Context, filter store.SaleFilter, groupBy store.GroupBy, loc *time.Location) ([]store.AggregateRow, error) {
	rows, err := s.Store.Aggregate(ctx, filter, groupBy, loc)
	s.once.Do(s.hook)
	return rows, err
}

type fixture struct {
	st  *memstore.Store
	svc *Service
}

func newFixture(t *testing.T, cache Cache) *fixture {
	t.Helper()
	st := memstore.New()
	return &fixture{
		st: st,
		svc: New(Config{
			Store:       st,
			Aggregation: aggregation.New(st, time.UTC),
			Cache:       cache,
			Logger:      zaptest.NewLogger(t),
			Now:         func() time.Time { return now },
		}),
	}
}

func (f *fixture) seller(t *testing.T, name string, target models.SalesTarget) *models.Seller {
	t.Helper()
	s := &models.Seller{Name: name, Email: uuid.NewString() + "@example.com", Role: models.RoleCollaborator, IsActive: true, SalesTarget: target}
	require.NoError(t, f.st.CreateSeller(context.Background(), s))
	return s
}

func (f *fixture) sale(t *testing.T, sellerID uuid.UUID, amount string, at time.Time, status models.SaleStatus, category string) {
	t.Helper()
	a := decimal.RequireFromString(amount)
	sale := &models.Sale{
		SellerID:   sellerID,
		Amount:     a,
		Status:     status,
		SaleDate:   at,
		Product:    models.Product{Name: "Item", Category: category},
		Commission: models.Commission{Rate: decimal.NewFromInt(5), Amount: a.Mul(decimal.NewFromInt(5)).Div(decimal.NewFromInt(100))},
	}
	require.NoError(t, f.st.CreateSale(context.Background(), sale))
}

func TestRankEmptyWindow(t *testing.T) {
	f := newFixture(t, nil)
	entries, err := f.svc.Rank(context.Background(), models.PeriodMonth, 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRankOrdersAndLimits(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seller(t, "A", models.SalesTarget{})
	b := f.seller(t, "B", models.SalesTarget{})
	c := f.seller(t, "C", models.SalesTarget{})

	f.sale(t, a.ID, "100", now, models.SaleConfirmed, "x")
	f.sale(t, b.ID, "500", now, models.SalePending, "x")
	f.sale(t, c.ID, "300", now, models.SalePending, "x")
	f.sale(t, a.ID, "9999", now, models.SaleCancelled, "x")
	// Last month does not count for the current month.
	f.sale(t, a.ID, "9999", now.AddDate(0, -1, 0), models.SaleConfirmed, "x")

	entries, err := f.svc.Rank(context.Background(), models.PeriodMonth, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].SellerID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "B", entries[0].Name)
	assert.Equal(t, c.ID, entries[1].SellerID)
	assert.Equal(t, 2, entries[1].Rank)

	all, err := f.svc.Rank(context.Background(), models.PeriodAllTime, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].SellerID)
	assert.True(t, decimal.NewFromInt(10099).Equal(all[0].TotalAmount))
	assert.EqualValues(t, 2, all[0].TotalSales)
}

func TestRankInvalidPeriod(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Rank(context.Background(), "fortnight", 10)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRankUsesCache(t *testing.T) {
	cache := &memCache{}
	f := newFixture(t, cache)
	a := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, a.ID, "100", now, models.SalePending, "x")

	first, err := f.svc.Rank(context.Background(), models.PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	b := f.seller(t, "B", models.SalesTarget{})
	f.sale(t, b.ID, "900", now, models.SalePending, "x")

	cached, err := f.svc.Rank(context.Background(), models.PeriodWeek, 10)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	require.NoError(t, f.svc.Invalidate(context.Background()))
	fresh, err := f.svc.Rank(context.Background(), models.PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, b.ID, fresh[0].SellerID)
}

func TestRankDoesNotCacheLeaderboardInvalidatedWhileComputing(t *testing.T) {
	ctx := context.Background()
	cache := &memCache{}
	st := &interleavedStore{Store: memstore.New()}
	svc := New(Config{
		Store:       st,
		Aggregation: aggregation.New(st, time.UTC),
		Cache:       cache,
		Logger:      zaptest.NewLogger(t),
		Now:         func() time.Time { return now },
	})
	f := &fixture{st: st.Store, svc: svc}
	ana := f.seller(t, "Ana", models.SalesTarget{})
	bob := f.seller(t, "Bob", models.SalesTarget{})
	f.sale(t, ana.ID, "100", now, models.SalePending, "x")

	st.hook = func() {
		f.sale(t, bob.ID, "500", now, models.SalePending, "x")
		require.NoError(t, svc.Invalidate(ctx))
	}

	first, err := svc.Rank(ctx, models.PeriodMonth, 10)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	next, err := svc.Rank(ctx, models.PeriodMonth, 10)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, bob.ID, next[0].SellerID)
}

func TestRankFallsBackWhenCacheFails(t *testing.T) {
	cache := &memCache{err: errors.New("connection refused")}
	f := newFixture(t, cache)
	a := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, a.ID, "100", now, models.SalePending, "x")

	entries, err := f.svc.Rank(context.Background(), models.PeriodDay, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPercentage(t *testing.T) {
	assert.Zero(t, Percentage(decimal.NewFromInt(500), decimal.Zero))
	assert.Equal(t, 100.0, Percentage(decimal.NewFromInt(500), decimal.NewFromInt(100)))
	assert.Equal(t, 33.33, Percentage(decimal.NewFromInt(1), decimal.NewFromInt(3)))
}

func TestSellerProgress(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{Daily: decimal.NewFromInt(200), Monthly: decimal.NewFromInt(1000)})
	f.sale(t, s.ID, "150", now, models.SalePending, "x")
	f.sale(t, s.ID, "100", now.AddDate(0, 0, -3), models.SalePending, "x")

	day, err := f.svc.SellerProgress(context.Background(), s.ID, models.PeriodDay)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(day.Actual))
	assert.Equal(t, 75.0, day.ProgressPercentage)

	month, err := f.svc.SellerProgress(context.Background(), s.ID, models.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 25.0, month.ProgressPercentage)
	assert.EqualValues(t, 2, month.Stats.Count)

	week, err := f.svc.SellerProgress(context.Background(), s.ID, models.PeriodWeek)
	require.NoError(t, err)
	assert.Zero(t, week.ProgressPercentage)

	_, err = f.svc.SellerProgress(context.Background(), s.ID, models.PeriodYear)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDailyGoalStatus(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{Daily: decimal.NewFromInt(100)})
	for d := 0; d < 4; d++ {
		f.sale(t, s.ID, "100", now.AddDate(0, 0, -d), models.SalePending, "x")
	}
	// Gap four days ago breaks the streak.
	f.sale(t, s.ID, "500", now.AddDate(0, 0, -5), models.SalePending, "x")
	f.sale(t, s.ID, "500", now, models.SaleCancelled, "x")

	status, err := f.svc.DailyGoalStatus(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, status.Met)
	assert.Equal(t, 4, status.Streak)
	assert.True(t, decimal.NewFromInt(100).Equal(status.Today))
	assert.Equal(t, 4, status.Context().GoalStreakDays)
	assert.True(t, status.Context().DailyGoalMet)
}

func TestDailyGoalWithoutTargetIsNeverMet(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{})
	f.sale(t, s.ID, "100", now, models.SalePending, "x")

	status, err := f.svc.DailyGoalStatus(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, status.Met)
	assert.Zero(t, status.Streak)
}

func TestDailyGoalNotMetToday(t *testing.T) {
	f := newFixture(t, nil)
	s := f.seller(t, "A", models.SalesTarget{Daily: decimal.NewFromInt(100)})
	f.sale(t, s.ID, "100", now.AddDate(0, 0, -1), models.SalePending, "x")
	f.sale(t, s.ID, "50", now, models.SalePending, "x")

	status, err := f.svc.DailyGoalStatus(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, status.Met)
	assert.Zero(t, status.Streak)
}
