package aggregation

import (
	"context"
	"testing"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/store/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st  *memstore.Store
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	return &fixture{st: st, eng: New(st, time.UTC)}
}

func (f *fixture) seller(t *testing.T) uuid.UUID {
	t.Helper()
	s := &models.Seller{Name: "Seller", Email: uuid.NewString() + "@example.com", Role: models.RoleCollaborator}
	require.NoError(t, f.st.CreateSeller(context.Background(), s))
	return s.ID
}

func (f *fixture) sale(t *testing.T, sellerID uuid.UUID, amount int64, category string, at time.Time, status models.SaleStatus) {
	t.Helper()
	a := decimal.NewFromInt(amount)
	sale := &models.Sale{
		SellerID:   sellerID,
		Amount:     a,
		UnitPrice:  a,
		Quantity:   1,
		Status:     status,
		SaleDate:   at,
		Product:    models.Product{Name: "Item", Category: category},
		Commission: models.Commission{Rate: decimal.NewFromInt(10), Amount: a.Div(decimal.NewFromInt(10))},
	}
	require.NoError(t, f.st.CreateSale(context.Background(), sale))
}

func TestRowsGroupBySellerOrdersByTotalThenID(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	a, b, c := f.seller(t), f.seller(t), f.seller(t)

	f.sale(t, a, 100, "x", now, models.SaleConfirmed)
	f.sale(t, b, 300, "x", now, models.SalePending)
	f.sale(t, c, 100, "x", now, models.SalePending)
	f.sale(t, c, 900, "x", now, models.SaleCancelled)

	rows, err := f.eng.Rows(context.Background(), Query{GroupBy: store.GroupSeller})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, b.String(), rows[0].Key)

	first, second := a.String(), c.String()
	if second < first {
		first, second = second, first
	}
	assert.Equal(t, first, rows[1].Key)
	assert.Equal(t, second, rows[2].Key)
}

func TestRowsIncludeCancelledOnRequest(t *testing.T) {
	f := newFixture(t)
	s := f.seller(t)
	f.sale(t, s, 100, "x", time.Now(), models.SaleCancelled)

	total, err := f.eng.Totals(context.Background(), store.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, total.Count)

	rows, err := f.eng.Rows(context.Background(), Query{IncludeCancelled: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0].Count)
}

func TestRowsByDayAscending(t *testing.T) {
	f := newFixture(t)
	s := f.seller(t)
	f.sale(t, s, 30, "x", time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), models.SalePending)
	f.sale(t, s, 10, "x", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), models.SalePending)
	f.sale(t, s, 20, "x", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), models.SalePending)

	rows, err := f.eng.Rows(context.Background(), Query{GroupBy: store.GroupDay})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-05-01", "2024-05-02", "2024-05-03"}, []string{rows[0].Key, rows[1].Key, rows[2].Key})
}

func TestAggregateProjectsMetrics(t *testing.T) {
	f := newFixture(t)
	s := f.seller(t)
	f.sale(t, s, 100, "books", time.Now(), models.SalePending)
	f.sale(t, s, 50, "books", time.Now(), models.SalePending)
	f.sale(t, s, 500, "games", time.Now(), models.SalePending)

	results, err := f.eng.Aggregate(context.Background(), Query{GroupBy: store.GroupCategory, Metrics: []Metric{MetricSum, MetricCount}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "games", results[0].Key)
	require.NotNil(t, results[0].Sum)
	assert.True(t, results[0].Sum.Equal(decimal.NewFromInt(500)))
	assert.EqualValues(t, 1, *results[0].Count)
	assert.Nil(t, results[0].Avg)
	assert.Nil(t, results[0].Commission)

	results, err = f.eng.Aggregate(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Avg.Equal(decimal.NewFromInt(650).Div(decimal.NewFromInt(3))))
	assert.True(t, results[0].Commission.Equal(decimal.NewFromInt(65)))
}

func TestAggregateRejectsUnknownInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Aggregate(context.Background(), Query{Metrics: []Metric{"median"}})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = f.eng.Rows(context.Background(), Query{GroupBy: "hour"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestEmptyWindowYieldsNoRows(t *testing.T) {
	f := newFixture(t)
	rows, err := f.eng.Rows(context.Background(), Query{GroupBy: store.GroupSeller})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSeriesZeroFills(t *testing.T) {
	f := newFixture(t)
	s := f.seller(t)
	f.sale(t, s, 40, "x", time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC), models.SalePending)

	keys := DayKeys(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 5, 3, 1, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, []string{"2024-05-01", "2024-05-02", "2024-05-03"}, keys)

	series, err := f.eng.Series(context.Background(), store.SaleFilter{}, store.GroupDay, keys)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Zero(t, series[0].Count)
	assert.EqualValues(t, 1, series[1].Count)
	assert.True(t, series[2].TotalAmount.IsZero())
}
