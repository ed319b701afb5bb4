package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sales-arena/shared/events"
	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/store/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

type fixture struct {
	st       *memstore.Store
	ledger   *Ledger
	recorder *events.Recorder
	cache    *countingCache
	seller   *models.Seller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	seller := &models.Seller{Name: "Ana", Email: "ana@example.com", Role: models.RoleCollaborator, IsActive: true}
	require.NoError(t, st.CreateSeller(context.Background(), seller))

	rec := &events.Recorder{}
	cache := &countingCache{}
	return &fixture{
		st:       st,
		recorder: rec,
		cache:    cache,
		seller:   seller,
		ledger: New(Config{
			Store:     st,
			Publisher: rec,
			Cache:     cache,
			Logger:    zaptest.NewLogger(t),
		}),
	}
}

func (f *fixture) totalSales(t *testing.T) decimal.Decimal {
	t.Helper()
	s, err := f.st.GetSeller(context.Background(), f.seller.ID)
	require.NoError(t, err)
	return s.TotalSales
}

// expectedTotal sums the non-cancelled sales of the seller straight from the store.
func (f *fixture) expectedTotal(t *testing.T) decimal.Decimal {
	t.Helper()
	sales, _, err := f.st.FindSales(context.Background(), store.SaleFilter{SellerID: &f.seller.ID}, store.Page{})
	require.NoError(t, err)
	sum := decimal.Zero
	for _, s := range sales {
		if s.Status != models.SaleCancelled {
			sum = sum.Add(s.Amount)
		}
	}
	return sum
}

func input(amount string) SaleInput {
	a := decimal.RequireFromString(amount)
	return SaleInput{
		Customer:      models.Customer{Name: "Acme Ltda", Email: "buyer@acme.test"},
		Product:       models.Product{Name: "Software license", Category: "software"},
		Amount:        a,
		UnitPrice:     a,
		PaymentMethod: models.PaymentPIX,
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRecordSaleComputesCommissionAndTotals(t *testing.T) {
	f := newFixture(t)

	sale, err := f.ledger.RecordSale(context.Background(), f.seller.ID, input("150.00"))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("7.50").Equal(sale.Commission.Amount))
	assert.True(t, DefaultCommissionRate.Equal(sale.Commission.Rate))
	assert.Equal(t, models.SalePending, sale.Status)
	assert.Equal(t, 1, sale.Quantity)
	assert.Equal(t, "Brasil", sale.Location.Country)
	assert.False(t, sale.SaleDate.IsZero())
	assert.True(t, decimal.RequireFromString("150").Equal(f.totalSales(t)))

	assert.Equal(t, []string{events.SaleRecorded}, f.recorder.Types())
	assert.Equal(t, f.seller.ID.String(), f.recorder.Events()[0].Key)
	assert.Equal(t, 1, f.cache.calls)
}

func TestRecordCancelledSaleDoesNotCount(t *testing.T) {
	f := newFixture(t)
	in := input("80")
	in.Status = models.SaleCancelled

	_, err := f.ledger.RecordSale(context.Background(), f.seller.ID, in)
	require.NoError(t, err)
	assert.True(t, f.totalSales(t).IsZero())
}

func TestRecordSaleValidation(t *testing.T) {
	f := newFixture(t)
	in := input("0")
	in.UnitPrice = decimal.NewFromInt(-1)
	in.Discount = decimal.NewFromInt(101)
	in.CommissionRate = dec("51")
	in.Customer.Name = ""
	in.PaymentMethod = "barter"

	_, err := f.ledger.RecordSale(context.Background(), f.seller.ID, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	var fields []string
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"customer.name", "amount", "unit_price", "discount", "commission.rate", "payment_method"}, fields)

	_, total, err := f.st.FindSales(context.Background(), store.SaleFilter{}, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.recorder.Types())
}

func TestRecordSaleBoundaryRates(t *testing.T) {
	f := newFixture(t)
	in := input("100")
	in.CommissionRate = dec("50")
	in.Discount = decimal.NewFromInt(100)

	sale, err := f.ledger.RecordSale(context.Background(), f.seller.ID, in)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(sale.Commission.Amount))
	assert.True(t, sale.TotalWithDiscount().IsZero())
}

func TestRecordSaleUnknownSeller(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RecordSale(context.Background(), uuid.New(), input("10"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateSaleAmountAndStatusTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale, err := f.ledger.RecordSale(ctx, f.seller.ID, input("100"))
	require.NoError(t, err)

	cancelled := models.SaleCancelled
	updated, err := f.ledger.UpdateSale(ctx, sale.ID, SalePatch{Amount: dec("300"), Status: &cancelled})
	require.NoError(t, err)
	assert.True(t, f.totalSales(t).IsZero())
	assert.True(t, decimal.NewFromInt(15).Equal(updated.Commission.Amount))

	confirmed := models.SaleConfirmed
	_, err = f.ledger.UpdateSale(ctx, sale.ID, SalePatch{Amount: dec("250"), Status: &confirmed, CommissionRate: dec("10")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(f.totalSales(t)))

	stored, err := f.st.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.Commission.Amount))
	assert.Equal(t, sale.SellerID, stored.SellerID)
}

func TestUpdateSaleInvalidPatchChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale, err := f.ledger.RecordSale(ctx, f.seller.ID, input("100"))
	require.NoError(t, err)

	_, err = f.ledger.UpdateSale(ctx, sale.ID, SalePatch{Amount: dec("-5")})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.st.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(stored.Amount))
	assert.True(t, decimal.NewFromInt(100).Equal(f.totalSales(t)))
}

func TestDeleteSaleReversesContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.ledger.RecordSale(ctx, f.seller.ID, input("100"))
	require.NoError(t, err)
	_, err = f.ledger.RecordSale(ctx, f.seller.ID, input("40"))
	require.NoError(t, err)

	_, err = f.ledger.DeleteSale(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(f.totalSales(t)))

	_, err = f.ledger.DeleteSale(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, []string{events.SaleRecorded, events.SaleRecorded, events.SaleDeleted}, f.recorder.Types())
}

func TestTotalSalesConsistentUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := input("10")
			if i%4 == 0 {
				in.Status = models.SaleCancelled
			}
			sale, err := f.ledger.RecordSale(ctx, f.seller.ID, in)
			if assert.NoError(t, err) {
				ids <- sale.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	refunded := models.SaleRefunded
	cancelled := models.SaleCancelled
	i := 0
	for id := range ids {
		wg.Add(1)
		go func(id uuid.UUID, i int) {
			defer wg.Done()
			var err error
			switch i % 3 {
			case 0:
				_, err = f.ledger.UpdateSale(ctx, id, SalePatch{Status: &refunded, Amount: dec("25")})
			case 1:
				_, err = f.ledger.UpdateSale(ctx, id, SalePatch{Status: &cancelled})
			default:
				_, err = f.ledger.DeleteSale(ctx, id)
			}
			assert.NoError(t, err)
		}(id, i)
		i++
	}
	wg.Wait()

	assert.True(t, f.expectedTotal(t).Equal(f.totalSales(t)), "total %s, expected %s", f.totalSales(t), f.expectedTotal(t))
}

func TestCacheFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")

	_, err := f.ledger.RecordSale(context.Background(), f.seller.ID, input("10"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.calls)
}

func TestRecordSaleBackdated(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2023, 12, 24, 15, 0, 0, 0, time.UTC)
	in := input("10")
	in.SaleDate = &at

	sale, err := f.ledger.RecordSale(context.Background(), f.seller.ID, in)
	require.NoError(t, err)
	assert.True(t, at.Equal(sale.SaleDate))
}

func TestCommissionRoundedToCents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.ledger.RecordSale(ctx, f.seller.ID, input("99.99"))
	require.NoError(t, err)
	assert.Equal(t, "5", sale.Commission.Amount.String())
	assert.True(t, CommissionFor(sale.Amount, sale.Commission.Rate).Equal(sale.Commission.Amount))

	updated, err := f.ledger.UpdateSale(ctx, sale.ID, SalePatch{CommissionRate: dec("7.25")})
	require.NoError(t, err)
	// 99.99 * 7.25 / 100 = 7.249275
	assert.Equal(t, "7.25", updated.Commission.Amount.String())

	assert.Equal(t, "0.01", CommissionFor(decimal.RequireFromString("0.1"), decimal.NewFromInt(5)).String())
}

func TestRecordSaleRejectsSubCentPrecision(t *testing.T) {
	f := newFixture(t)
	in := input("10.005")
	in.UnitPrice = decimal.RequireFromString("10.005")
	in.Discount = decimal.RequireFromString("1.255")
	in.CommissionRate = dec("5.125")

	_, err := f.ledger.RecordSale(context.Background(), f.seller.ID, in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	var fields []string
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"amount", "unit_price", "discount", "commission.rate"}, fields)

	// trailing zeros are not extra precision
	_, err = f.ledger.RecordSale(context.Background(), f.seller.ID, input("10.500"))
	assert.NoError(t, err)
}

func TestSaleDateCannotBeInTheFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)
	in := input("10")
	in.SaleDate = &at

	_, err := f.ledger.RecordSale(ctx, f.seller.ID, in)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, f.totalSales(t).IsZero())

	sale, err := f.ledger.RecordSale(ctx, f.seller.ID, input("10"))
	require.NoError(t, err)
	_, err = f.ledger.UpdateSale(ctx, sale.ID, SalePatch{SaleDate: &at})
	assert.ErrorIs(t, err, ErrValidation)
}
