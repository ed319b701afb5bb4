package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSaleTotalWithDiscount(t *testing.T) {
	sale := Sale{Amount: decimal.RequireFromString("200.00"), Discount: decimal.NewFromInt(15)}
	assert.True(t, decimal.RequireFromString("170").Equal(sale.TotalWithDiscount()))

	sale.Discount = decimal.Zero
	assert.True(t, sale.Amount.Equal(sale.TotalWithDiscount()))
}

func TestSaleCounted(t *testing.T) {
	for status, want := range map[SaleStatus]bool{
		SalePending:   true,
		SaleConfirmed: true,
		SaleRefunded:  true,
		SaleCancelled: false,
	} {
		sale := Sale{Status: status}
		assert.Equal(t, want, sale.Counted(), status)
	}
}

func TestSalesTargetFor(t *testing.T) {
	target := SalesTarget{
		Daily:   decimal.NewFromInt(100),
		Weekly:  decimal.NewFromInt(500),
		Monthly: decimal.NewFromInt(2000),
	}
	assert.True(t, target.For(PeriodDay).Equal(decimal.NewFromInt(100)))
	assert.True(t, target.For(PeriodWeek).Equal(decimal.NewFromInt(500)))
	assert.True(t, target.For(PeriodMonth).Equal(decimal.NewFromInt(2000)))
	assert.True(t, target.For(PeriodYear).IsZero())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, SaleConfirmed.Valid())
	assert.False(t, SaleStatus("shipped").Valid())
	assert.True(t, PaymentPIX.Valid())
	assert.False(t, PaymentMethod("barter").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("buyer").Valid())
	assert.True(t, PeriodAllTime.Valid())
	assert.False(t, Period("decade").Valid())
}
