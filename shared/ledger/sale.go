package ledger

import (
	"strings"
	"time"

	"sales-arena/shared/models"

	"github.com/shopspring/decimal"
)

// Defaults applied to new sales.
var (
	DefaultCommissionRate = decimal.NewFromInt(5)
	MaxCommissionRate     = decimal.NewFromInt(50)
	hundred               = decimal.NewFromInt(100)
)

// moneyPlaces is the scale amounts, prices, percentages and commissions are stored with.
const moneyPlaces = 2

const (
	DefaultQuantity = 1
	DefaultStatus   = models.SalePending
	DefaultCountry  = "Brasil"
)

// SaleInput carries the attributes of a new sale. Zero Quantity, empty Status, nil
// CommissionRate and nil SaleDate take their defaults.
type SaleInput struct {
	Customer       models.Customer
	Product        models.Product
	Amount         decimal.Decimal
	Quantity       int
	UnitPrice      decimal.Decimal
	Discount       decimal.Decimal
	Status         models.SaleStatus
	PaymentMethod  models.PaymentMethod
	CommissionRate *decimal.Decimal
	SaleDate       *time.Time
	Notes          string
	Tags           []string
	Location       models.Location
}

// SalePatch changes the non-nil fields of a sale. The owning seller cannot change.
type SalePatch struct {
	Customer       *models.Customer
	Product        *models.Product
	Amount         *decimal.Decimal
	Quantity       *int
	UnitPrice      *decimal.Decimal
	Discount       *decimal.Decimal
	Status         *models.SaleStatus
	PaymentMethod  *models.PaymentMethod
	CommissionRate *decimal.Decimal
	SaleDate       *time.Time
	Notes          *string
	Tags           *[]string
	Location       *models.Location
}

// CommissionFor returns amount * rate / 100 rounded half away from zero to cents, the
// precision commissions are stored with.
func CommissionFor(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(moneyPlaces)
}

func tooPrecise(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(moneyPlaces))
}

// contribution is what a sale adds to its seller's total sales.
func contribution(sale *models.Sale) decimal.Decimal {
	if !sale.Counted() {
		return decimal.Zero
	}
	return sale.Amount
}

func (in SaleInput) build(now time.Time) *models.Sale {
	sale := &models.Sale{
		Customer:      in.Customer,
		Product:       in.Product,
		Amount:        in.Amount,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		Discount:      in.Discount,
		Status:        in.Status,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		Tags:          in.Tags,
		Location:      in.Location,
		SaleDate:      now,
	}
	if sale.Quantity == 0 {
		sale.Quantity = DefaultQuantity
	}
	if sale.Status == "" {
		sale.Status = DefaultStatus
	}
	if sale.Location.Country == "" {
		sale.Location.Country = DefaultCountry
	}
	sale.Commission.Rate = DefaultCommissionRate
	if in.CommissionRate != nil {
		sale.Commission.Rate = *in.CommissionRate
	}
	if in.SaleDate != nil && !in.SaleDate.IsZero() {
		sale.SaleDate = *in.SaleDate
	}
	sale.Commission.Amount = CommissionFor(sale.Amount, sale.Commission.Rate)
	return sale
}

func (p SalePatch) apply(sale *models.Sale) {
	if p.Customer != nil {
		sale.Customer = *p.Customer
	}
	if p.Product != nil {
		sale.Product = *p.Product
	}
	if p.Amount != nil {
		sale.Amount = *p.Amount
	}
	if p.Quantity != nil {
		sale.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		sale.UnitPrice = *p.UnitPrice
	}
	if p.Discount != nil {
		sale.Discount = *p.Discount
	}
	if p.Status != nil {
		sale.Status = *p.Status
	}
	if p.PaymentMethod != nil {
		sale.PaymentMethod = *p.PaymentMethod
	}
	if p.CommissionRate != nil {
		sale.Commission.Rate = *p.CommissionRate
	}
	if p.SaleDate != nil {
		sale.SaleDate = *p.SaleDate
	}
	if p.Notes != nil {
		sale.Notes = *p.Notes
	}
	if p.Tags != nil {
		sale.Tags = *p.Tags
	}
	if p.Location != nil {
		sale.Location = *p.Location
	}
	sale.Commission.Amount = CommissionFor(sale.Amount, sale.Commission.Rate)
}

// validate checks a complete sale before it is written. Sales cannot be dated after now.
func validate(sale *models.Sale, now time.Time) error {
	verr := &ValidationError{}

	if strings.TrimSpace(sale.Customer.Name) == "" {
		verr.add("customer.name", "is required")
	}
	if strings.TrimSpace(sale.Product.Name) == "" {
		verr.add("product.name", "is required")
	}
	if !sale.Amount.IsPositive() {
		verr.add("amount", "must be greater than 0")
	} else if tooPrecise(sale.Amount) {
		verr.add("amount", "must have at most 2 decimal places")
	}
	if sale.Quantity < 1 {
		verr.add("quantity", "must be at least 1")
	}
	if !sale.UnitPrice.IsPositive() {
		verr.add("unit_price", "must be greater than 0")
	} else if tooPrecise(sale.UnitPrice) {
		verr.add("unit_price", "must have at most 2 decimal places")
	}
	if sale.Discount.IsNegative() || sale.Discount.GreaterThan(hundred) {
		verr.add("discount", "must be between 0 and 100")
	} else if tooPrecise(sale.Discount) {
		verr.add("discount", "must have at most 2 decimal places")
	}
	if sale.Commission.Rate.IsNegative() || sale.Commission.Rate.GreaterThan(MaxCommissionRate) {
		verr.add("commission.rate", "must be between 0 and 50")
	} else if tooPrecise(sale.Commission.Rate) {
		verr.add("commission.rate", "must have at most 2 decimal places")
	}
	if !sale.Status.Valid() {
		verr.add("status", "is not a valid sale status")
	}
	if !sale.PaymentMethod.Valid() {
		verr.add("payment_method", "is not a valid payment method")
	}
	if sale.SaleDate.IsZero() {
		verr.add("sale_date", "is required")
	} else if sale.SaleDate.After(now) {
		verr.add("sale_date", "cannot be in the future")
	}
	return verr.orNil()
}
