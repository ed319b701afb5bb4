package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User roles
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCollaborator
}

// Sale status
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleConfirmed SaleStatus = "confirmed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleConfirmed, SaleCancelled, SaleRefunded:
		return true
	}
	return false
}

// Payment method
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentPIX        PaymentMethod = "pix"
	PaymentBoleto     PaymentMethod = "boleto"
	PaymentTransfer   PaymentMethod = "transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPIX, PaymentBoleto, PaymentTransfer:
		return true
	}
	return false
}

// Achievement rarity
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists every rarity from most to least common.
var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Achievement types
type AchievementType string

const (
	AchievementFirstSale         AchievementType = "first_sale"
	AchievementConsecutiveSales  AchievementType = "consecutive_sales"
	AchievementDailyGoal         AchievementType = "daily_goal"
	AchievementWeeklyGoal        AchievementType = "weekly_goal"
	AchievementMonthlyGoal       AchievementType = "monthly_goal"
	AchievementTopSeller         AchievementType = "top_seller"
	AchievementSatisfiedCustomer AchievementType = "satisfied_customer"
	AchievementSalesVolume       AchievementType = "sales_volume"
	AchievementExperienceLevel   AchievementType = "experience_level"
	AchievementServiceTime       AchievementType = "service_time"
	AchievementBestSellerMonth   AchievementType = "best_seller_month"
	AchievementSalesGrowth       AchievementType = "sales_growth"
)

// Criteria metrics
type Metric string

const (
	MetricSales     Metric = "sales"
	MetricAmount    Metric = "amount"
	MetricCustomers Metric = "customers"
	MetricDays      Metric = "days"
	MetricLevel     Metric = "level"
)

// Time periods shared by criteria, rankings and dashboards
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodYear    Period = "year"
	PeriodAllTime Period = "all_time"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime:
		return true
	}
	return false
}

// SalesTarget holds the three independent goals of a seller.
type SalesTarget struct {
	Daily   decimal.Decimal `json:"daily" gorm:"type:decimal(14,2);not null;default:0"`
	Weekly  decimal.Decimal `json:"weekly" gorm:"type:decimal(14,2);not null;default:0"`
	Monthly decimal.Decimal `json:"monthly" gorm:"type:decimal(14,2);not null;default:0"`
}

// For returns the target matching a window granularity. Periods without a target yield zero.
func (t SalesTarget) For(p Period) decimal.Decimal {
	switch p {
	case PeriodDay:
		return t.Daily
	case PeriodWeek:
		return t.Weekly
	case PeriodMonth:
		return t.Monthly
	}
	return decimal.Zero
}

// Seller model
type Seller struct {
	BaseModel
	Name         string          `json:"name" gorm:"not null"`
	Email        string          `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string          `json:"-" gorm:"not null"`
	Role         Role            `json:"role" gorm:"not null;index"`
	Avatar       string          `json:"avatar,omitempty"`
	Department   string          `json:"department"`
	Position     string          `json:"position"`
	HireDate     time.Time       `json:"hire_date"`
	IsActive     bool            `json:"is_active" gorm:"index"`
	SalesTarget  SalesTarget     `json:"sales_target" gorm:"embedded;embeddedPrefix:target_"`
	Level        int             `json:"level" gorm:"not null;default:1"`
	Experience   int             `json:"experience" gorm:"not null;default:0"`
	TotalSales   decimal.Decimal `json:"total_sales" gorm:"type:decimal(16,2);not null;default:0;index"`
	LastLoginAt  *time.Time      `json:"last_login_at"`
}

func (Seller) TableName() string {
	return "sellers"
}

func (s *Seller) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type Customer struct {
	Name    string `json:"name" gorm:"not null"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

type Product struct {
	Name        string `json:"name" gorm:"not null"`
	Category    string `json:"category,omitempty" gorm:"index"`
	Description string `json:"description,omitempty"`
}

// Commission amount is always Amount * Rate / 100 of the owning sale.
type Commission struct {
	Rate   decimal.Decimal `json:"rate" gorm:"type:decimal(5,2);not null;default:5"`
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null;default:0"`
}

type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Sale model
type Sale struct {
	BaseModel
	SellerID      uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index:idx_sales_seller_date,priority:1"`
	Customer      Customer        `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Product       Product         `json:"product" gorm:"embedded;embeddedPrefix:product_"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	Quantity      int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(14,2);not null"`
	Discount      decimal.Decimal `json:"discount" gorm:"type:decimal(5,2);not null;default:0"`
	Status        SaleStatus      `json:"status" gorm:"not null;index"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"not null"`
	Commission    Commission      `json:"commission" gorm:"embedded;embeddedPrefix:commission_"`
	SaleDate      time.Time       `json:"sale_date" gorm:"not null;index;index:idx_sales_seller_date,priority:2"`
	Notes         string          `json:"notes,omitempty"`
	Tags          []string        `json:"tags,omitempty" gorm:"serializer:json"`
	Location      Location        `json:"location" gorm:"embedded;embeddedPrefix:location_"`
}

// Counted reports whether the sale contributes to the seller's totals.
func (s *Sale) Counted() bool {
	return s.Status != SaleCancelled
}

// TotalWithDiscount is the amount minus the percentage discount. It is never stored.
func (s *Sale) TotalWithDiscount() decimal.Decimal {
	return s.Amount.Sub(s.Amount.Mul(s.Discount).Div(decimal.NewFromInt(100)))
}

// Criteria is the trigger rule of an achievement template.
type Criteria struct {
	Metric Metric `json:"metric"`
	Value  int    `json:"value"`
	Period Period `json:"period"`
}

// Achievement is an earned badge. (seller_id, type, level) is unique.
type Achievement struct {
	BaseModel
	SellerID         uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;uniqueIndex:idx_achievement_award,priority:1;index:idx_achievement_seller_date,priority:1"`
	Type             AchievementType `json:"type" gorm:"not null;uniqueIndex:idx_achievement_award,priority:2"`
	Level            int             `json:"level" gorm:"not null;uniqueIndex:idx_achievement_award,priority:3"`
	Name             string          `json:"name" gorm:"not null"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon"`
	Color            string          `json:"color"`
	Rarity           Rarity          `json:"rarity" gorm:"not null;index"`
	ExperiencePoints int             `json:"experience_points" gorm:"not null;default:0"`
	Criteria         Criteria        `json:"criteria" gorm:"embedded;embeddedPrefix:criteria_"`
	DateEarned       time.Time       `json:"date_earned" gorm:"not null;index:idx_achievement_seller_date,priority:2"`
	IsVisible        bool            `json:"is_visible"`
}

// ExperienceEntry records every experience change of a seller
type ExperienceEntry struct {
	BaseModel
	SellerID  uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	Amount    int       `json:"amount" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	Reference string    `json:"reference"` // Achievement ID, sale ID, etc.
}

// Session model for Redis caching
type Session struct {
	SellerID  uuid.UUID `json:"seller_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Leaderboard entry
type LeaderboardEntry struct {
	SellerID        uuid.UUID       `json:"seller_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Avatar          string          `json:"avatar,omitempty"`
	Department      string          `json:"department"`
	Level           int             `json:"level"`
	Rank            int             `json:"rank"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalSales      int64           `json:"total_sales"`
	AvgAmount       decimal.Decimal `json:"avg_amount"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}
