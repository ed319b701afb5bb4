// Package store defines the storage collaborator used by the gamification engine.
//
// Implementations must be safe for concurrent use. Every method that mutates more than
// one record is expected to run inside Transaction when atomicity matters to the caller.
package store

import (
	"context"
	"errors"
	"time"

	"sales-arena/shared/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a seller, sale or achievement does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")

	// ErrHasDependents is returned when deleting a seller that still owns sales.
	ErrHasDependents = errors.New("record has dependents")
)

// GroupBy selects the grouping key of a sales aggregation.
type GroupBy string

const (
	GroupNone     GroupBy = ""
	GroupSeller   GroupBy = "seller"
	GroupCategory GroupBy = "category"
	GroupDay      GroupBy = "day"
	GroupMonth    GroupBy = "month"
)

// Date keys produced by GroupDay and GroupMonth.
const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

// SaleFilter scopes sales queries. Start is inclusive, End exclusive.
type SaleFilter struct {
	SellerID        *uuid.UUID
	Start           *time.Time
	End             *time.Time
	Statuses        []models.SaleStatus
	ExcludeStatuses []models.SaleStatus
	Category        string
}

// Page limits a listing. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// AggregateRow is one group of an aggregation. Key is empty for GroupNone.
type AggregateRow struct {
	Key             string          `json:"key" gorm:"column:group_key"`
	Count           int64           `json:"count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AvgAmount       decimal.Decimal `json:"avg_amount"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// SellerFilter scopes seller listings.
type SellerFilter struct {
	IDs        []uuid.UUID
	Role       models.Role
	Department string
	IsActive   *bool
	// Search matches name or email, case-insensitively.
	Search string
}

// SellerUpdate carries the profile fields a caller may change. Nil fields are left untouched.
// Experience, level and total sales are owned by dedicated operations.
type SellerUpdate struct {
	Name         *string
	Avatar       *string
	Department   *string
	Position     *string
	Role         *models.Role
	IsActive     *bool
	SalesTarget  *models.SalesTarget
	PasswordHash *string
}

// AchievementFilter scopes achievement queries.
type AchievementFilter struct {
	SellerID    *uuid.UUID
	VisibleOnly bool
	EarnedSince *time.Time
}

// AchievementGroupBy selects the grouping of achievement statistics.
type AchievementGroupBy string

const (
	AchievementsByRarity AchievementGroupBy = "rarity"
	AchievementsByAward  AchievementGroupBy = "award"
	AchievementsBySeller AchievementGroupBy = "seller"
)

// AchievementGroupRow is one group of achievement statistics. Only the fields of the
// requested grouping are populated; rows are ordered by Count descending.
type AchievementGroupRow struct {
	Rarity          models.Rarity          `json:"rarity,omitempty"`
	Type            models.AchievementType `json:"type,omitempty"`
	Level           int                    `json:"level,omitempty"`
	Name            string                 `json:"name,omitempty"`
	Icon            string                 `json:"icon,omitempty"`
	SellerID        uuid.UUID              `json:"seller_id,omitempty"`
	Count           int64                  `json:"count"`
	TotalExperience int64                  `json:"total_experience"`
}

// Store is the storage collaborator.
type Store interface {
	// Transaction runs fn atomically. The Store passed to fn must be used for every call
	// that belongs to the transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateSeller(ctx context.Context, seller *models.Seller) error
	GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	GetSellerByEmail(ctx context.Context, email string) (*models.Seller, error)
	ListSellers(ctx context.Context, filter SellerFilter, page Page) ([]models.Seller, int64, error)
	UpdateSeller(ctx context.Context, id uuid.UUID, update SellerUpdate) (*models.Seller, error)
	// DeleteSeller removes a seller together with its achievements and experience history.
	// It returns ErrHasDependents when the seller owns sales.
	DeleteSeller(ctx context.Context, id uuid.UUID) error
	// AdjustTotalSales adds delta to the seller's running total in a single write.
	AdjustTotalSales(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	// AddExperience adds points and stores the derived level in the same write.
	// No other seller field is touched or validated.
	AddExperience(ctx context.Context, id uuid.UUID, points int, level func(experience int) int) (*models.Seller, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	SaveSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, id uuid.UUID) error
	// FindSales lists sales ordered by sale date, newest first.
	FindSales(ctx context.Context, filter SaleFilter, page Page) ([]models.Sale, int64, error)
	CountDistinctCustomers(ctx context.Context, filter SaleFilter) (int64, error)
	// Aggregate groups the filtered sales. Date keys are computed in loc. Row order is unspecified.
	Aggregate(ctx context.Context, filter SaleFilter, groupBy GroupBy, loc *time.Location) ([]AggregateRow, error)

	// CreateAchievement returns ErrDuplicate when the (seller, type, level) award exists.
	CreateAchievement(ctx context.Context, achievement *models.Achievement) error
	// ListAchievements lists achievements ordered by date earned, newest first.
	ListAchievements(ctx context.Context, filter AchievementFilter, page Page) ([]models.Achievement, int64, error)
	CountAchievements(ctx context.Context, filter AchievementFilter) (int64, error)
	GroupAchievements(ctx context.Context, filter AchievementFilter, groupBy AchievementGroupBy, limit int) ([]AchievementGroupRow, error)

	CreateExperienceEntry(ctx context.Context, entry *models.ExperienceEntry) error
	ListExperienceEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ExperienceEntry, error)
}
