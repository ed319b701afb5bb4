// Package gamification wires the sales ledger, the achievement evaluator, leveling and
// rankings into one engine used by the services.
package gamification

import (
	"context"
	"time"

	"sales-arena/shared/achievements"
	"sales-arena/shared/aggregation"
	"sales-arena/shared/events"
	"sales-arena/shared/ledger"
	"sales-arena/shared/leveling"
	"sales-arena/shared/locks"
	"sales-arena/shared/models"
	"sales-arena/shared/ranking"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Deps struct {
	Store store.Store
	// Cache holds computed rankings. Optional.
	Cache     ranking.Cache
	Publisher events.Publisher
	// Location is the calendar of day, week, month and year windows.
	Location *time.Location
	Logger   *zap.Logger
	Now      func() time.Time
}

type Engine struct {
	Store        store.Store
	Ledger       *ledger.Ledger
	Aggregation  *aggregation.Engine
	Leveling     *leveling.Service
	Evaluator    *achievements.Evaluator
	Achievements *achievements.Queries
	Ranking      *ranking.Service

	logger *zap.Logger
}

func New(d Deps) *Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	// One lock set serializes both ledger writes and evaluations of a seller.
	sellerLocks := locks.New[uuid.UUID]()
	agg := aggregation.New(d.Store, d.Location)

	rankings := ranking.New(ranking.Config{
		Store:       d.Store,
		Aggregation: agg,
		Cache:       d.Cache,
		Logger:      d.Logger.Named("ranking"),
		Now:         d.Now,
	})

	return &Engine{
		Store:       d.Store,
		Aggregation: agg,
		Ranking:     rankings,
		Leveling:    leveling.NewService(d.Store, rankings, d.Logger.Named("leveling")),
		Ledger: ledger.New(ledger.Config{
			Store:     d.Store,
			Locks:     sellerLocks,
			Publisher: d.Publisher,
			Cache:     rankings,
			Logger:    d.Logger.Named("ledger"),
			Now:       d.Now,
		}),
		Evaluator: achievements.NewEvaluator(achievements.Config{
			Store:       d.Store,
			Aggregation: agg,
			Locks:       sellerLocks,
			Publisher:   d.Publisher,
			Cache:       rankings,
			Logger:      d.Logger.Named("achievements"),
			Now:         d.Now,
		}),
		Achievements: achievements.NewQueries(d.Store),
		logger:       d.Logger,
	}
}

// SaleResult is a committed sale and the achievements it unlocked.
type SaleResult struct {
	Sale            *models.Sale         `json:"sale"`
	NewAchievements []models.Achievement `json:"new_achievements"`
}

// RecordSale stores the sale, then evaluates the seller's achievements. A failed
// evaluation is logged and leaves the sale committed; it is safe to retry through
// EvaluateAchievements.
func (e *Engine) RecordSale(ctx context.Context, sellerID uuid.UUID, in ledger.SaleInput) (*SaleResult, error) {
	sale, err := e.Ledger.RecordSale(ctx, sellerID, in)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale, NewAchievements: e.evaluateAfterSale(ctx, sale.SellerID)}, nil
}

// UpdateSale applies the patch, then evaluates the seller's achievements like RecordSale.
func (e *Engine) UpdateSale(ctx context.Context, saleID uuid.UUID, patch ledger.SalePatch) (*SaleResult, error) {
	sale, err := e.Ledger.UpdateSale(ctx, saleID, patch)
	if err != nil {
		return nil, err
	}
	return &SaleResult{Sale: sale, NewAchievements: e.evaluateAfterSale(ctx, sale.SellerID)}, nil
}

func (e *Engine) DeleteSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return e.Ledger.DeleteSale(ctx, saleID)
}

// EvaluateAchievements runs the evaluator with the seller's real daily goal status.
func (e *Engine) EvaluateAchievements(ctx context.Context, sellerID uuid.UUID) ([]models.Achievement, error) {
	status, err := e.Ranking.DailyGoalStatus(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return e.Evaluator.Evaluate(ctx, sellerID, status.Context())
}

func (e *Engine) evaluateAfterSale(ctx context.Context, sellerID uuid.UUID) []models.Achievement {
	awarded, err := e.EvaluateAchievements(ctx, sellerID)
	if err != nil {
		e.logger.Error("achievement evaluation failed",
			zap.String("seller_id", sellerID.String()),
			zap.Error(err),
		)
	}
	if awarded == nil {
		awarded = []models.Achievement{}
	}
	return awarded
}
