// Package ranking builds leaderboards, target progress, goal projections and the
// dashboard read models on top of the aggregation engine.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit applies when a ranking is requested without a limit.
const DefaultLimit = 10

var ErrInvalidWindow = errors.New("invalid window")

// Cache stores computed leaderboards keyed by period and window start. Invalidate
// starts a new generation; Get and Set address the leaderboards of one generation, so
// a leaderboard computed before an invalidation cannot be served after it.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) ([]models.LeaderboardEntry, bool, error)
	Set(ctx context.Context, gen int64, key string, entries []models.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type Config struct {
	Store       store.Store
	Aggregation *aggregation.Engine
	// Cache is optional. Without it rankings are computed on every call.
	Cache  Cache
	Logger *zap.Logger
	Now    func() time.Time
}

type Service struct {
	store  store.Store
	agg    *aggregation.Engine
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		agg:    cfg.Aggregation,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if s.agg == nil {
		s.agg = aggregation.New(cfg.Store, time.UTC)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) loc() *time.Location {
	return s.agg.Location()
}

// Rank returns the sellers ordered by total amount sold in the calendar window of the
// period, ties broken by seller id. An empty window yields an empty list.
func (s *Service) Rank(ctx context.Context, period models.Period, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	w, err := aggregation.PeriodWindow(period, s.now(), s.loc())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, period)
	}

	key := string(period) + ":" + w.Key()
	cached := s.cache != nil
	var gen int64
	if cached {
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("ranking cache read failed", zap.String("key", key), zap.Error(err))
			cached = false
		}
	}
	if cached {
		entries, ok, err := s.cache.Get(ctx, gen, key)
		if err != nil {
			s.logger.Warn("ranking cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return truncate(entries, limit), nil
		}
	}

	entries, err := s.leaderboard(ctx, w, 0)
	if err != nil {
		return nil, err
	}

	if cached {
		if err := s.cache.Set(ctx, gen, key, entries); err != nil {
			s.logger.Warn("ranking cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return truncate(entries, limit), nil
}

// Invalidate drops cached rankings.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func truncate(entries []models.LeaderboardEntry, limit int) []models.LeaderboardEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// leaderboard aggregates the window by seller and joins the seller profiles. Sellers
// that no longer exist are dropped before ranks are assigned.
func (s *Service) leaderboard(ctx context.Context, w aggregation.Window, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.agg.Rows(ctx, aggregation.Query{
		Filter:  w.Apply(store.SaleFilter{}),
		GroupBy: store.GroupSeller,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		if id, err := uuid.Parse(r.Key); err == nil {
			ids = append(ids, id)
		}
	}
	sellers, _, err := s.store.ListSellers(ctx, store.SellerFilter{IDs: ids}, store.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}
	byID := make(map[string]models.Seller, len(sellers))
	for _, seller := range sellers {
		byID[seller.ID.String()] = seller
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		seller, ok := byID[r.Key]
		if !ok {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			SellerID:        seller.ID,
			Name:            seller.Name,
			Email:           seller.Email,
			Avatar:          seller.Avatar,
			Department:      seller.Department,
			Level:           seller.Level,
			Rank:            len(entries) + 1,
			TotalAmount:     r.TotalAmount,
			TotalSales:      r.Count,
			AvgAmount:       r.AvgAmount,
			TotalCommission: r.TotalCommission,
		})
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}
