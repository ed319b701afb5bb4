// Package leveling converts experience points into levels. It is the only path that
// mutates a seller's experience.
package leveling

import (
	"context"
	"errors"
	"fmt"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PointsPerLevel is the experience needed to advance one level.
const PointsPerLevel = 1000

var ErrNegativePoints = errors.New("experience points must not be negative")

// LevelFor returns the level reached with the given experience.
func LevelFor(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return experience/PointsPerLevel + 1
}

// Progress describes where a seller stands inside the current level.
type Progress struct {
	Level            int     `json:"level"`
	Experience       int     `json:"experience"`
	CurrentLevelBase int     `json:"current_level_experience"`
	NextLevelAt      int     `json:"next_level_experience"`
	ToNextLevel      int     `json:"experience_to_next_level"`
	Percentage       float64 `json:"progress_percentage"`
}

func ProgressFor(experience int) Progress {
	level := LevelFor(experience)
	base := (level - 1) * PointsPerLevel
	next := level * PointsPerLevel
	return Progress{
		Level:            level,
		Experience:       experience,
		CurrentLevelBase: base,
		NextLevelAt:      next,
		ToNextLevel:      next - experience,
		Percentage:       float64(experience-base) * 100 / PointsPerLevel,
	}
}

// Result is the outcome of an experience award.
type Result struct {
	SellerID      uuid.UUID `json:"seller_id"`
	Added         int       `json:"added"`
	Experience    int       `json:"experience"`
	PreviousLevel int       `json:"previous_level"`
	Level         int       `json:"level"`
}

func (r Result) LeveledUp() bool {
	return r.Level > r.PreviousLevel
}

// AddExperience adds points to the seller and records the change in the experience
// history. Callers that need it atomic with other writes pass a transactional store.
func AddExperience(ctx context.Context, st store.Store, sellerID uuid.UUID, points int, reason, reference string) (Result, error) {
	if points < 0 {
		return Result{}, ErrNegativePoints
	}

	seller, err := st.AddExperience(ctx, sellerID, points, LevelFor)
	if err != nil {
		return Result{}, fmt.Errorf("failed to add experience: %w", err)
	}

	if points > 0 {
		entry := &models.ExperienceEntry{
			SellerID:  sellerID,
			Amount:    points,
			Reason:    reason,
			Reference: reference,
		}
		if err := st.CreateExperienceEntry(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("failed to record experience entry: %w", err)
		}
	}

	return Result{
		SellerID:      sellerID,
		Added:         points,
		Experience:    seller.Experience,
		PreviousLevel: LevelFor(seller.Experience - points),
		Level:         seller.Level,
	}, nil
}

// Invalidator drops derived data that shows seller levels, such as cached rankings.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service exposes experience operations to the API layer.
type Service struct {
	store  store.Store
	cache  Invalidator
	logger *zap.Logger
}

// NewService returns the experience service. cache may be nil.
func NewService(st store.Store, cache Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, cache: cache, logger: logger}
}

// AddExperience awards points in its own transaction.
func (s *Service) AddExperience(ctx context.Context, sellerID uuid.UUID, points int, reason, reference string) (Result, error) {
	var res Result
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		res, err = AddExperience(ctx, tx, sellerID, points, reason, reference)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate ranking cache", zap.String("seller_id", sellerID.String()), zap.Error(err))
		}
	}
	if res.LeveledUp() {
		s.logger.Info("seller leveled up",
			zap.String("seller_id", sellerID.String()),
			zap.Int("level", res.Level),
			zap.Int("experience", res.Experience),
		)
	}
	return res, nil
}

// Progress returns the seller's level progress.
func (s *Service) Progress(ctx context.Context, sellerID uuid.UUID) (Progress, error) {
	seller, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return Progress{}, err
	}
	return ProgressFor(seller.Experience), nil
}

// History lists the most recent experience entries of a seller.
func (s *Service) History(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ExperienceEntry, error) {
	if _, err := s.store.GetSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.store.ListExperienceEntries(ctx, sellerID, limit)
}
