package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/events"
	"sales-arena/shared/leveling"
	"sales-arena/shared/locks"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Context carries caller-computed facts the evaluator does not derive itself.
type Context struct {
	// DailyGoalMet decides day-scoped templates.
	DailyGoalMet bool `json:"daily_goal_met"`
	// GoalStreakDays is the number of consecutive days, ending today, the daily goal was met.
	GoalStreakDays int `json:"goal_streak_days"`
}

type Config struct {
	Store       store.Store
	Aggregation *aggregation.Engine
	Locks       *locks.KeyedMutex[uuid.UUID]
	Publisher   events.Publisher
	// Cache is invalidated after awards change seller levels. Optional.
	Cache  leveling.Invalidator
	Logger *zap.Logger
	Now    func() time.Time
}

type Evaluator struct {
	store     store.Store
	agg       *aggregation.Engine
	locks     *locks.KeyedMutex[uuid.UUID]
	publisher events.Publisher
	cache     leveling.Invalidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{
		store:     cfg.Store,
		agg:       cfg.Aggregation,
		locks:     cfg.Locks,
		publisher: cfg.Publisher,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if e.agg == nil {
		e.agg = aggregation.New(cfg.Store, time.UTC)
	}
	if e.locks == nil {
		e.locks = locks.New[uuid.UUID]()
	}
	if e.publisher == nil {
		e.publisher = events.NopPublisher{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// AwardEvent is the payload of achievement.awarded events.
type AwardEvent struct {
	Achievement models.Achievement `json:"achievement"`
	Level       int                `json:"seller_level"`
	Experience  int                `json:"seller_experience"`
}

// Evaluate awards every catalog template the seller satisfies and has not earned yet,
// in catalog order, and returns the new achievements. An empty result is normal.
// Each award and its experience reward are written in one transaction; the unique
// (seller, type, level) constraint turns a concurrent duplicate into a skip.
func (e *Evaluator) Evaluate(ctx context.Context, sellerID uuid.UUID, c Context) ([]models.Achievement, error) {
	unlock := e.locks.Lock(sellerID)
	defer unlock()

	seller, err := e.store.GetSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	earned, err := e.earnedKeys(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	facts := &facts{eval: e, seller: seller, c: c, now: e.now()}
	awarded := []models.Achievement{}
	defer func() {
		if len(awarded) > 0 {
			e.invalidate(ctx, sellerID)
		}
	}()

	for _, t := range catalog {
		if earned[t.Key()] {
			continue
		}

		ok, err := facts.satisfies(ctx, t)
		if err != nil {
			return awarded, fmt.Errorf("failed to evaluate %s level %d: %w", t.Type, t.Level, err)
		}
		if !ok {
			continue
		}

		a, res, err := e.award(ctx, sellerID, t, facts.now)
		if errors.Is(err, store.ErrDuplicate) {
			earned[t.Key()] = true
			continue
		}
		if err != nil {
			return awarded, err
		}

		earned[t.Key()] = true
		facts.seller.Experience = res.Experience
		facts.seller.Level = res.Level
		awarded = append(awarded, a)
		e.announce(ctx, a, res)
	}

	return awarded, nil
}

func (e *Evaluator) invalidate(ctx context.Context, sellerID uuid.UUID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn("failed to invalidate ranking cache", zap.String("seller_id", sellerID.String()), zap.Error(err))
	}
}

func (e *Evaluator) earnedKeys(ctx context.Context, sellerID uuid.UUID) (map[string]bool, error) {
	list, _, err := e.store.ListAchievements(ctx, store.AchievementFilter{SellerID: &sellerID}, store.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	keys := make(map[string]bool, len(list))
	for _, a := range list {
		keys[awardKey(a.Type, a.Level)] = true
	}
	return keys, nil
}

func (e *Evaluator) award(ctx context.Context, sellerID uuid.UUID, t Template, at time.Time) (models.Achievement, leveling.Result, error) {
	a := t.Achievement()
	a.SellerID = sellerID
	a.DateEarned = at

	var res leveling.Result
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateAchievement(ctx, &a); err != nil {
			return err
		}
		var err error
		res, err = leveling.AddExperience(ctx, tx, sellerID, t.ExperiencePoints, "Achievement: "+t.Name, a.ID.String())
		return err
	})
	return a, res, err
}

func (e *Evaluator) announce(ctx context.Context, a models.Achievement, res leveling.Result) {
	log := e.logger.With(
		zap.String("seller_id", a.SellerID.String()),
		zap.String("type", string(a.Type)),
		zap.Int("level", a.Level),
	)
	log.Info("achievement awarded", zap.Int("experience_points", a.ExperiencePoints), zap.Int("seller_level", res.Level))

	err := e.publisher.Publish(ctx, events.Event{
		Type:       events.AchievementAwarded,
		Key:        a.SellerID.String(),
		OccurredAt: a.DateEarned,
		Payload:    AwardEvent{Achievement: a, Level: res.Level, Experience: res.Experience},
	})
	if err != nil {
		log.Warn("failed to publish achievement event", zap.Error(err))
	}
}

// facts lazily computes the seller metrics templates are checked against.
type facts struct {
	eval   *Evaluator
	seller *models.Seller
	c      Context
	now    time.Time

	totals    map[models.Period]*store.AggregateRow
	customers map[models.Period]*int64
	position  *int
}

func (f *facts) satisfies(ctx context.Context, t Template) (bool, error) {
	cr := t.Criteria

	if t.Type == models.AchievementTopSeller {
		pos, err := f.monthPosition(ctx)
		if err != nil {
			return false, err
		}
		return pos > 0 && pos <= cr.Value, nil
	}

	switch cr.Metric {
	case models.MetricSales:
		if cr.Period == models.PeriodDay {
			return f.c.DailyGoalMet, nil
		}
		row, err := f.total(ctx, cr.Period)
		if err != nil {
			return false, err
		}
		return row.Count >= int64(cr.Value), nil
	case models.MetricAmount:
		row, err := f.total(ctx, cr.Period)
		if err != nil {
			return false, err
		}
		return row.TotalAmount.GreaterThanOrEqual(decimal.NewFromInt(int64(cr.Value))), nil
	case models.MetricCustomers:
		n, err := f.distinctCustomers(ctx, cr.Period)
		if err != nil {
			return false, err
		}
		return n >= int64(cr.Value), nil
	case models.MetricDays:
		return f.c.GoalStreakDays >= cr.Value, nil
	case models.MetricLevel:
		return f.seller.Level >= cr.Value, nil
	}
	return false, nil
}

func (f *facts) window(p models.Period) (aggregation.Window, error) {
	return aggregation.PeriodWindow(p, f.now, f.eval.agg.Location())
}

func (f *facts) total(ctx context.Context, p models.Period) (store.AggregateRow, error) {
	if row, ok := f.totals[p]; ok {
		return *row, nil
	}
	w, err := f.window(p)
	if err != nil {
		return store.AggregateRow{}, err
	}
	row, err := f.eval.agg.Totals(ctx, w.Apply(store.SaleFilter{SellerID: &f.seller.ID}))
	if err != nil {
		return store.AggregateRow{}, err
	}
	if f.totals == nil {
		f.totals = map[models.Period]*store.AggregateRow{}
	}
	f.totals[p] = &row
	return row, nil
}

func (f *facts) distinctCustomers(ctx context.Context, p models.Period) (int64, error) {
	if n, ok := f.customers[p]; ok {
		return *n, nil
	}
	w, err := f.window(p)
	if err != nil {
		return 0, err
	}
	filter := w.Apply(store.SaleFilter{
		SellerID:        &f.seller.ID,
		ExcludeStatuses: []models.SaleStatus{models.SaleCancelled},
	})
	n, err := f.eval.store.CountDistinctCustomers(ctx, filter)
	if err != nil {
		return 0, err
	}
	if f.customers == nil {
		f.customers = map[models.Period]*int64{}
	}
	f.customers[p] = &n
	return n, nil
}

// monthPosition is the seller's 1-based position in the ranking of the previous
// calendar month, or 0 when the seller sold nothing that month.
func (f *facts) monthPosition(ctx context.Context) (int, error) {
	if f.position != nil {
		return *f.position, nil
	}
	w := aggregation.PreviousMonthWindow(f.now, f.eval.agg.Location())
	rows, err := f.eval.agg.Rows(ctx, aggregation.Query{
		Filter:  w.Apply(store.SaleFilter{}),
		GroupBy: store.GroupSeller,
	})
	if err != nil {
		return 0, err
	}
	pos := 0
	for i, r := range rows {
		if r.Key == f.seller.ID.String() {
			pos = i + 1
			break
		}
	}
	f.position = &pos
	return pos, nil
}
