// Package ledger owns sale records and keeps every seller's total sales equal to the
// sum of their non-cancelled sale amounts.
package ledger

import (
	"context"
	"fmt"
	"time"

	"sales-arena/shared/events"
	"sales-arena/shared/locks"
	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Invalidator drops derived data that depends on sales, such as cached rankings.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Config struct {
	Store     store.Store
	Locks     *locks.KeyedMutex[uuid.UUID]
	Publisher events.Publisher
	Cache     Invalidator
	Logger    *zap.Logger
	Now       func() time.Time
}

type Ledger struct {
	store     store.Store
	locks     *locks.KeyedMutex[uuid.UUID]
	publisher events.Publisher
	cache     Invalidator
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg Config) *Ledger {
	l := &Ledger{
		store:     cfg.Store,
		locks:     cfg.Locks,
		publisher: cfg.Publisher,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if l.locks == nil {
		l.locks = locks.New[uuid.UUID]()
	}
	if l.publisher == nil {
		l.publisher = events.NopPublisher{}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// SaleEvent is the payload of sale events. Delta is the change applied to the
// seller's total sales.
type SaleEvent struct {
	Sale  *models.Sale    `json:"sale"`
	Delta decimal.Decimal `json:"total_sales_delta"`
}

// RecordSale validates and stores a new sale for the seller and adds its amount to the
// seller's total unless the sale is cancelled.
func (l *Ledger) RecordSale(ctx context.Context, sellerID uuid.UUID, in SaleInput) (*models.Sale, error) {
	now := l.now()
	sale := in.build(now)
	sale.SellerID = sellerID
	if err := validate(sale, now); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(sellerID)
	defer unlock()

	delta := contribution(sale)
	err := l.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetSeller(ctx, sellerID); err != nil {
			return fmt.Errorf("seller %s: %w", sellerID, err)
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		if delta.IsZero() {
			return nil
		}
		return tx.AdjustTotalSales(ctx, sellerID, delta)
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, events.SaleRecorded, sale, delta)
	return sale, nil
}

// UpdateSale applies a patch, recomputes the commission and reconciles the seller's
// total with a single adjustment of new contribution minus old contribution.
func (l *Ledger) UpdateSale(ctx context.Context, saleID uuid.UUID, patch SalePatch) (*models.Sale, error) {
	current, err := l.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(current.SellerID)
	defer unlock()

	var (
		sale  *models.Sale
		delta decimal.Decimal
	)
	err = l.store.Transaction(ctx, func(tx store.Store) error {
		old, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		before := contribution(old)

		sale = old
		patch.apply(sale)
		if err := validate(sale, l.now()); err != nil {
			return err
		}

		if err := tx.SaveSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to save sale: %w", err)
		}
		delta = contribution(sale).Sub(before)
		if delta.IsZero() {
			return nil
		}
		return tx.AdjustTotalSales(ctx, sale.SellerID, delta)
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, events.SaleUpdated, sale, delta)
	return sale, nil
}

// DeleteSale removes a sale and reverses its contribution to the seller's total.
func (l *Ledger) DeleteSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	current, err := l.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(current.SellerID)
	defer unlock()

	var (
		sale  *models.Sale
		delta decimal.Decimal
	)
	err = l.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, saleID); err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		delta = contribution(sale).Neg()
		if delta.IsZero() {
			return nil
		}
		return tx.AdjustTotalSales(ctx, sale.SellerID, delta)
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, events.SaleDeleted, sale, delta)
	return sale, nil
}

func (l *Ledger) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return l.store.GetSale(ctx, saleID)
}

// ListSales lists sales newest first.
func (l *Ledger) ListSales(ctx context.Context, filter store.SaleFilter, page store.Page) ([]models.Sale, int64, error) {
	return l.store.FindSales(ctx, filter, page)
}

// afterCommit runs the best-effort follow-ups of a committed mutation.
func (l *Ledger) afterCommit(ctx context.Context, eventType string, sale *models.Sale, delta decimal.Decimal) {
	log := l.logger.With(
		zap.String("event", eventType),
		zap.String("sale_id", sale.ID.String()),
		zap.String("seller_id", sale.SellerID.String()),
	)

	if l.cache != nil {
		if err := l.cache.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate ranking cache", zap.Error(err))
		}
	}

	err := l.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		Key:        sale.SellerID.String(),
		OccurredAt: l.now(),
		Payload:    SaleEvent{Sale: sale, Delta: delta},
	})
	if err != nil {
		log.Warn("failed to publish sale event", zap.Error(err))
	}

	log.Debug("sale committed", zap.String("total_sales_delta", delta.String()))
}
