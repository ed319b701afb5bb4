// Package gormstore implements store.Store on Postgres through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

// Sellers

func (s *Store) CreateSeller(ctx context.Context, seller *models.Seller) error {
	if seller.ID == uuid.Nil {
		seller.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Create(seller).Error)
}

func (s *Store) GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := s.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &seller, nil
}

func (s *Store) GetSellerByEmail(ctx context.Context, email string) (*models.Seller, error) {
	var seller models.Seller
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&seller).Error; err != nil {
		return nil, translate(err)
	}
	return &seller, nil
}

func applySellerFilter(q *gorm.DB, f store.SellerFilter) *gorm.DB {
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Department != "" {
		q = q.Where("department ILIKE ?", "%"+f.Department+"%")
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}
	return q
}

func applyPage(q *gorm.DB, p store.Page) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

func (s *Store) ListSellers(ctx context.Context, filter store.SellerFilter, page store.Page) ([]models.Seller, int64, error) {
	q := applySellerFilter(s.db.WithContext(ctx).Model(&models.Seller{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sellers []models.Seller
	if err := applyPage(q.Order("created_at DESC, id"), page).Find(&sellers).Error; err != nil {
		return nil, 0, err
	}
	return sellers, total, nil
}

func (s *Store) UpdateSeller(ctx context.Context, id uuid.UUID, u store.SellerUpdate) (*models.Seller, error) {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Avatar != nil {
		updates["avatar"] = *u.Avatar
	}
	if u.Department != nil {
		updates["department"] = *u.Department
	}
	if u.Position != nil {
		updates["position"] = *u.Position
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.SalesTarget != nil {
		updates["target_daily"] = u.SalesTarget.Daily
		updates["target_weekly"] = u.SalesTarget.Weekly
		updates["target_monthly"] = u.SalesTarget.Monthly
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Seller{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.GetSeller(ctx, id)
}

func (s *Store) DeleteSeller(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seller models.Seller
		if err := tx.First(&seller, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		var sales int64
		if err := tx.Model(&models.Sale{}).Where("seller_id = ?", id).Count(&sales).Error; err != nil {
			return err
		}
		if sales > 0 {
			return store.ErrHasDependents
		}

		if err := tx.Where("seller_id = ?", id).Delete(&models.Achievement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("seller_id = ?", id).Delete(&models.ExperienceEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&seller).Error
	})
}

func (s *Store) AdjustTotalSales(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Seller{}).
		Where("id = ?", id).
		Update("total_sales", gorm.Expr("total_sales + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddExperience(ctx context.Context, id uuid.UUID, points int, level func(int) int) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seller, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		seller.Experience += points
		seller.Level = level(seller.Experience)
		// UpdateColumns skips hooks and validation: only the two columns are written.
		return tx.Model(&models.Seller{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
			"experience": seller.Experience,
			"level":      seller.Level,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Seller{}).Where("id = ?", id).UpdateColumn("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Sales

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Create(sale).Error)
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}

func (s *Store) SaveSale(ctx context.Context, sale *models.Sale) error {
	res := s.db.WithContext(ctx).Model(sale).Select("*").Omit("id", "created_at", "seller_id").Updates(sale)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func applySaleFilter(q *gorm.DB, f store.SaleFilter) *gorm.DB {
	if f.SellerID != nil {
		q = q.Where("seller_id = ?", *f.SellerID)
	}
	if f.Start != nil {
		q = q.Where("sale_date >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("sale_date < ?", *f.End)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", f.ExcludeStatuses)
	}
	if f.Category != "" {
		q = q.Where("product_category = ?", f.Category)
	}
	return q
}

func (s *Store) FindSales(ctx context.Context, filter store.SaleFilter, page store.Page) ([]models.Sale, int64, error) {
	q := applySaleFilter(s.db.WithContext(ctx).Model(&models.Sale{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sales []models.Sale
	if err := applyPage(q.Order("sale_date DESC, created_at DESC"), page).Find(&sales).Error; err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (s *Store) CountDistinctCustomers(ctx context.Context, filter store.SaleFilter) (int64, error) {
	var n int64
	err := applySaleFilter(s.db.WithContext(ctx).Model(&models.Sale{}), filter).
		Select("COUNT(DISTINCT LOWER(COALESCE(NULLIF(customer_email, ''), customer_name)))").
		Scan(&n).Error
	return n, err
}

// groupExpr returns the SQL expression of a grouping key. Date keys are rendered in the
// calendar of the given zone name.
func groupExpr(groupBy store.GroupBy) (string, bool) {
	switch groupBy {
	case store.GroupSeller:
		return "seller_id::text", false
	case store.GroupCategory:
		return "COALESCE(product_category, '')", false
	case store.GroupDay:
		return "to_char(sale_date AT TIME ZONE ?, 'YYYY-MM-DD')", true
	case store.GroupMonth:
		return "to_char(sale_date AT TIME ZONE ?, 'YYYY-MM')", true
	}
	return "''", false
}

// zoneName is the name Postgres receives in AT TIME ZONE. The process-local zone has
// no name the database can resolve.
func zoneName(loc *time.Location) (string, error) {
	if loc == nil {
		return "UTC", nil
	}
	if name := loc.String(); name != "Local" && name != "" {
		return name, nil
	}
	return "", fmt.Errorf("timezone %q cannot be passed to the database, configure an IANA zone name", loc.String())
}

func (s *Store) Aggregate(ctx context.Context, filter store.SaleFilter, groupBy store.GroupBy, loc *time.Location) ([]store.AggregateRow, error) {
	if loc == nil {
		loc = time.UTC
	}
	expr, zoned := groupExpr(groupBy)
	var args []interface{}
	if zoned {
		name, err := zoneName(loc)
		if err != nil {
			return nil, err
		}
		args = append(args, name)
	}

	sel := fmt.Sprintf(`%s AS group_key,
		COUNT(*) AS count,
		COALESCE(SUM(amount), 0) AS total_amount,
		COALESCE(AVG(amount), 0) AS avg_amount,
		COALESCE(SUM(commission_amount), 0) AS total_commission`, expr)

	q := applySaleFilter(s.db.WithContext(ctx).Model(&models.Sale{}), filter).Select(sel, args...)
	if groupBy != store.GroupNone {
		q = q.Group("group_key")
	}

	var rows []store.AggregateRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	// An ungrouped aggregate over no rows still yields one row.
	out := rows[:0]
	for _, r := range rows {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// Achievements

func (s *Store) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func applyAchievementFilter(q *gorm.DB, f store.AchievementFilter) *gorm.DB {
	if f.SellerID != nil {
		q = q.Where("seller_id = ?", *f.SellerID)
	}
	if f.VisibleOnly {
		q = q.Where("is_visible = ?", true)
	}
	if f.EarnedSince != nil {
		q = q.Where("date_earned >= ?", *f.EarnedSince)
	}
	return q
}

func (s *Store) ListAchievements(ctx context.Context, filter store.AchievementFilter, page store.Page) ([]models.Achievement, int64, error) {
	q := applyAchievementFilter(s.db.WithContext(ctx).Model(&models.Achievement{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var achievements []models.Achievement
	if err := applyPage(q.Order("date_earned DESC, created_at DESC"), page).Find(&achievements).Error; err != nil {
		return nil, 0, err
	}
	return achievements, total, nil
}

func (s *Store) CountAchievements(ctx context.Context, filter store.AchievementFilter) (int64, error) {
	var n int64
	err := applyAchievementFilter(s.db.WithContext(ctx).Model(&models.Achievement{}), filter).Count(&n).Error
	return n, err
}

func (s *Store) GroupAchievements(ctx context.Context, filter store.AchievementFilter, groupBy store.AchievementGroupBy, limit int) ([]store.AchievementGroupRow, error) {
	const totals = "COUNT(*) AS count, COALESCE(SUM(experience_points), 0) AS total_experience"

	q := applyAchievementFilter(s.db.WithContext(ctx).Model(&models.Achievement{}), filter)
	switch groupBy {
	case store.AchievementsByRarity:
		q = q.Select("rarity, " + totals).Group("rarity").Order("count DESC, rarity")
	case store.AchievementsByAward:
		q = q.Select("type, level, MIN(name) AS name, MIN(icon) AS icon, MIN(rarity) AS rarity, " + totals).
			Group("type, level").Order("count DESC, type, level")
	case store.AchievementsBySeller:
		q = q.Select("seller_id, " + totals).Group("seller_id").Order("count DESC, seller_id")
	default:
		return nil, fmt.Errorf("unsupported achievement grouping %q", groupBy)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []store.AchievementGroupRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Experience history

func (s *Store) CreateExperienceEntry(ctx context.Context, entry *models.ExperienceEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) ListExperienceEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ExperienceEntry, error) {
	var entries []models.ExperienceEntry
	q := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

var _ store.Store = (*Store)(nil)
