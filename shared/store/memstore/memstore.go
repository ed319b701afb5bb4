// Package memstore is an in-memory store.Store used for demo mode and tests.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type data struct {
	sellers      map[uuid.UUID]models.Seller
	sales        map[uuid.UUID]models.Sale
	achievements map[uuid.UUID]models.Achievement
	awards       map[string]uuid.UUID
	experience   []models.ExperienceEntry
	// seq orders records by insertion for stable listings.
	seq map[uuid.UUID]int64
	n   int64
}

func newData() *data {
	return &data{
		sellers:      map[uuid.UUID]models.Seller{},
		sales:        map[uuid.UUID]models.Sale{},
		achievements: map[uuid.UUID]models.Achievement{},
		awards:       map[string]uuid.UUID{},
		seq:          map[uuid.UUID]int64{},
	}
}

// Store keeps every record in maps guarded by a mutex. Transactions are serialized
// with each other and journal the prior state of every record they write, so a
// rollback restores only what the transaction touched.
type Store struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	d    **data
	now  func() time.Time
	j    *journal
}

// New returns an empty store.
func New() *Store {
	d := newData()
	return &Store{mu: &sync.RWMutex{}, txMu: &sync.Mutex{}, d: &d, now: time.Now}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	if s.j != nil {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &Store{mu: s.mu, txMu: s.txMu, d: s.d, now: s.now, j: newJournal()}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		tx.j.rollback(*s.d)
		s.mu.Unlock()
		return err
	}
	return nil
}

// journal holds the value each record had before a transaction first wrote it.
// A nil entry means the record did not exist.
type journal struct {
	sellers      map[uuid.UUID]*models.Seller
	sales        map[uuid.UUID]*models.Sale
	achievements map[uuid.UUID]*models.Achievement
	awards       map[string]*uuid.UUID
	expAdded     map[uuid.UUID]bool
	expRemoved   []models.ExperienceEntry
}

func newJournal() *journal {
	return &journal{
		sellers:      map[uuid.UUID]*models.Seller{},
		sales:        map[uuid.UUID]*models.Sale{},
		achievements: map[uuid.UUID]*models.Achievement{},
		awards:       map[string]*uuid.UUID{},
		expAdded:     map[uuid.UUID]bool{},
	}
}

func remember[K comparable, V any](saved map[K]*V, current map[K]V, key K) {
	if _, seen := saved[key]; seen {
		return
	}
	if v, ok := current[key]; ok {
		saved[key] = &v
		return
	}
	saved[key] = nil
}

func restore[K comparable, V any](saved map[K]*V, current map[K]V) {
	for k, v := range saved {
		if v == nil {
			delete(current, k)
		} else {
			current[k] = *v
		}
	}
}

func (j *journal) seller(d *data, id uuid.UUID) {
	if j != nil {
		remember(j.sellers, d.sellers, id)
	}
}

func (j *journal) sale(d *data, id uuid.UUID) {
	if j != nil {
		remember(j.sales, d.sales, id)
	}
}

func (j *journal) achievement(d *data, id uuid.UUID, key string) {
	if j != nil {
		remember(j.achievements, d.achievements, id)
		remember(j.awards, d.awards, key)
	}
}

func (j *journal) rollback(d *data) {
	restore(j.sellers, d.sellers)
	restore(j.sales, d.sales)
	restore(j.achievements, d.achievements)
	restore(j.awards, d.awards)

	if len(j.expAdded) == 0 && len(j.expRemoved) == 0 {
		return
	}
	kept := make([]models.ExperienceEntry, 0, len(d.experience)+len(j.expRemoved))
	for _, e := range d.experience {
		if !j.expAdded[e.ID] {
			kept = append(kept, e)
		}
	}
	kept = append(kept, j.expRemoved...)
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].CreatedAt.Before(kept[b].CreatedAt) })
	d.experience = kept
}

func (s *Store) stamp(base *models.BaseModel, id uuid.UUID) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = id
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func (d *data) track(id uuid.UUID) {
	d.n++
	d.seq[id] = d.n
}

func copySale(sale models.Sale) models.Sale {
	sale.Tags = append([]string(nil), sale.Tags...)
	return sale
}

// Sellers

func (s *Store) CreateSeller(ctx context.Context, seller *models.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	email := strings.ToLower(seller.Email)
	for _, existing := range d.sellers {
		if strings.ToLower(existing.Email) == email {
			return store.ErrDuplicate
		}
	}
	s.stamp(&seller.BaseModel, uuid.New())
	if seller.Level == 0 {
		seller.Level = 1
	}
	s.j.seller(d, seller.ID)
	d.sellers[seller.ID] = *seller
	d.track(seller.ID)
	return nil
}

func (s *Store) GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seller, ok := (*s.d).sellers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &seller, nil
}

func (s *Store) GetSellerByEmail(ctx context.Context, email string) (*models.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, seller := range (*s.d).sellers {
		if strings.EqualFold(seller.Email, email) {
			return &seller, nil
		}
	}
	return nil, store.ErrNotFound
}

func matchSeller(seller models.Seller, f store.SellerFilter) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == seller.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Role != "" && seller.Role != f.Role {
		return false
	}
	if f.Department != "" && !strings.Contains(strings.ToLower(seller.Department), strings.ToLower(f.Department)) {
		return false
	}
	if f.IsActive != nil && seller.IsActive != *f.IsActive {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(seller.Name), q) && !strings.Contains(strings.ToLower(seller.Email), q) {
			return false
		}
	}
	return true
}

func (s *Store) ListSellers(ctx context.Context, filter store.SellerFilter, page store.Page) ([]models.Seller, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := *s.d

	var out []models.Seller
	for _, seller := range d.sellers {
		if matchSeller(seller, filter) {
			out = append(out, seller)
		}
	}
	// Newest first, like the SQL store.
	sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] > d.seq[out[j].ID] })
	total := int64(len(out))
	return paginate(out, page), total, nil
}

func (s *Store) UpdateSeller(ctx context.Context, id uuid.UUID, u store.SellerUpdate) (*models.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	seller, ok := d.sellers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Name != nil {
		seller.Name = *u.Name
	}
	if u.Avatar != nil {
		seller.Avatar = *u.Avatar
	}
	if u.Department != nil {
		seller.Department = *u.Department
	}
	if u.Position != nil {
		seller.Position = *u.Position
	}
	if u.Role != nil {
		seller.Role = *u.Role
	}
	if u.IsActive != nil {
		seller.IsActive = *u.IsActive
	}
	if u.SalesTarget != nil {
		seller.SalesTarget = *u.SalesTarget
	}
	if u.PasswordHash != nil {
		seller.PasswordHash = *u.PasswordHash
	}
	seller.UpdatedAt = s.now()
	s.j.seller(d, id)
	d.sellers[id] = seller
	return &seller, nil
}

func (s *Store) DeleteSeller(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	if _, ok := d.sellers[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range d.sales {
		if sale.SellerID == id {
			return store.ErrHasDependents
		}
	}
	for aid, a := range d.achievements {
		if a.SellerID == id {
			s.j.achievement(d, aid, awardKey(a.SellerID, a.Type, a.Level))
			delete(d.awards, awardKey(a.SellerID, a.Type, a.Level))
			delete(d.achievements, aid)
		}
	}
	kept := d.experience[:0]
	for _, e := range d.experience {
		if e.SellerID != id {
			kept = append(kept, e)
		} else if s.j != nil {
			s.j.expRemoved = append(s.j.expRemoved, e)
		}
	}
	d.experience = kept
	s.j.seller(d, id)
	delete(d.sellers, id)
	return nil
}

func (s *Store) AdjustTotalSales(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	seller, ok := d.sellers[id]
	if !ok {
		return store.ErrNotFound
	}
	seller.TotalSales = seller.TotalSales.Add(delta)
	s.j.seller(d, id)
	d.sellers[id] = seller
	return nil
}

func (s *Store) AddExperience(ctx context.Context, id uuid.UUID, points int, level func(int) int) (*models.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	seller, ok := d.sellers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	seller.Experience += points
	seller.Level = level(seller.Experience)
	s.j.seller(d, id)
	d.sellers[id] = seller
	return &seller, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	seller, ok := d.sellers[id]
	if !ok {
		return store.ErrNotFound
	}
	seller.LastLoginAt = &at
	s.j.seller(d, id)
	d.sellers[id] = seller
	return nil
}

// Sales

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	if _, ok := d.sellers[sale.SellerID]; !ok {
		return store.ErrNotFound
	}
	s.stamp(&sale.BaseModel, uuid.New())
	s.j.sale(d, sale.ID)
	d.sales[sale.ID] = copySale(*sale)
	d.track(sale.ID)
	return nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := (*s.d).sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale = copySale(sale)
	return &sale, nil
}

func (s *Store) SaveSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	if _, ok := d.sales[sale.ID]; !ok {
		return store.ErrNotFound
	}
	sale.UpdatedAt = s.now()
	s.j.sale(d, sale.ID)
	d.sales[sale.ID] = copySale(*sale)
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	if _, ok := d.sales[id]; !ok {
		return store.ErrNotFound
	}
	s.j.sale(d, id)
	delete(d.sales, id)
	return nil
}

func containsStatus(list []models.SaleStatus, status models.SaleStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func matchSale(sale models.Sale, f store.SaleFilter) bool {
	if f.SellerID != nil && sale.SellerID != *f.SellerID {
		return false
	}
	if f.Start != nil && sale.SaleDate.Before(*f.Start) {
		return false
	}
	if f.End != nil && !sale.SaleDate.Before(*f.End) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, sale.Status) {
		return false
	}
	if containsStatus(f.ExcludeStatuses, sale.Status) {
		return false
	}
	if f.Category != "" && sale.Product.Category != f.Category {
		return false
	}
	return true
}

func (s *Store) filterSales(f store.SaleFilter) []models.Sale {
	d := *s.d
	var out []models.Sale
	for _, sale := range d.sales {
		if matchSale(sale, f) {
			out = append(out, copySale(sale))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SaleDate.Equal(out[j].SaleDate) {
			return out[i].SaleDate.After(out[j].SaleDate)
		}
		return d.seq[out[i].ID] > d.seq[out[j].ID]
	})
	return out
}

func (s *Store) FindSales(ctx context.Context, filter store.SaleFilter, page store.Page) ([]models.Sale, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterSales(filter)
	total := int64(len(out))
	return paginate(out, page), total, nil
}

func (s *Store) CountDistinctCustomers(ctx context.Context, filter store.SaleFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, sale := range s.filterSales(filter) {
		key := strings.ToLower(sale.Customer.Email)
		if key == "" {
			key = strings.ToLower(sale.Customer.Name)
		}
		seen[key] = struct{}{}
	}
	return int64(len(seen)), nil
}

func groupKey(sale models.Sale, groupBy store.GroupBy, loc *time.Location) string {
	switch groupBy {
	case store.GroupSeller:
		return sale.SellerID.String()
	case store.GroupCategory:
		return sale.Product.Category
	case store.GroupDay:
		return sale.SaleDate.In(loc).Format(store.DayKeyLayout)
	case store.GroupMonth:
		return sale.SaleDate.In(loc).Format(store.MonthKeyLayout)
	}
	return ""
}

func (s *Store) Aggregate(ctx context.Context, filter store.SaleFilter, groupBy store.GroupBy, loc *time.Location) ([]store.AggregateRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if loc == nil {
		loc = time.UTC
	}
	groups := map[string]*store.AggregateRow{}
	var order []string
	for _, sale := range s.filterSales(filter) {
		key := groupKey(sale, groupBy, loc)
		row, ok := groups[key]
		if !ok {
			row = &store.AggregateRow{Key: key}
			groups[key] = row
			order = append(order, key)
		}
		row.Count++
		row.TotalAmount = row.TotalAmount.Add(sale.Amount)
		row.TotalCommission = row.TotalCommission.Add(sale.Commission.Amount)
	}

	rows := make([]store.AggregateRow, 0, len(order))
	for _, key := range order {
		row := groups[key]
		row.AvgAmount = row.TotalAmount.Div(decimal.NewFromInt(row.Count))
		rows = append(rows, *row)
	}
	return rows, nil
}

// Achievements

func awardKey(sellerID uuid.UUID, t models.AchievementType, level int) string {
	return sellerID.String() + "|" + string(t) + "|" + strconv.Itoa(level)
}

func (s *Store) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	if _, ok := d.sellers[a.SellerID]; !ok {
		return store.ErrNotFound
	}
	key := awardKey(a.SellerID, a.Type, a.Level)
	if _, exists := d.awards[key]; exists {
		return store.ErrDuplicate
	}
	s.stamp(&a.BaseModel, uuid.New())
	s.j.achievement(d, a.ID, key)
	d.achievements[a.ID] = *a
	d.awards[key] = a.ID
	d.track(a.ID)
	return nil
}

func matchAchievement(a models.Achievement, f store.AchievementFilter) bool {
	if f.SellerID != nil && a.SellerID != *f.SellerID {
		return false
	}
	if f.VisibleOnly && !a.IsVisible {
		return false
	}
	if f.EarnedSince != nil && a.DateEarned.Before(*f.EarnedSince) {
		return false
	}
	return true
}

func (s *Store) filterAchievements(f store.AchievementFilter) []models.Achievement {
	d := *s.d
	var out []models.Achievement
	for _, a := range d.achievements {
		if matchAchievement(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateEarned.Equal(out[j].DateEarned) {
			return out[i].DateEarned.After(out[j].DateEarned)
		}
		return d.seq[out[i].ID] > d.seq[out[j].ID]
	})
	return out
}

func (s *Store) ListAchievements(ctx context.Context, filter store.AchievementFilter, page store.Page) ([]models.Achievement, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterAchievements(filter)
	total := int64(len(out))
	return paginate(out, page), total, nil
}

func (s *Store) CountAchievements(ctx context.Context, filter store.AchievementFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.filterAchievements(filter))), nil
}

func (s *Store) GroupAchievements(ctx context.Context, filter store.AchievementFilter, groupBy store.AchievementGroupBy, limit int) ([]store.AchievementGroupRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := map[string]*store.AchievementGroupRow{}
	for _, a := range s.filterAchievements(filter) {
		var key string
		row := store.AchievementGroupRow{}
		switch groupBy {
		case store.AchievementsByRarity:
			key = string(a.Rarity)
			row.Rarity = a.Rarity
		case store.AchievementsByAward:
			key = string(a.Type) + "|" + strconv.Itoa(a.Level)
			row.Type, row.Level, row.Name, row.Icon, row.Rarity = a.Type, a.Level, a.Name, a.Icon, a.Rarity
		case store.AchievementsBySeller:
			key = a.SellerID.String()
			row.SellerID = a.SellerID
		}
		g, ok := groups[key]
		if !ok {
			g = &row
			groups[key] = g
		}
		g.Count++
		g.TotalExperience += int64(a.ExperiencePoints)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := groups[keys[i]], groups[keys[j]]
		if gi.Count != gj.Count {
			return gi.Count > gj.Count
		}
		return keys[i] < keys[j]
	})

	rows := make([]store.AchievementGroupRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, *groups[k])
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Experience history

func (s *Store) CreateExperienceEntry(ctx context.Context, entry *models.ExperienceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.d

	s.stamp(&entry.BaseModel, uuid.New())
	if s.j != nil {
		s.j.expAdded[entry.ID] = true
	}
	d.experience = append(d.experience, *entry)
	return nil
}

func (s *Store) ListExperienceEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ExperienceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := *s.d

	var out []models.ExperienceEntry
	for i := len(d.experience) - 1; i >= 0; i-- {
		if d.experience[i].SellerID == sellerID {
			out = append(out, d.experience[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func paginate[T any](items []T, page store.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return items
}

var _ store.Store = (*Store)(nil)
