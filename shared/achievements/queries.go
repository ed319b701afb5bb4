package achievements

import (
	"context"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/google/uuid"
)

// Queries serves the read side of achievements.
type Queries struct {
	store store.Store
}

func NewQueries(st store.Store) *Queries {
	return &Queries{store: st}
}

// Available is a catalog template, flagged when the requested seller earned it.
type Available struct {
	Template
	Earned *bool `json:"earned,omitempty"`
}

// ListAvailable returns the full catalog. With a seller id every entry carries Earned.
func (q *Queries) ListAvailable(ctx context.Context, sellerID *uuid.UUID) ([]Available, error) {
	var earned map[string]bool
	if sellerID != nil {
		if _, err := q.store.GetSeller(ctx, *sellerID); err != nil {
			return nil, err
		}
		list, _, err := q.store.ListAchievements(ctx, store.AchievementFilter{SellerID: sellerID}, store.Page{})
		if err != nil {
			return nil, err
		}
		earned = make(map[string]bool, len(list))
		for _, a := range list {
			earned[awardKey(a.Type, a.Level)] = true
		}
	}

	out := make([]Available, 0, len(catalog))
	for _, t := range catalog {
		entry := Available{Template: t}
		if earned != nil {
			flag := earned[t.Key()]
			entry.Earned = &flag
		}
		out = append(out, entry)
	}
	return out, nil
}

type SellerStats struct {
	Total           int64                   `json:"total"`
	TotalExperience int64                   `json:"total_experience"`
	ByRarity        map[models.Rarity]int64 `json:"by_rarity"`
}

type SellerAchievements struct {
	Achievements []models.Achievement `json:"achievements"`
	Total        int64                `json:"total"`
	Stats        SellerStats          `json:"stats"`
}

// List returns a page of the seller's visible achievements, newest first, with
// per-rarity statistics over all of them.
func (q *Queries) List(ctx context.Context, sellerID uuid.UUID, page store.Page) (*SellerAchievements, error) {
	if _, err := q.store.GetSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	filter := store.AchievementFilter{SellerID: &sellerID, VisibleOnly: true}

	list, total, err := q.store.ListAchievements(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	rows, err := q.store.GroupAchievements(ctx, filter, store.AchievementsByRarity, 0)
	if err != nil {
		return nil, err
	}

	stats := SellerStats{Total: total, ByRarity: map[models.Rarity]int64{}}
	for _, r := range models.Rarities {
		stats.ByRarity[r] = 0
	}
	for _, r := range rows {
		stats.ByRarity[r.Rarity] = r.Count
		stats.TotalExperience += r.TotalExperience
	}

	if list == nil {
		list = []models.Achievement{}
	}
	return &SellerAchievements{Achievements: list, Total: total, Stats: stats}, nil
}

// Recent returns the seller's latest visible achievements.
func (q *Queries) Recent(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Achievement, error) {
	if limit <= 0 {
		limit = 5
	}
	list, _, err := q.store.ListAchievements(ctx, store.AchievementFilter{SellerID: &sellerID, VisibleOnly: true}, store.Page{Limit: limit})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Achievement{}
	}
	return list, nil
}

type SellerSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar,omitempty"`
	Department string    `json:"department"`
}

type TopAchiever struct {
	Seller           SellerSummary `json:"seller"`
	AchievementCount int64         `json:"achievement_count"`
	TotalExperience  int64         `json:"total_experience"`
}

type GlobalStats struct {
	TotalAchievements int64                       `json:"total_achievements"`
	ActiveUsers       int64                       `json:"active_users"`
	AveragePerUser    float64                     `json:"average_achievements_per_user"`
	ByRarity          []store.AchievementGroupRow `json:"by_rarity"`
	Popular           []store.AchievementGroupRow `json:"popular"`
	TopAchievers      []TopAchiever               `json:"top_achievers"`
}

const statsLimit = 10

// Stats returns the global achievement statistics.
func (q *Queries) Stats(ctx context.Context) (*GlobalStats, error) {
	all := store.AchievementFilter{}
	total, err := q.store.CountAchievements(ctx, all)
	if err != nil {
		return nil, err
	}
	active := true
	_, users, err := q.store.ListSellers(ctx, store.SellerFilter{IsActive: &active}, store.Page{Limit: 1})
	if err != nil {
		return nil, err
	}

	byRarity, err := q.store.GroupAchievements(ctx, all, store.AchievementsByRarity, 0)
	if err != nil {
		return nil, err
	}
	popular, err := q.store.GroupAchievements(ctx, all, store.AchievementsByAward, statsLimit)
	if err != nil {
		return nil, err
	}
	bySeller, err := q.store.GroupAchievements(ctx, all, store.AchievementsBySeller, statsLimit)
	if err != nil {
		return nil, err
	}

	stats := &GlobalStats{
		TotalAchievements: total,
		ActiveUsers:       users,
		ByRarity:          byRarity,
		Popular:           popular,
		TopAchievers:      []TopAchiever{},
	}
	if users > 0 {
		stats.AveragePerUser = float64(total) / float64(users)
	}

	for _, row := range bySeller {
		seller, err := q.store.GetSeller(ctx, row.SellerID)
		if err != nil {
			// Deleted sellers take their achievements with them.
			continue
		}
		stats.TopAchievers = append(stats.TopAchievers, TopAchiever{
			Seller: SellerSummary{
				ID:         seller.ID,
				Name:       seller.Name,
				Email:      seller.Email,
				Avatar:     seller.Avatar,
				Department: seller.Department,
			},
			AchievementCount: row.Count,
			TotalExperience:  row.TotalExperience,
		})
	}
	return stats, nil
}
