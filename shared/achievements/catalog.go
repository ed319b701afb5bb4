// Package achievements holds the fixed achievement catalog and the rule evaluator that
// awards templates to sellers exactly once.
package achievements

import (
	"strconv"

	"sales-arena/shared/models"
)

// Template is a catalog entry. Templates are static and never persisted.
type Template struct {
	Type             models.AchievementType `json:"type"`
	Level            int                    `json:"level"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	Icon             string                 `json:"icon"`
	Color            string                 `json:"color"`
	Rarity           models.Rarity          `json:"rarity"`
	ExperiencePoints int                    `json:"experience_points"`
	Criteria         models.Criteria        `json:"criteria"`
}

// Key identifies the (type, level) award of the template.
func (t Template) Key() string {
	return awardKey(t.Type, t.Level)
}

func awardKey(t models.AchievementType, level int) string {
	return string(t) + "_" + strconv.Itoa(level)
}

// Achievement builds the earned instance of the template.
func (t Template) Achievement() models.Achievement {
	return models.Achievement{
		Type:             t.Type,
		Level:            t.Level,
		Name:             t.Name,
		Description:      t.Description,
		Icon:             t.Icon,
		Color:            t.Color,
		Rarity:           t.Rarity,
		ExperiencePoints: t.ExperiencePoints,
		Criteria:         t.Criteria,
		IsVisible:        true,
	}
}

var catalog = []Template{
	{
		Type:             models.AchievementFirstSale,
		Level:            1,
		Name:             "First Sale",
		Description:      "Congratulations on your first sale!",
		Icon:             "🎉",
		Color:            "#4CAF50",
		Rarity:           models.RarityCommon,
		ExperiencePoints: 100,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 1, Period: models.PeriodAllTime},
	},

	// Daily goal
	{
		Type:             models.AchievementDailyGoal,
		Level:            1,
		Name:             "Daily Goal Bronze",
		Description:      "Reached the daily sales goal",
		Icon:             "🥉",
		Color:            "#CD7F32",
		Rarity:           models.RarityCommon,
		ExperiencePoints: 50,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 1, Period: models.PeriodDay},
	},
	{
		Type:             models.AchievementDailyGoal,
		Level:            2,
		Name:             "Daily Goal Silver",
		Description:      "Reached the daily goal for 5 consecutive days",
		Icon:             "🥈",
		Color:            "#C0C0C0",
		Rarity:           models.RarityRare,
		ExperiencePoints: 200,
		Criteria:         models.Criteria{Metric: models.MetricDays, Value: 5, Period: models.PeriodAllTime},
	},
	{
		Type:             models.AchievementDailyGoal,
		Level:            3,
		Name:             "Daily Goal Gold",
		Description:      "Reached the daily goal for 10 consecutive days",
		Icon:             "🥇",
		Color:            "#FFD700",
		Rarity:           models.RarityEpic,
		ExperiencePoints: 500,
		Criteria:         models.Criteria{Metric: models.MetricDays, Value: 10, Period: models.PeriodAllTime},
	},

	// Sales volume
	{
		Type:             models.AchievementSalesVolume,
		Level:            1,
		Name:             "Rookie Seller",
		Description:      "Made 10 sales",
		Icon:             "💼",
		Color:            "#2196F3",
		Rarity:           models.RarityCommon,
		ExperiencePoints: 200,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 10, Period: models.PeriodAllTime},
	},
	{
		Type:             models.AchievementSalesVolume,
		Level:            2,
		Name:             "Experienced Seller",
		Description:      "Made 50 sales",
		Icon:             "🏆",
		Color:            "#FF9800",
		Rarity:           models.RarityRare,
		ExperiencePoints: 500,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 50, Period: models.PeriodAllTime},
	},
	{
		Type:             models.AchievementSalesVolume,
		Level:            3,
		Name:             "Master Seller",
		Description:      "Made 100 sales",
		Icon:             "👑",
		Color:            "#9C27B0",
		Rarity:           models.RarityEpic,
		ExperiencePoints: 1000,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 100, Period: models.PeriodAllTime},
	},

	// Top seller, ranked over the previous calendar month
	{
		Type:             models.AchievementTopSeller,
		Level:            1,
		Name:             "Top 5 of the Month",
		Description:      "Finished the month among the 5 best sellers",
		Icon:             "⭐",
		Color:            "#E91E63",
		Rarity:           models.RarityRare,
		ExperiencePoints: 300,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 5, Period: models.PeriodMonth},
	},
	{
		Type:             models.AchievementTopSeller,
		Level:            2,
		Name:             "Seller of the Month",
		Description:      "Finished the month as the best seller",
		Icon:             "🌟",
		Color:            "#FFD700",
		Rarity:           models.RarityLegendary,
		ExperiencePoints: 1000,
		Criteria:         models.Criteria{Metric: models.MetricSales, Value: 1, Period: models.PeriodMonth},
	},
}

// Catalog returns a copy of the templates in evaluation order.
func Catalog() []Template {
	return append([]Template(nil), catalog...)
}
