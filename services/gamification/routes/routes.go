package routes

import (
	"sales-arena/services/gamification/handlers"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"

	"github.com/gofiber/fiber/v2"
)

func SetupGamificationRoutes(api fiber.Router, gamificationHandler *handlers.GamificationHandler, auth fiber.Handler) {
	gamify := api.Group("/gamify", auth)
	admin := middleware.RoleMiddleware(models.RoleAdmin)

	// Achievement routes
	gamify.Get("/achievements/available", gamificationHandler.GetAvailableAchievements)
	gamify.Get("/achievements/stats", admin, gamificationHandler.GetAchievementStats)
	gamify.Get("/achievements/:sellerId", gamificationHandler.GetSellerAchievements)
	gamify.Get("/achievements/:sellerId/recent", gamificationHandler.GetRecentAchievements)
	gamify.Post("/achievements/:sellerId/check", admin, gamificationHandler.CheckAchievements)

	// Experience routes
	gamify.Get("/experience/:sellerId", gamificationHandler.GetExperience)
	gamify.Post("/experience", admin, gamificationHandler.AddExperience)

	// Leaderboard and dashboard routes
	gamify.Get("/leaderboard", gamificationHandler.GetLeaderboard)
	gamify.Get("/dashboard/overview", gamificationHandler.GetOverview)
	gamify.Get("/dashboard/chart", gamificationHandler.GetSalesChart)
	gamify.Get("/dashboard/categories", gamificationHandler.GetSalesByCategory)
	gamify.Get("/dashboard/performance", gamificationHandler.GetPerformance)

	// Goal routes
	gamify.Post("/goals/simulate", gamificationHandler.SimulateGoal)
}
