package routes

import (
	"sales-arena/services/sales/handlers"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"

	"github.com/gofiber/fiber/v2"
)

func SetupSalesRoutes(api fiber.Router, salesHandler *handlers.SalesHandler, auth fiber.Handler) {
	sales := api.Group("/sales", auth)

	// Read models
	sales.Get("/ranking", salesHandler.Ranking)
	sales.Get("/aggregate", salesHandler.Aggregate)
	sales.Get("/daily-goal/:sellerId", salesHandler.DailyGoal)

	// Ledger
	sales.Post("/", salesHandler.CreateSale)
	sales.Get("/", salesHandler.ListSales)
	sales.Get("/:id", salesHandler.GetSale)
	sales.Put("/:id", salesHandler.UpdateSale)
	sales.Delete("/:id", middleware.RoleMiddleware(models.RoleAdmin), salesHandler.DeleteSale)
}
