package routes

import (
	"sales-arena/services/user/handlers"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(api fiber.Router, userHandler *handlers.UserHandler, auth fiber.Handler) {
	users := api.Group("/users", auth)
	admin := middleware.RoleMiddleware(models.RoleAdmin)

	users.Get("/", admin, userHandler.ListSellers)
	users.Post("/", admin, userHandler.CreateSeller)
	users.Get("/:id", userHandler.GetSeller)
	users.Put("/:id", userHandler.UpdateSeller)
	users.Get("/:id/progress", userHandler.GetProgress)
	users.Patch("/:id/deactivate", admin, userHandler.DeactivateSeller)
	users.Delete("/:id", admin, userHandler.DeleteSeller)
}
