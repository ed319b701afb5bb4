package routes

import (
	"sales-arena/services/auth/handlers"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(api fiber.Router, authHandler *handlers.AuthHandler, auth fiber.Handler) {
	group := api.Group("/auth")

	// Public routes
	group.Post("/register", authHandler.Register)
	group.Post("/login", authHandler.Login)

	// Protected routes
	protected := group.Group("", auth)
	protected.Post("/logout", authHandler.Logout)
	protected.Get("/me", authHandler.Me)
}
