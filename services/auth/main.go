package main

import (
	"context"
	"log"

	"sales-arena/services/auth/handlers"
	"sales-arena/services/auth/routes"
	"sales-arena/shared/bootstrap"

	"go.uber.org/zap"
)

// @title Sales Arena Auth Service API
// @version 1.0
// @description Seller registration, login and sessions
// @host localhost:8001
// @BasePath /api/v1
func main() {
	rt, err := bootstrap.Setup(context.Background(), "auth")
	if err != nil {
		log.Fatal("Failed to start auth service: ", err)
	}
	defer rt.Close()

	app := rt.NewApp("Sales Arena Auth Service")

	authHandler := handlers.NewAuthHandler(rt.Config, rt.Engine, rt.Redis, rt.Logger.Named("auth"))

	api := app.Group("/api/v1")
	routes.SetupAuthRoutes(api, authHandler, rt.Auth())

	if err := rt.Listen(app, "8001"); err != nil {
		rt.Logger.Error("Auth service stopped", zap.Error(err))
	}
}
