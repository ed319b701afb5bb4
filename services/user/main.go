package main

import (
	"context"
	"log"

	"sales-arena/services/user/handlers"
	"sales-arena/services/user/routes"
	"sales-arena/shared/bootstrap"

	"go.uber.org/zap"
)

// @title Sales Arena User Service API
// @version 1.0
// @description Seller administration, targets and progress
// @host localhost:8002
// @BasePath /api/v1
func main() {
	rt, err := bootstrap.Setup(context.Background(), "user")
	if err != nil {
		log.Fatal("Failed to start user service: ", err)
	}
	defer rt.Close()

	app := rt.NewApp("Sales Arena User Service")

	userHandler := handlers.NewUserHandler(rt.Engine, rt.Logger.Named("users"))

	api := app.Group("/api/v1")
	routes.SetupUserRoutes(api, userHandler, rt.Auth())

	if err := rt.Listen(app, "8002"); err != nil {
		rt.Logger.Error("User service stopped", zap.Error(err))
	}
}
