package main

import (
	"context"
	"log"

	"sales-arena/services/gamification/handlers"
	"sales-arena/services/gamification/routes"
	"sales-arena/shared/bootstrap"

	"go.uber.org/zap"
)

// @title Sales Arena Gamification Service API
// @version 1.0
// @description Achievements, experience, leaderboards, dashboards and goal simulation
// @host localhost:8006
// @BasePath /api/v1
func main() {
	rt, err := bootstrap.Setup(context.Background(), "gamification")
	if err != nil {
		log.Fatal("Failed to start gamification service: ", err)
	}
	defer rt.Close()

	app := rt.NewApp("Sales Arena Gamification Service")

	gamificationHandler := handlers.NewGamificationHandler(rt.Engine, rt.Logger.Named("gamification"))

	api := app.Group("/api/v1")
	routes.SetupGamificationRoutes(api, gamificationHandler, rt.Auth())

	if err := rt.Listen(app, "8006"); err != nil {
		rt.Logger.Error("Gamification service stopped", zap.Error(err))
	}
}
