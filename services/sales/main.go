package main

import (
	"context"
	"log"

	"sales-arena/services/sales/handlers"
	"sales-arena/services/sales/routes"
	"sales-arena/shared/bootstrap"

	"go.uber.org/zap"
)

// @title Sales Arena Sales Service API
// @version 1.0
// @description Sales ledger, rankings and aggregations
// @host localhost:8003
// @BasePath /api/v1
func main() {
	rt, err := bootstrap.Setup(context.Background(), "sales")
	if err != nil {
		log.Fatal("Failed to start sales service: ", err)
	}
	defer rt.Close()

	app := rt.NewApp("Sales Arena Sales Service")

	salesHandler := handlers.NewSalesHandler(rt.Engine, rt.Logger.Named("sales"))

	api := app.Group("/api/v1")
	routes.SetupSalesRoutes(api, salesHandler, rt.Auth())

	if err := rt.Listen(app, "8003"); err != nil {
		rt.Logger.Error("Sales service stopped", zap.Error(err))
	}
}
