// Command arena serves every API group from one process. It is the way to run the
// in-memory store, which cannot be shared between the separate services.
package main

import (
	"context"
	"log"

	authhandlers "sales-arena/services/auth/handlers"
	authroutes "sales-arena/services/auth/routes"
	gamificationhandlers "sales-arena/services/gamification/handlers"
	gamificationroutes "sales-arena/services/gamification/routes"
	saleshandlers "sales-arena/services/sales/handlers"
	salesroutes "sales-arena/services/sales/routes"
	userhandlers "sales-arena/services/user/handlers"
	userroutes "sales-arena/services/user/routes"
	"sales-arena/shared/bootstrap"

	"go.uber.org/zap"
)

// @title Sales Arena API
// @version 1.0
// @description Every Sales Arena service behind one listener
// @host localhost:8000
// @BasePath /api/v1
func main() {
	rt, err := bootstrap.Setup(context.Background(), "arena")
	if err != nil {
		log.Fatal("Failed to start arena: ", err)
	}
	defer rt.Close()

	app := rt.NewApp("Sales Arena")
	api := app.Group("/api/v1")
	auth := rt.Auth()

	authroutes.SetupAuthRoutes(api,
		authhandlers.NewAuthHandler(rt.Config, rt.Engine, rt.Redis, rt.Logger.Named("auth")), auth)
	userroutes.SetupUserRoutes(api,
		userhandlers.NewUserHandler(rt.Engine, rt.Logger.Named("users")), auth)
	salesroutes.SetupSalesRoutes(api,
		saleshandlers.NewSalesHandler(rt.Engine, rt.Logger.Named("sales")), auth)
	gamificationroutes.SetupGamificationRoutes(api,
		gamificationhandlers.NewGamificationHandler(rt.Engine, rt.Logger.Named("gamification")), auth)

	if err := rt.Listen(app, "8000"); err != nil {
		rt.Logger.Error("Arena stopped", zap.Error(err))
	}
}
