// Package bootstrap assembles the runtime every service binary shares: configuration,
// logging, storage, Redis, the event publisher and the gamification engine.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	_ "sales-arena/docs"
	"sales-arena/shared/config"
	"sales-arena/shared/database"
	"sales-arena/shared/events"
	"sales-arena/shared/gamification"
	"sales-arena/shared/logger"
	"sales-arena/shared/middleware"
	"sales-arena/shared/redis"
	"sales-arena/shared/store"
	"sales-arena/shared/store/gormstore"
	"sales-arena/shared/store/memstore"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Runtime struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     store.Store
	Redis     *redis.Client
	Publisher events.Publisher
	Engine    *gamification.Engine

	service string
	closers []func() error
}

func Setup(ctx context.Context, service string) (*Runtime, error) {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.App, service)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: log, service: service}

	if err := rt.openStore(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	rt.Redis, err = redis.Connect(ctx, cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Redis.Close)

	rt.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		rt.Publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		rt.closers = append(rt.closers, rt.Publisher.Close)
		log.Info("Publishing domain events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	rt.Engine = gamification.New(gamification.Deps{
		Store:     rt.Store,
		Cache:     redis.NewRankingCache(rt.Redis, cfg.Redis.RankingTTL),
		Publisher: rt.Publisher,
		Location:  cfg.Location(),
		Logger:    log,
	})

	if cfg.App.SeedDemo {
		if err := rt.seed(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) error {
	switch rt.Config.Store.Driver {
	case "memory":
		rt.Logger.Warn("Using the in-memory store; data is lost on restart")
		rt.Store = memstore.New()
		return nil
	case "postgres", "":
		db, err := database.Connect(rt.Config, rt.Logger)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			rt.closers = append(rt.closers, sqlDB.Close)
		}
		if err := database.Migrate(db.WithContext(ctx), rt.Logger); err != nil {
			return err
		}
		rt.Store = gormstore.New(db)
		return nil
	}
	return fmt.Errorf("unknown store driver %q", rt.Config.Store.Driver)
}

func (rt *Runtime) seed(ctx context.Context) error {
	hash, err := utils.HashPassword(database.DemoPassword)
	if err != nil {
		return err
	}
	err = database.Seed(ctx, rt.Store, hash, time.Now(), rt.Logger)
	if errors.Is(err, database.ErrAlreadySeeded) {
		rt.Logger.Info("Demo data already present")
		return nil
	}
	return err
}

// NewApp returns a fiber app with the shared middleware chain and a health check.
func (rt *Runtime) NewApp(appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: appName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return utils.ErrorResponse(c, code, "Request failed", err)
		},
	})

	app.Use(recover.New())
	app.Use(middleware.CORSMiddleware())
	app.Use(middleware.LoggingMiddleware(rt.Logger))
	app.Use(middleware.RateLimitMiddleware(rt.Config.Server.RateLimitRPS, rt.Config.Server.RateLimitBurst))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := rt.Redis.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "degraded",
				"service": rt.service,
				"error":   err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": rt.service,
		})
	})
	app.Get("/swagger/*", swagger.HandlerDefault)
	return app
}

// Auth returns the JWT + session middleware.
func (rt *Runtime) Auth() fiber.Handler {
	return middleware.AuthMiddleware(rt.Config, rt.Redis)
}

// Listen serves app until SIGINT or SIGTERM, then shuts it down gracefully.
func (rt *Runtime) Listen(app *fiber.App, defaultPort string) error {
	port := rt.Config.Server.Port
	if port == "" {
		port = defaultPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("Service starting", zap.String("port", port))
		errCh <- app.Listen(rt.Config.Server.Host + ":" + port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.Logger.Info("Shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.Logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = rt.Logger.Sync()
}
