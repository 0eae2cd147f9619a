package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/stock"
	infrakafka "github.com/jhoicas/checkout-core/internal/infrastructure/kafka"
	infrapayment "github.com/jhoicas/checkout-core/internal/infrastructure/payment"
	"github.com/jhoicas/checkout-core/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/checkout-core/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/checkout-core/internal/interfaces/http"
	"github.com/jhoicas/checkout-core/pkg/config"
	"github.com/jhoicas/checkout-core/pkg/logger"
	"github.com/jhoicas/checkout-core/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	redisClient, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer redisClient.Close()
	statusCache := infraredis.NewStatusCache(redisClient, cfg.Checkout.StatusCacheTTL)

	// Publicador de eventos best-effort; sin brokers se desactiva.
	var events checkout.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := infrakafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		events = publisher
	}

	m := metrics.New("checkout")

	txRunner := postgres.NewTxRunner(pool)
	lockRepo := postgres.NewCheckoutLockRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	levelRepo := postgres.NewInventoryLevelRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)

	engine := stock.NewReservationEngine(txRunner, warehouseRepo, log)
	queries := stock.NewQueryService(movementRepo, levelRepo)
	warehouseSvc := stock.NewWarehouseService(warehouseRepo)

	tolerance, err := decimal.NewFromString(cfg.Checkout.DriftTolerancePct)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.Checkout.DriftTolerancePct).Msg("tolerancia de deriva inválida")
	}
	validator := checkout.NewValidator(tolerance, log)

	lockManager := checkout.NewLockManager(
		txRunner, lockRepo, cartRepo, engine,
		statusCache, events, m, log, cfg.Checkout.LockTTL,
	)
	gateway := infrapayment.NewGateway(cfg.Payment.URL, cfg.Payment.APIKey, cfg.Payment.Timeout)
	stateMachine := checkout.NewStateMachine(
		txRunner, lockManager, lockRepo, cartRepo, engine, validator,
		gateway, events, m, log,
		cfg.Checkout.LockTTL, cfg.Checkout.ReservationTTL,
	)

	// Reaper de expirados en su propia goroutine, cancelable en el apagado.
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	reaper := checkout.NewReaper(lockManager, engine, cfg.Checkout.SweepInterval, m, log)
	go reaper.Run(reaperCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Checkout Core API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		StateMachine: stateMachine,
		LockManager:  lockManager,
		Queries:      queries,
		Warehouses:   warehouseSvc,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
