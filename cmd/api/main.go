package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/db"
	"github.com/fixmarket/backend/internal/events"
	apphttp "github.com/fixmarket/backend/internal/http"
	"github.com/fixmarket/backend/internal/http/handlers"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	jobRepo := repositories.NewJobRepo(pool)
	bidRepo := repositories.NewBidRepo(pool)
	quoteRepo := repositories.NewQuoteRepo(pool)
	leadRepo := repositories.NewLeadRepo(pool)
	creditRepo := repositories.NewCreditRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	paymentClient := services.NewPaymentClient(cfg.PaymentRailURL, log)
	featureGate := services.NewTierFeatureGate(userRepo)
	userService := services.NewUserService(userRepo, auditRepo, cfg, log)
	creditService := services.NewCreditService(creditRepo, auditRepo, log)
	jobService := services.NewJobService(jobRepo, escrowRepo, auditRepo, publisher, cfg, log)
	bidService := services.NewBidService(bidRepo, jobRepo, auditRepo, publisher, log)
	leadService := services.NewLeadService(leadRepo, userRepo, creditService, featureGate, auditRepo, publisher, cfg, log)
	quoteService := services.NewQuoteService(quoteRepo, jobRepo, leadRepo, featureGate, auditRepo, publisher, cfg, log)
	escrowService := services.NewEscrowService(escrowRepo, jobRepo, paymentClient, auditRepo, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	jobHandler := handlers.NewJobHandler(jobService, leadService, auditRepo, log)
	bidHandler := handlers.NewBidHandler(bidService, log)
	quoteHandler := handlers.NewQuoteHandler(quoteService, log)
	leadHandler := handlers.NewLeadHandler(leadService, log)
	creditHandler := handlers.NewCreditHandler(creditService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb,
		authHandler, userHandler, jobHandler, bidHandler, quoteHandler,
		leadHandler, creditHandler, escrowHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
