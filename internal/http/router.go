package http

import (
	"time"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/http/handlers"
	"github.com/fixmarket/backend/internal/middleware"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	bidHandler *handlers.BidHandler,
	quoteHandler *handlers.QuoteHandler,
	leadHandler *handlers.LeadHandler,
	creditHandler *handlers.CreditHandler,
	escrowHandler *handlers.EscrowHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	customerOnly := middleware.RequireRole(models.RoleCustomer)
	contractorOnly := middleware.RequireRole(models.RoleContractor)
	perm := func(p string) fiber.Handler { return middleware.RequirePermission(log, p) }

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/tier", contractorOnly, userHandler.UpgradeTier)

	// Jobs
	protected.Post("/jobs", perm(rbac.PermPostJob), jobHandler.CreateJob)
	protected.Get("/jobs", jobHandler.ListJobs)
	protected.Get("/jobs/:id", jobHandler.GetJob)
	protected.Post("/jobs/:id/start", contractorOnly, jobHandler.StartWork)
	protected.Post("/jobs/:id/complete", contractorOnly, jobHandler.CompleteJob)
	protected.Post("/jobs/:id/invoice", contractorOnly, jobHandler.Invoice)
	protected.Post("/jobs/:id/pay", customerOnly, jobHandler.MarkPaid)
	protected.Post("/jobs/:id/cancel", jobHandler.Cancel)
	protected.Post("/jobs/:id/dispute", jobHandler.OpenDispute)
	protected.Post("/jobs/:id/dispute/resolve", perm(rbac.PermResolveDispute), jobHandler.ResolveDispute)
	protected.Get("/jobs/:id/events", jobHandler.GetJobEvents)

	// Bids
	protected.Post("/jobs/:id/bids", perm(rbac.PermPlaceBid), bidHandler.PlaceBid)
	protected.Get("/jobs/:id/bids", bidHandler.ListBids)
	protected.Post("/jobs/:id/bids/:bidId/accept", perm(rbac.PermAcceptBid), bidHandler.AcceptBid)
	protected.Post("/bids/:id/withdraw", contractorOnly, bidHandler.WithdrawBid)

	// Quotes
	protected.Post("/quotes", perm(rbac.PermIssueQuote), quoteHandler.IssueQuote)
	protected.Get("/jobs/:id/quotes", quoteHandler.ListByJob)
	protected.Post("/quotes/:id/view", customerOnly, quoteHandler.MarkViewed)
	protected.Post("/quotes/:id/counter", perm(rbac.PermCounterQuote), quoteHandler.Counter)
	protected.Post("/quotes/:id/accept", perm(rbac.PermAcceptQuote), quoteHandler.Accept)
	protected.Post("/quotes/:id/reject", quoteHandler.Reject)
	protected.Get("/quotes/:id/history", quoteHandler.History)

	// Leads
	protected.Get("/leads", contractorOnly, leadHandler.ListLeads)
	protected.Post("/leads/:id/accept", perm(rbac.PermRespondLead), leadHandler.Accept)
	protected.Post("/leads/:id/reject", perm(rbac.PermRespondLead), leadHandler.Reject)
	protected.Post("/leads/:id/view", customerOnly, leadHandler.MarkViewed)

	// Credits
	protected.Get("/credits/balance", perm(rbac.PermManageCredits), creditHandler.GetBalance)
	protected.Post("/credits/top-up", perm(rbac.PermManageCredits), creditHandler.TopUp)
	protected.Get("/credits/statement", perm(rbac.PermManageCredits), creditHandler.Statement)

	// Escrow
	protected.Post("/jobs/:id/escrow", customerOnly, escrowHandler.CreateForJob)
	protected.Get("/jobs/:id/escrow", escrowHandler.GetByJob)
	protected.Post("/escrows/:id/fund", perm(rbac.PermFundEscrow), escrowHandler.Fund)
	protected.Post("/escrows/:id/release", customerOnly, escrowHandler.ReleaseFull)
	protected.Post("/escrows/:id/refund", perm(rbac.PermRefundEscrow), escrowHandler.Refund)
	protected.Post("/milestones/:id/start", contractorOnly, escrowHandler.StartMilestone)
	protected.Post("/milestones/:id/evidence", perm(rbac.PermSubmitEvidence), escrowHandler.SubmitEvidence)
	protected.Post("/milestones/:id/complete", contractorOnly, escrowHandler.CompleteMilestone)
	protected.Post("/milestones/:id/approve", perm(rbac.PermApproveMilestone), escrowHandler.ApproveMilestone)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
