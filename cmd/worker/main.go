package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixmarket/backend/internal/config"
	"github.com/fixmarket/backend/internal/db"
	"github.com/fixmarket/backend/internal/events"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/fixmarket/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	jobRepo := repositories.NewJobRepo(pool)
	bidRepo := repositories.NewBidRepo(pool)
	quoteRepo := repositories.NewQuoteRepo(pool)
	leadRepo := repositories.NewLeadRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	publisher := events.NewRedisPublisher(rdb, log)
	jobService := services.NewJobService(jobRepo, escrowRepo, auditRepo, publisher, cfg, log)

	log.Info("worker started")

	bidTicker := time.NewTicker(cfg.BidSweepInterval)
	quoteTicker := time.NewTicker(cfg.QuoteSweepInterval)
	leadTicker := time.NewTicker(cfg.LeadSweepInterval)
	deadlineTicker := time.NewTicker(cfg.DeadlineSweepInterval)
	defer bidTicker.Stop()
	defer quoteTicker.Stop()
	defer leadTicker.Stop()
	defer deadlineTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-bidTicker.C:
			runBidExpiry(ctx, bidRepo, log)
		case <-quoteTicker.C:
			runQuoteExpiry(ctx, quoteRepo, log)
		case <-leadTicker.C:
			runLeadExpiry(ctx, leadRepo, cfg, log)
		case <-deadlineTicker.C:
			runDeadlineSweep(ctx, jobRepo, jobService, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runBidExpiry(ctx context.Context, bidRepo *repositories.BidRepo, log *zap.Logger) {
	n, err := bidRepo.ExpireStale(ctx)
	if err != nil {
		log.Error("bid expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale bids", zap.Int64("count", n))
	}
}

func runQuoteExpiry(ctx context.Context, quoteRepo *repositories.QuoteRepo, log *zap.Logger) {
	n, err := quoteRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		log.Error("quote expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale quotes", zap.Int64("count", n))
	}
}

func runLeadExpiry(ctx context.Context, leadRepo *repositories.LeadRepo, cfg *config.Config, log *zap.Logger) {
	n, err := leadRepo.ExpireStalePending(ctx, int(cfg.LeadPendingTTL.Seconds()))
	if err != nil {
		log.Error("lead expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired stale leads", zap.Int64("count", n))
	}
}

// runDeadlineSweep cancels open-bid jobs whose deadline passed with no award.
func runDeadlineSweep(ctx context.Context, jobRepo *repositories.JobRepo, jobService *services.JobService, log *zap.Logger) {
	jobs, err := jobRepo.GetExpiredOpenBidJobs(ctx)
	if err != nil {
		log.Error("deadline sweep failed", zap.Error(err))
		return
	}

	for _, job := range jobs {
		log.Info("auto-cancelling expired open-bid job", zap.String("job_id", job.ID.String()))
		if err := jobService.CancelExpired(ctx, job.ID); err != nil {
			log.Error("failed to cancel expired job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
}
