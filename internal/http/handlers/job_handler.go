package handlers

import (
	"context"
	"strconv"

	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/middleware"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/repositories"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobHandler struct {
	jobService  *services.JobService
	leadService *services.LeadService
	audit       *repositories.AuditRepo
	log         *zap.Logger
}

func NewJobHandler(jobService *services.JobService, leadService *services.LeadService, audit *repositories.AuditRepo, log *zap.Logger) *JobHandler {
	return &JobHandler{jobService: jobService, leadService: leadService, audit: audit, log: log}
}

// CreateJob posts a job and immediately fans it out to matching contractors.
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req dto.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	job := &models.Job{
		Category:            req.Category,
		Title:               req.Title,
		Description:         req.Description,
		BiddingMode:         req.BiddingMode,
		RequiresEscrow:      req.RequiresEscrow,
		EstimatedPriceCents: req.EstimatedPriceCents,
		BidDeadline:         req.BidDeadline,
	}
	job, err := h.jobService.CreateJob(c.Context(), middleware.GetUserID(c), job)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if _, err := h.leadService.MatchJob(c.Context(), job); err != nil {
		// Job creation stands; matching can be rerun.
		h.log.Error("lead matching failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: job})
}

func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	job, err := h.jobService.GetJob(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: job})
}

func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.JobFilter{Limit: 20}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	switch c.Query("role") {
	case "contractor":
		filter.ContractorID = &userID
	default:
		filter.CustomerID = &userID
	}

	jobs, err := h.jobService.ListJobs(c.Context(), filter)
	if err != nil {
		h.log.Error("list jobs failed", zap.Error(err))
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: jobs})
}

func (h *JobHandler) StartWork(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.StartWork)
}

func (h *JobHandler) CompleteJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}

	var req dto.CompleteJobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
		if err := dto.Validate(&req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	if err := h.jobService.CompleteJob(c.Context(), id, middleware.GetUserID(c), req.FinalCostCents); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *JobHandler) Invoice(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.Invoice)
}

func (h *JobHandler) MarkPaid(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.MarkPaid)
}

func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.Cancel)
}

func (h *JobHandler) OpenDispute(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.OpenDispute)
}

func (h *JobHandler) ResolveDispute(c *fiber.Ctx) error {
	return h.simpleAction(c, h.jobService.ResolveDispute)
}

// GetJobEvents returns the job's audit trail.
func (h *JobHandler) GetJobEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	entries, err := h.audit.GetByEntity(c.Context(), "job", id, 100, 0)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *JobHandler) simpleAction(c *fiber.Ctx, fn func(ctx context.Context, jobID, actorID uuid.UUID) error) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	if err := fn(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
