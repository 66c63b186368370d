package handlers

import (
	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/middleware"
	"github.com/fixmarket/backend/internal/models"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

func (h *EscrowHandler) CreateForJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}

	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	milestones := make([]models.Milestone, len(req.Milestones))
	for i, m := range req.Milestones {
		milestones[i] = models.Milestone{
			Title:             m.Title,
			AmountCents:       m.AmountCents,
			RequiresGPS:       m.RequiresGPS,
			MinPhotos:         m.MinPhotos,
			RequiresSignature: m.RequiresSignature,
		}
	}

	escrow, err := h.escrowService.CreateForJob(c.Context(), jobID, middleware.GetUserID(c), milestones)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) GetByJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	escrow, milestones, err := h.escrowService.GetByJob(c.Context(), jobID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.EscrowResponse{Escrow: escrow, Milestones: milestones}})
}

func (h *EscrowHandler) Fund(c *fiber.Ctx) error {
	escrowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}

	var req dto.FundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	escrow, err := h.escrowService.Fund(c.Context(), escrowID, middleware.GetUserID(c), req.AmountCents)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) StartMilestone(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid milestone id")
	}
	if err := h.escrowService.StartMilestone(c.Context(), milestoneID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *EscrowHandler) SubmitEvidence(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid milestone id")
	}

	var req dto.SubmitEvidenceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	in := services.EvidenceInput{
		GPSVerified:       req.GPSVerified,
		PhotosUploaded:    req.PhotosUploaded,
		SignatureCaptured: req.SignatureCaptured,
	}
	if err := h.escrowService.SubmitEvidence(c.Context(), milestoneID, middleware.GetUserID(c), in); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *EscrowHandler) CompleteMilestone(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid milestone id")
	}
	if err := h.escrowService.CompleteMilestone(c.Context(), milestoneID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *EscrowHandler) ApproveMilestone(c *fiber.Ctx) error {
	milestoneID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid milestone id")
	}
	escrow, err := h.escrowService.ApproveMilestone(c.Context(), milestoneID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) ReleaseFull(c *fiber.Ctx) error {
	escrowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}
	escrow, err := h.escrowService.ReleaseFull(c.Context(), escrowID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// Refund is admin-only, wired behind the admin route group.
func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	escrowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}
	escrow, err := h.escrowService.Refund(c.Context(), escrowID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}
