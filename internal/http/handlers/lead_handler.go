package handlers

import (
	"strconv"

	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/middleware"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LeadHandler struct {
	leadService *services.LeadService
	log         *zap.Logger
}

func NewLeadHandler(leadService *services.LeadService, log *zap.Logger) *LeadHandler {
	return &LeadHandler{leadService: leadService, log: log}
}

func (h *LeadHandler) ListLeads(c *fiber.Ctx) error {
	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}

	leads, err := h.leadService.ListLeads(c.Context(), middleware.GetUserID(c), status, limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: leads})
}

func (h *LeadHandler) Accept(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	result, err := h.leadService.Accept(c.Context(), leadID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.LeadAcceptResponse{
		Lead:         result.Match,
		ChargeTx:     result.ChargeTx,
		OverExtended: result.OverExtended,
	}})
}

func (h *LeadHandler) Reject(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}
	if err := h.leadService.Reject(c.Context(), leadID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *LeadHandler) MarkViewed(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}
	if err := h.leadService.MarkViewed(c.Context(), leadID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
