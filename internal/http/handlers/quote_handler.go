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

type QuoteHandler struct {
	quoteService *services.QuoteService
	log          *zap.Logger
}

func NewQuoteHandler(quoteService *services.QuoteService, log *zap.Logger) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, log: log}
}

func (h *QuoteHandler) IssueQuote(c *fiber.Ctx) error {
	var req dto.IssueQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return badRequest(c, "invalid job_id")
	}

	quote := &models.Quote{
		JobID:           jobID,
		BasePriceCents:  req.BasePriceCents,
		TotalPriceCents: req.TotalPriceCents,
		ScopeNotes:      req.ScopeNotes,
	}
	quote, err = h.quoteService.IssueQuote(c.Context(), middleware.GetUserID(c), quote)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: quote})
}

func (h *QuoteHandler) ListByJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	quotes, err := h.quoteService.ListByJob(c.Context(), jobID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: quotes})
}

func (h *QuoteHandler) MarkViewed(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid quote id")
	}
	if err := h.quoteService.MarkViewed(c.Context(), quoteID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *QuoteHandler) Counter(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid quote id")
	}

	var req dto.CounterOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	quote, err := h.quoteService.Counter(c.Context(), quoteID, middleware.GetUserID(c), req.PriceCents, req.ProposedDate, req.Message)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: quote})
}

func (h *QuoteHandler) Accept(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid quote id")
	}
	quote, err := h.quoteService.Accept(c.Context(), quoteID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: quote})
}

func (h *QuoteHandler) Reject(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid quote id")
	}
	if err := h.quoteService.Reject(c.Context(), quoteID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *QuoteHandler) History(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid quote id")
	}
	counters, err := h.quoteService.History(c.Context(), quoteID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: counters})
}
