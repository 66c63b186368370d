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

type BidHandler struct {
	bidService *services.BidService
	log        *zap.Logger
}

func NewBidHandler(bidService *services.BidService, log *zap.Logger) *BidHandler {
	return &BidHandler{bidService: bidService, log: log}
}

func (h *BidHandler) PlaceBid(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}

	var req dto.PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	bid := &models.Bid{
		JobID:        jobID,
		AmountCents:  req.AmountCents,
		DeliveryDays: req.DeliveryDays,
		Proposal:     req.Proposal,
		ValidUntil:   req.ValidUntil,
	}
	bid, err = h.bidService.PlaceBid(c.Context(), middleware.GetUserID(c), bid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: bid})
}

func (h *BidHandler) ListBids(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}

	bids, err := h.bidService.ListBids(c.Context(), jobID, middleware.GetUserID(c), middleware.GetUserRole(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bids})
}

func (h *BidHandler) AcceptBid(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	bidID, err := uuid.Parse(c.Params("bidId"))
	if err != nil {
		return badRequest(c, "invalid bid id")
	}

	job, err := h.bidService.AcceptBid(c.Context(), jobID, bidID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: job})
}

func (h *BidHandler) WithdrawBid(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid bid id")
	}

	if err := h.bidService.WithdrawBid(c.Context(), bidID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
