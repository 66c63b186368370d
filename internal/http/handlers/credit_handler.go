package handlers

import (
	"strconv"

	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/middleware"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CreditHandler struct {
	creditService *services.CreditService
	log           *zap.Logger
}

func NewCreditHandler(creditService *services.CreditService, log *zap.Logger) *CreditHandler {
	return &CreditHandler{creditService: creditService, log: log}
}

func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	account, err := h.creditService.GetBalance(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

func (h *CreditHandler) TopUp(c *fiber.Ctx) error {
	var req dto.TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	tx, err := h.creditService.TopUp(c.Context(), middleware.GetUserID(c), req.AmountCents, "credit purchase")
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *CreditHandler) Statement(c *fiber.Ctx) error {
	limit, offset := 50, 0
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

	txs, err := h.creditService.Statement(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}
