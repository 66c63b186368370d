package handlers

import (
	"errors"

	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps domain errors to HTTP statuses. State conflicts carry the
// authoritative current status in the body.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		invalidTransition *services.InvalidTransitionError
		alreadyProcessed  *services.AlreadyProcessedError
		amountMismatch    *services.AmountMismatchError
		verification      *services.VerificationFailedError
		featureLocked     *services.FeatureLockedError
		priceOutOfRange   *services.PriceOutOfRangeError
	)

	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrExpired):
		return c.Status(fiber.StatusGone).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrDisputed),
		errors.Is(err, services.ErrAlreadyFunded),
		errors.Is(err, services.ErrAlreadyReleased),
		errors.Is(err, services.ErrNotCompleted),
		errors.Is(err, services.ErrNotInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &invalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error:         err.Error(),
			CurrentStatus: invalidTransition.Current,
		})
	case errors.As(err, &alreadyProcessed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error:         err.Error(),
			CurrentStatus: alreadyProcessed.Current,
		})
	case errors.As(err, &amountMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &verification):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error:   err.Error(),
			Missing: verification.Missing,
		})
	case errors.As(err, &featureLocked):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &priceOutOfRange):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	log.Error("internal error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}
