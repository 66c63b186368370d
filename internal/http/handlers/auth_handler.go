package handlers

import (
	"github.com/fixmarket/backend/internal/http/dto"
	"github.com/fixmarket/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewAuthHandler(userService *services.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.userService.Register(c.Context(), req.Email, req.Password, req.Role, req.Name, req.Categories)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	token, user, err := h.userService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
