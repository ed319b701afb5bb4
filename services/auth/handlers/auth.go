package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"sales-arena/shared/config"
	"sales-arena/shared/gamification"
	"sales-arena/shared/leveling"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sessions persists the sessions behind issued tokens.
type Sessions interface {
	SetSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, token string) error
}

type AuthHandler struct {
	config   *config.Config
	engine   *gamification.Engine
	sessions Sessions
	logger   *zap.Logger
}

type RegisterRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Seller    *models.Seller `json:"seller"`
}

type MeResponse struct {
	Seller   *models.Seller    `json:"seller"`
	Progress leveling.Progress `json:"progress"`
}

func NewAuthHandler(cfg *config.Config, engine *gamification.Engine, sessions Sessions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		config:   cfg,
		engine:   engine,
		sessions: sessions,
		logger:   logger,
	}
}

// @Summary Register a new seller
// @Description Create a collaborator account and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} utils.Response{data=AuthResponse}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to hash password", err)
	}

	seller := &models.Seller{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         models.RoleCollaborator,
		Department:   req.Department,
		Position:     req.Position,
		HireDate:     time.Now(),
		IsActive:     true,
		Level:        1,
	}

	if err := h.engine.Store.CreateSeller(c.UserContext(), seller); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.ConflictResponse(c, "A seller with this email already exists")
		}
		return utils.InternalServerErrorResponse(c, "Failed to create seller", err)
	}

	resp, err := h.openSession(c.UserContext(), seller)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to create session", err)
	}

	h.logger.Info("seller registered", zap.String("seller_id", seller.ID.String()))
	return utils.CreatedResponse(c, "Seller registered successfully", resp)
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} utils.Response{data=AuthResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	ctx := c.UserContext()
	seller, err := h.engine.Store.GetSellerByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.UnauthorizedResponse(c, "Invalid email or password")
		}
		return utils.InternalServerErrorResponse(c, "Failed to load seller", err)
	}
	if !utils.CheckPassword(seller.PasswordHash, req.Password) {
		return utils.UnauthorizedResponse(c, "Invalid email or password")
	}
	if !seller.IsActive {
		return utils.ForbiddenResponse(c, "Account is deactivated")
	}

	now := time.Now()
	if err := h.engine.Store.TouchLastLogin(ctx, seller.ID, now); err != nil {
		h.logger.Warn("failed to record last login", zap.String("seller_id", seller.ID.String()), zap.Error(err))
	} else {
		seller.LastLoginAt = &now
	}

	resp, err := h.openSession(ctx, seller)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to create session", err)
	}
	return utils.SuccessResponse(c, "Login successful", resp)
}

// @Summary Logout
// @Description Revoke the current session
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals(middleware.LocalToken).(string)
	if token == "" {
		return utils.UnauthorizedResponse(c, "No active session")
	}

	if err := h.sessions.DeleteSession(c.UserContext(), token); err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to logout", err)
	}

	return utils.SuccessResponse(c, "Logged out successfully", nil)
}

// @Summary Current seller
// @Description Return the authenticated seller with level progress
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} utils.Response{data=MeResponse}
// @Failure 401 {object} utils.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sellerID, ok := middleware.SellerID(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "User not found in context")
	}

	seller, err := h.engine.Store.GetSeller(c.UserContext(), sellerID)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}

	return utils.SuccessResponse(c, "Seller retrieved successfully", MeResponse{
		Seller:   seller,
		Progress: leveling.ProgressFor(seller.Experience),
	})
}

func (h *AuthHandler) openSession(ctx context.Context, seller *models.Seller) (*AuthResponse, error) {
	token, expiresAt, err := utils.GenerateJWT(seller, h.config)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		SellerID:  seller.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := h.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, ExpiresAt: expiresAt, Seller: seller}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
