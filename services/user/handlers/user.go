package handlers

import (
	"errors"
	"strings"
	"time"

	"sales-arena/shared/gamification"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserHandler struct {
	engine *gamification.Engine
	logger *zap.Logger
}

type TargetRequest struct {
	Daily   *decimal.Decimal `json:"daily"`
	Weekly  *decimal.Decimal `json:"weekly"`
	Monthly *decimal.Decimal `json:"monthly"`
}

type CreateSellerRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=100"`
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=6"`
	Role        models.Role    `json:"role"`
	Department  string         `json:"department"`
	Position    string         `json:"position"`
	HireDate    *time.Time     `json:"hire_date"`
	SalesTarget *TargetRequest `json:"sales_target"`
}

type UpdateSellerRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=2,max=100"`
	Avatar      *string        `json:"avatar"`
	Department  *string        `json:"department"`
	Position    *string        `json:"position"`
	Password    *string        `json:"password" validate:"omitempty,min=6"`
	Role        *models.Role   `json:"role"`
	IsActive    *bool          `json:"is_active"`
	SalesTarget *TargetRequest `json:"sales_target"`
}

type SellerListStats struct {
	TotalSales       int64           `json:"total_sales"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AvgAmount        decimal.Decimal `json:"avg_amount"`
	AchievementCount int64           `json:"achievement_count"`
}

type SellerSummary struct {
	models.Seller
	Stats SellerListStats `json:"stats"`
}

type SellerListResponse struct {
	Sellers    []SellerSummary  `json:"sellers"`
	Pagination utils.Pagination `json:"pagination"`
}

func NewUserHandler(engine *gamification.Engine, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		engine: engine,
		logger: logger,
	}
}

// @Summary List sellers
// @Description List sellers with their sales and achievement statistics
// @Tags users
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param search query string false "Name or email"
// @Param role query string false "Role"
// @Param department query string false "Department"
// @Param active query bool false "Active flag"
// @Success 200 {object} utils.Response{data=SellerListResponse}
// @Router /users [get]
func (h *UserHandler) ListSellers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page, limit, p := utils.PageParams(c)

	filter := store.SellerFilter{
		Role:       models.Role(c.Query("role")),
		Department: c.Query("department"),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return utils.ValidationErrorResponse(c, "Invalid role")
	}
	if raw := c.Query("active"); raw != "" {
		active := c.QueryBool("active")
		filter.IsActive = &active
	}

	sellers, total, err := h.engine.Store.ListSellers(ctx, filter, p)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to list sellers", err)
	}

	totals, err := h.engine.Ranking.SellerTotals(ctx)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to load sales statistics", err)
	}
	groups, err := h.engine.Store.GroupAchievements(ctx, store.AchievementFilter{}, store.AchievementsBySeller, 0)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to load achievement statistics", err)
	}
	achievements := make(map[uuid.UUID]int64, len(groups))
	for _, g := range groups {
		achievements[g.SellerID] = g.Count
	}

	out := make([]SellerSummary, 0, len(sellers))
	for _, s := range sellers {
		row := totals[s.ID]
		out = append(out, SellerSummary{
			Seller: s,
			Stats: SellerListStats{
				TotalSales:       row.Count,
				TotalAmount:      row.TotalAmount,
				AvgAmount:        row.AvgAmount,
				AchievementCount: achievements[s.ID],
			},
		})
	}

	return utils.SuccessResponse(c, "Sellers retrieved successfully", SellerListResponse{
		Sellers:    out,
		Pagination: utils.NewPagination(page, limit, total),
	})
}

// @Summary Create seller
// @Description Create a seller account with role and targets
// @Tags users
// @Security BearerAuth
// @Param request body CreateSellerRequest true "Seller"
// @Success 201 {object} utils.Response{data=models.Seller}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /users [post]
func (h *UserHandler) CreateSeller(c *fiber.Ctx) error {
	var req CreateSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	if req.Role == "" {
		req.Role = models.RoleCollaborator
	}
	if !req.Role.Valid() {
		return utils.ValidationErrorResponse(c, "Invalid role")
	}

	target, err := mergeTarget(models.SalesTarget{}, req.SalesTarget)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to hash password", err)
	}

	seller := &models.Seller{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		Department:   req.Department,
		Position:     req.Position,
		HireDate:     time.Now(),
		IsActive:     true,
		SalesTarget:  target,
		Level:        1,
	}
	if req.HireDate != nil {
		seller.HireDate = *req.HireDate
	}

	if err := h.engine.Store.CreateSeller(c.UserContext(), seller); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.ConflictResponse(c, "A seller with this email already exists")
		}
		return utils.InternalServerErrorResponse(c, "Failed to create seller", err)
	}

	return utils.CreatedResponse(c, "Seller created successfully", seller)
}

// @Summary Seller detail
// @Description Seller profile with all-time totals, commissions and the last six months
// @Tags users
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 200 {object} utils.Response{data=ranking.SellerStats}
// @Failure 403 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetSeller(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "You can only view your own profile")
	}

	stats, err := h.engine.Ranking.SellerStats(c.UserContext(), id)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Seller retrieved successfully", stats)
}

// @Summary Update seller
// @Description Update a profile. Role, active flag and targets are admin-only.
// @Tags users
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Param request body UpdateSellerRequest true "Changes"
// @Success 200 {object} utils.Response{data=models.Seller}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Router /users/{id} [put]
func (h *UserHandler) UpdateSeller(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "You can only update your own profile")
	}

	var req UpdateSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	if !middleware.IsAdmin(c) && (req.Role != nil || req.IsActive != nil || req.SalesTarget != nil) {
		return utils.ForbiddenResponse(c, "Only admins can change role, status or targets")
	}
	if req.Role != nil && !req.Role.Valid() {
		return utils.ValidationErrorResponse(c, "Invalid role")
	}

	ctx := c.UserContext()
	update := store.SellerUpdate{
		Name:       req.Name,
		Avatar:     req.Avatar,
		Department: req.Department,
		Position:   req.Position,
		Role:       req.Role,
		IsActive:   req.IsActive,
	}

	if req.SalesTarget != nil {
		current, err := h.engine.Store.GetSeller(ctx, id)
		if err != nil {
			return utils.DomainErrorResponse(c, err, "Seller not found")
		}
		target, err := mergeTarget(current.SalesTarget, req.SalesTarget)
		if err != nil {
			return utils.ValidationErrorResponse(c, err.Error())
		}
		update.SalesTarget = &target
	}

	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return utils.InternalServerErrorResponse(c, "Failed to hash password", err)
		}
		update.PasswordHash = &hash
	}

	seller, err := h.engine.Store.UpdateSeller(ctx, id, update)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Seller updated successfully", seller)
}

// @Summary Deactivate seller
// @Tags users
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 200 {object} utils.Response{data=models.Seller}
// @Router /users/{id}/deactivate [patch]
func (h *UserHandler) DeactivateSeller(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if self, _ := middleware.SellerID(c); self == id {
		return utils.ValidationErrorResponse(c, "You cannot deactivate your own account")
	}

	inactive := false
	seller, err := h.engine.Store.UpdateSeller(c.UserContext(), id, store.SellerUpdate{IsActive: &inactive})
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Seller deactivated successfully", seller)
}

// @Summary Delete seller
// @Description Delete a seller without sales, together with its achievements
// @Tags users
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Success 200 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteSeller(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if self, _ := middleware.SellerID(c); self == id {
		return utils.ValidationErrorResponse(c, "You cannot delete your own account")
	}

	if err := h.engine.Store.DeleteSeller(c.UserContext(), id); err != nil {
		if errors.Is(err, store.ErrHasDependents) {
			return utils.ConflictResponse(c, "Seller has sales and cannot be deleted; deactivate it instead")
		}
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}

	h.logger.Info("seller deleted", zap.String("seller_id", id.String()))
	return utils.SuccessResponse(c, "Seller deleted successfully", nil)
}

// @Summary Target progress
// @Description Progress of a seller against the target of a period
// @Tags users
// @Security BearerAuth
// @Param id path string true "Seller ID"
// @Param period query string false "day, week or month"
// @Success 200 {object} utils.Response{data=ranking.Progress}
// @Router /users/{id}/progress [get]
func (h *UserHandler) GetProgress(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "You can only view your own progress")
	}
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	progress, err := h.engine.Ranking.SellerProgress(c.UserContext(), id, period)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Progress retrieved successfully", progress)
}

var errNegativeTarget = errors.New("sales targets must not be negative")

// mergeTarget overlays the non-nil targets of req on current.
func mergeTarget(current models.SalesTarget, req *TargetRequest) (models.SalesTarget, error) {
	if req == nil {
		return current, nil
	}
	for _, v := range []*decimal.Decimal{req.Daily, req.Weekly, req.Monthly} {
		if v != nil && v.IsNegative() {
			return current, errNegativeTarget
		}
	}
	if req.Daily != nil {
		current.Daily = *req.Daily
	}
	if req.Weekly != nil {
		current.Weekly = *req.Weekly
	}
	if req.Monthly != nil {
		current.Monthly = *req.Monthly
	}
	return current, nil
}
