package handlers

import (
	"sales-arena/shared/gamification"
	"sales-arena/shared/leveling"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// historyLimit bounds the experience history returned with a seller's progress.
const historyLimit = 20

type GamificationHandler struct {
	engine *gamification.Engine
	logger *zap.Logger
}

type AddExperienceRequest struct {
	SellerID  uuid.UUID `json:"seller_id" validate:"required"`
	Points    int       `json:"points" validate:"min=1"`
	Reason    string    `json:"reason" validate:"required"`
	Reference string    `json:"reference"`
}

type SimulateGoalRequest struct {
	// SellerID defaults to the caller. Admins may simulate for any seller.
	SellerID *uuid.UUID      `json:"seller_id"`
	Target   decimal.Decimal `json:"target"`
	Period   models.Period   `json:"period"`
}

type ExperienceResponse struct {
	Progress leveling.Progress        `json:"progress"`
	History  []models.ExperienceEntry `json:"history"`
}

type LeaderboardResponse struct {
	Period  models.Period             `json:"period"`
	Entries []models.LeaderboardEntry `json:"entries"`
}

func NewGamificationHandler(engine *gamification.Engine, logger *zap.Logger) *GamificationHandler {
	return &GamificationHandler{
		engine: engine,
		logger: logger,
	}
}

// @Summary Achievement catalog
// @Description Every achievement that can be earned, flagged for a seller when given
// @Tags achievements
// @Security BearerAuth
// @Param seller_id query string false "Seller ID"
// @Success 200 {object} utils.Response{data=[]achievements.Available}
// @Router /gamify/achievements/available [get]
func (h *GamificationHandler) GetAvailableAchievements(c *fiber.Ctx) error {
	sellerID, err := utils.ParseOptionalUUIDQuery(c, "seller_id")
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	if sellerID != nil && !middleware.CanAccess(c, *sellerID) {
		return utils.ForbiddenResponse(c, "Access denied")
	}

	available, err := h.engine.Achievements.ListAvailable(c.UserContext(), sellerID)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Achievements retrieved successfully", available)
}

// @Summary Achievement statistics
// @Description Totals, rarity distribution, most popular achievements and top achievers
// @Tags achievements
// @Security BearerAuth
// @Success 200 {object} utils.Response{data=achievements.GlobalStats}
// @Router /gamify/achievements/stats [get]
func (h *GamificationHandler) GetAchievementStats(c *fiber.Ctx) error {
	stats, err := h.engine.Achievements.Stats(c.UserContext())
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to compute achievement statistics", err)
	}
	return utils.SuccessResponse(c, "Statistics retrieved successfully", stats)
}

// @Summary Seller achievements
// @Description Visible achievements of a seller, newest first, with rarity statistics
// @Tags achievements
// @Security BearerAuth
// @Param sellerId path string true "Seller ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} utils.Response{data=achievements.SellerAchievements}
// @Router /gamify/achievements/{sellerId} [get]
func (h *GamificationHandler) GetSellerAchievements(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "sellerId")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "Access denied")
	}
	_, _, page := utils.PageParams(c)

	list, err := h.engine.Achievements.List(c.UserContext(), id, page)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Achievements retrieved successfully", list)
}

// @Summary Recent achievements
// @Tags achievements
// @Security BearerAuth
// @Param sellerId path string true "Seller ID"
// @Param limit query int false "Entries"
// @Success 200 {object} utils.Response{data=[]models.Achievement}
// @Router /gamify/achievements/{sellerId}/recent [get]
func (h *GamificationHandler) GetRecentAchievements(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "sellerId")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "Access denied")
	}

	recent, err := h.engine.Achievements.Recent(c.UserContext(), id, c.QueryInt("limit", 0))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Achievements retrieved successfully", recent)
}

// @Summary Check achievements
// @Description Evaluate a seller's achievements now and award what is due
// @Tags achievements
// @Security BearerAuth
// @Param sellerId path string true "Seller ID"
// @Success 200 {object} utils.Response{data=[]models.Achievement}
// @Router /gamify/achievements/{sellerId}/check [post]
func (h *GamificationHandler) CheckAchievements(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "sellerId")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}

	awarded, err := h.engine.EvaluateAchievements(c.UserContext(), id)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	if awarded == nil {
		awarded = []models.Achievement{}
	}
	return utils.SuccessResponse(c, "Achievements checked successfully", awarded)
}

// @Summary Seller experience
// @Description Level progress and recent experience history
// @Tags experience
// @Security BearerAuth
// @Param sellerId path string true "Seller ID"
// @Success 200 {object} utils.Response{data=ExperienceResponse}
// @Router /gamify/experience/{sellerId} [get]
func (h *GamificationHandler) GetExperience(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "sellerId")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}

	ctx := c.UserContext()
	progress, err := h.engine.Leveling.Progress(ctx, id)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	history, err := h.engine.Leveling.History(ctx, id, historyLimit)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to load experience history", err)
	}
	if history == nil {
		history = []models.ExperienceEntry{}
	}

	return utils.SuccessResponse(c, "Experience retrieved successfully", ExperienceResponse{
		Progress: progress,
		History:  history,
	})
}

// @Summary Award experience
// @Description Grant bonus experience to a seller
// @Tags experience
// @Security BearerAuth
// @Param request body AddExperienceRequest true "Award"
// @Success 200 {object} utils.Response{data=leveling.Result}
// @Failure 400 {object} utils.Response
// @Router /gamify/experience [post]
func (h *GamificationHandler) AddExperience(c *fiber.Ctx) error {
	var req AddExperienceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	result, err := h.engine.Leveling.AddExperience(c.UserContext(), req.SellerID, req.Points, req.Reason, req.Reference)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}

	admin, _ := middleware.SellerID(c)
	h.logger.Info("experience granted",
		zap.String("seller_id", req.SellerID.String()),
		zap.String("granted_by", admin.String()),
		zap.Int("points", req.Points),
	)
	return utils.SuccessResponse(c, "Experience added successfully", result)
}

// @Summary Leaderboard
// @Tags leaderboard
// @Security BearerAuth
// @Param period query string false "day, week, month, year or all_time"
// @Param limit query int false "Entries"
// @Success 200 {object} utils.Response{data=LeaderboardResponse}
// @Router /gamify/leaderboard [get]
func (h *GamificationHandler) GetLeaderboard(c *fiber.Ctx) error {
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	entries, err := h.engine.Ranking.Rank(c.UserContext(), period, c.QueryInt("limit", 0))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	return utils.SuccessResponse(c, "Leaderboard retrieved successfully", LeaderboardResponse{
		Period:  period,
		Entries: entries,
	})
}

// @Summary Dashboard overview
// @Tags dashboard
// @Security BearerAuth
// @Success 200 {object} utils.Response{data=ranking.Overview}
// @Router /gamify/dashboard/overview [get]
func (h *GamificationHandler) GetOverview(c *fiber.Ctx) error {
	overview, err := h.engine.Ranking.Overview(c.UserContext())
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to compute overview", err)
	}
	return utils.SuccessResponse(c, "Overview retrieved successfully", overview)
}

// @Summary Sales chart
// @Description Zero-filled series: week and month by day, year by month
// @Tags dashboard
// @Security BearerAuth
// @Param period query string false "week, month or year"
// @Param type query string false "amount or count"
// @Param seller_id query string false "Seller ID"
// @Success 200 {object} utils.Response{data=ranking.Chart}
// @Router /gamify/dashboard/chart [get]
func (h *GamificationHandler) GetSalesChart(c *fiber.Ctx) error {
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	sellerID, err := utils.ParseOptionalUUIDQuery(c, "seller_id")
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	chart, err := h.engine.Ranking.SalesChart(c.UserContext(), period, c.Query("type"), sellerID)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	return utils.SuccessResponse(c, "Chart retrieved successfully", chart)
}

// @Summary Sales by category
// @Tags dashboard
// @Security BearerAuth
// @Param period query string false "week, month or year"
// @Success 200 {object} utils.Response{data=[]ranking.CategoryTotal}
// @Router /gamify/dashboard/categories [get]
func (h *GamificationHandler) GetSalesByCategory(c *fiber.Ctx) error {
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	categories, err := h.engine.Ranking.SalesByCategory(c.UserContext(), period)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	return utils.SuccessResponse(c, "Categories retrieved successfully", categories)
}

// @Summary Seller performance
// @Description Ranking with progress against each seller's target
// @Tags dashboard
// @Security BearerAuth
// @Param period query string false "week, month or year"
// @Param limit query int false "Entries"
// @Success 200 {object} utils.Response{data=[]ranking.PerformanceEntry}
// @Router /gamify/dashboard/performance [get]
func (h *GamificationHandler) GetPerformance(c *fiber.Ctx) error {
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	entries, err := h.engine.Ranking.Performance(c.UserContext(), period, c.QueryInt("limit", 0))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	return utils.SuccessResponse(c, "Performance retrieved successfully", entries)
}

// @Summary Goal simulator
// @Description Project the pace needed to reach a sales target
// @Tags goals
// @Security BearerAuth
// @Param request body SimulateGoalRequest true "Target"
// @Success 200 {object} utils.Response{data=ranking.GoalProjection}
// @Router /gamify/goals/simulate [post]
func (h *GamificationHandler) SimulateGoal(c *fiber.Ctx) error {
	var req SimulateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}

	sellerID, ok := middleware.SellerID(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "User not found in context")
	}
	if req.SellerID != nil {
		if !middleware.CanAccess(c, *req.SellerID) {
			return utils.ForbiddenResponse(c, "You can only simulate your own goals")
		}
		sellerID = *req.SellerID
	}
	if req.Period != "" && !req.Period.Valid() {
		return utils.ValidationErrorResponse(c, "Invalid period")
	}

	projection, err := h.engine.Ranking.SimulateGoal(c.UserContext(), sellerID, req.Target, req.Period)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Goal simulated successfully", projection)
}
