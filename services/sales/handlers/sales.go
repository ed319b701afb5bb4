package handlers

import (
	"strings"
	"time"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/gamification"
	"sales-arena/shared/ledger"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"
	"sales-arena/shared/store"
	"sales-arena/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SalesHandler struct {
	engine *gamification.Engine
	logger *zap.Logger
}

type SaleRequest struct {
	// SellerID lets an admin record a sale on behalf of a seller.
	SellerID       *uuid.UUID           `json:"seller_id"`
	Customer       models.Customer      `json:"customer"`
	Product        models.Product       `json:"product"`
	Amount         decimal.Decimal      `json:"amount"`
	Quantity       int                  `json:"quantity"`
	UnitPrice      decimal.Decimal      `json:"unit_price"`
	Discount       decimal.Decimal      `json:"discount"`
	Status         models.SaleStatus    `json:"status"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	CommissionRate *decimal.Decimal     `json:"commission_rate"`
	SaleDate       *time.Time           `json:"sale_date"`
	Notes          string               `json:"notes"`
	Tags           []string             `json:"tags"`
	Location       models.Location      `json:"location"`
}

type SalePatchRequest struct {
	Customer       *models.Customer      `json:"customer"`
	Product        *models.Product       `json:"product"`
	Amount         *decimal.Decimal      `json:"amount"`
	Quantity       *int                  `json:"quantity"`
	UnitPrice      *decimal.Decimal      `json:"unit_price"`
	Discount       *decimal.Decimal      `json:"discount"`
	Status         *models.SaleStatus    `json:"status"`
	PaymentMethod  *models.PaymentMethod `json:"payment_method"`
	CommissionRate *decimal.Decimal      `json:"commission_rate"`
	SaleDate       *time.Time            `json:"sale_date"`
	Notes          *string               `json:"notes"`
	Tags           *[]string             `json:"tags"`
	Location       *models.Location      `json:"location"`
}

type SaleListResponse struct {
	Sales      []models.Sale    `json:"sales"`
	Pagination utils.Pagination `json:"pagination"`
}

func NewSalesHandler(engine *gamification.Engine, logger *zap.Logger) *SalesHandler {
	return &SalesHandler{
		engine: engine,
		logger: logger,
	}
}

func (r SaleRequest) input() ledger.SaleInput {
	return ledger.SaleInput{
		Customer:       r.Customer,
		Product:        r.Product,
		Amount:         r.Amount,
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
		Discount:       r.Discount,
		Status:         r.Status,
		PaymentMethod:  r.PaymentMethod,
		CommissionRate: r.CommissionRate,
		SaleDate:       r.SaleDate,
		Notes:          r.Notes,
		Tags:           r.Tags,
		Location:       r.Location,
	}
}

func (r SalePatchRequest) patch() ledger.SalePatch {
	return ledger.SalePatch{
		Customer:       r.Customer,
		Product:        r.Product,
		Amount:         r.Amount,
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
		Discount:       r.Discount,
		Status:         r.Status,
		PaymentMethod:  r.PaymentMethod,
		CommissionRate: r.CommissionRate,
		SaleDate:       r.SaleDate,
		Notes:          r.Notes,
		Tags:           r.Tags,
		Location:       r.Location,
	}
}

// @Summary Record a sale
// @Description Record a sale, update the seller's totals and evaluate achievements
// @Tags sales
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SaleRequest true "Sale"
// @Success 201 {object} utils.Response{data=gamification.SaleResult}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /sales [post]
func (h *SalesHandler) CreateSale(c *fiber.Ctx) error {
	var req SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}

	sellerID, ok := middleware.SellerID(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "User not found in context")
	}
	if req.SellerID != nil && *req.SellerID != sellerID {
		if !middleware.IsAdmin(c) {
			return utils.ForbiddenResponse(c, "You can only record your own sales")
		}
		sellerID = *req.SellerID
	}

	result, err := h.engine.RecordSale(c.UserContext(), sellerID, req.input())
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.CreatedResponse(c, "Sale recorded successfully", result)
}

// @Summary List sales
// @Description Sales newest first. Collaborators only see their own sales.
// @Tags sales
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param seller_id query string false "Seller ID (admin)"
// @Param status query string false "Status"
// @Param category query string false "Product category"
// @Param start_date query string false "From (inclusive)"
// @Param end_date query string false "To (inclusive for dates)"
// @Success 200 {object} utils.Response{data=SaleListResponse}
// @Router /sales [get]
func (h *SalesHandler) ListSales(c *fiber.Ctx) error {
	page, limit, p := utils.PageParams(c)

	filter, err := h.saleFilter(c)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	if status := models.SaleStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			return utils.ValidationErrorResponse(c, "Invalid status")
		}
		filter.Statuses = []models.SaleStatus{status}
	}

	sales, total, err := h.engine.Ledger.ListSales(c.UserContext(), filter, p)
	if err != nil {
		return utils.InternalServerErrorResponse(c, "Failed to list sales", err)
	}
	if sales == nil {
		sales = []models.Sale{}
	}

	return utils.SuccessResponse(c, "Sales retrieved successfully", SaleListResponse{
		Sales:      sales,
		Pagination: utils.NewPagination(page, limit, total),
	})
}

// @Summary Get a sale
// @Tags sales
// @Security BearerAuth
// @Param id path string true "Sale ID"
// @Success 200 {object} utils.Response{data=models.Sale}
// @Failure 404 {object} utils.Response
// @Router /sales/{id} [get]
func (h *SalesHandler) GetSale(c *fiber.Ctx) error {
	sale, err := h.ownedSale(c)
	if err != nil || sale == nil {
		return err
	}
	return utils.SuccessResponse(c, "Sale retrieved successfully", sale)
}

// @Summary Update a sale
// @Description Change a sale, reconcile the seller's totals and evaluate achievements
// @Tags sales
// @Security BearerAuth
// @Param id path string true "Sale ID"
// @Param request body SalePatchRequest true "Changes"
// @Success 200 {object} utils.Response{data=gamification.SaleResult}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /sales/{id} [put]
func (h *SalesHandler) UpdateSale(c *fiber.Ctx) error {
	var req SalePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ValidationErrorResponse(c, "Invalid request body")
	}

	sale, err := h.ownedSale(c)
	if err != nil || sale == nil {
		return err
	}

	result, err := h.engine.UpdateSale(c.UserContext(), sale.ID, req.patch())
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Sale not found")
	}
	return utils.SuccessResponse(c, "Sale updated successfully", result)
}

// @Summary Delete a sale
// @Description Remove a sale and reverse its contribution to the seller's totals
// @Tags sales
// @Security BearerAuth
// @Param id path string true "Sale ID"
// @Success 200 {object} utils.Response{data=models.Sale}
// @Failure 404 {object} utils.Response
// @Router /sales/{id} [delete]
func (h *SalesHandler) DeleteSale(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid sale ID")
	}

	sale, err := h.engine.DeleteSale(c.UserContext(), id)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Sale not found")
	}

	h.logger.Info("sale deleted",
		zap.String("sale_id", sale.ID.String()),
		zap.String("seller_id", sale.SellerID.String()),
	)
	return utils.SuccessResponse(c, "Sale deleted successfully", sale)
}

// @Summary Sales ranking
// @Description Sellers ranked by total amount within a period
// @Tags sales
// @Security BearerAuth
// @Param period query string false "day, week, month, year or all_time"
// @Param limit query int false "Entries"
// @Success 200 {object} utils.Response{data=[]models.LeaderboardEntry}
// @Router /sales/ranking [get]
func (h *SalesHandler) Ranking(c *fiber.Ctx) error {
	period, err := utils.ParsePeriod(c, models.PeriodMonth)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	entries, err := h.engine.Ranking.Rank(c.UserContext(), period, c.QueryInt("limit", 0))
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Ranking not found")
	}
	return utils.SuccessResponse(c, "Ranking retrieved successfully", entries)
}

// @Summary Aggregate sales
// @Description Grouped sum, count, average and commission of sales
// @Tags sales
// @Security BearerAuth
// @Param group_by query string false "seller, category, day or month"
// @Param metrics query string false "Comma separated: sum, count, avg, commission"
// @Param period query string false "Window"
// @Param seller_id query string false "Seller ID (admin)"
// @Param category query string false "Product category"
// @Param include_cancelled query bool false "Count cancelled sales"
// @Param limit query int false "Groups"
// @Success 200 {object} utils.Response{data=[]aggregation.Result}
// @Router /sales/aggregate [get]
func (h *SalesHandler) Aggregate(c *fiber.Ctx) error {
	filter, err := h.saleFilter(c)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}

	period, err := utils.ParsePeriod(c, models.PeriodAllTime)
	if err != nil {
		return utils.ValidationErrorResponse(c, err.Error())
	}
	window, err := aggregation.PeriodWindow(period, time.Now(), h.engine.Aggregation.Location())
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	if filter.Start == nil && filter.End == nil {
		filter = window.Apply(filter)
	}

	q := aggregation.Query{
		Filter:           filter,
		GroupBy:          store.GroupBy(c.Query("group_by")),
		Limit:            c.QueryInt("limit", 0),
		IncludeCancelled: c.QueryBool("include_cancelled", false),
	}
	for _, m := range strings.Split(c.Query("metrics"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			q.Metrics = append(q.Metrics, aggregation.Metric(m))
		}
	}

	results, err := h.engine.Aggregation.Aggregate(c.UserContext(), q)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "")
	}
	return utils.SuccessResponse(c, "Aggregation computed successfully", results)
}

// @Summary Daily goal status
// @Description Today's total against the daily target and the current streak
// @Tags sales
// @Security BearerAuth
// @Param sellerId path string true "Seller ID"
// @Success 200 {object} utils.Response{data=ranking.DailyGoal}
// @Router /sales/daily-goal/{sellerId} [get]
func (h *SalesHandler) DailyGoal(c *fiber.Ctx) error {
	id, err := utils.ParseUUIDParam(c, "sellerId")
	if err != nil {
		return utils.ValidationErrorResponse(c, "Invalid seller ID")
	}
	if !middleware.CanAccess(c, id) {
		return utils.ForbiddenResponse(c, "You can only view your own goals")
	}

	status, err := h.engine.Ranking.DailyGoalStatus(c.UserContext(), id)
	if err != nil {
		return utils.DomainErrorResponse(c, err, "Seller not found")
	}
	return utils.SuccessResponse(c, "Daily goal retrieved successfully", status)
}

// saleFilter reads the seller, category and date range filters. Collaborators are
// always scoped to their own sales.
func (h *SalesHandler) saleFilter(c *fiber.Ctx) (store.SaleFilter, error) {
	var filter store.SaleFilter

	sellerID, err := utils.ParseOptionalUUIDQuery(c, "seller_id")
	if err != nil {
		return filter, err
	}
	if !middleware.IsAdmin(c) {
		self, _ := middleware.SellerID(c)
		sellerID = &self
	}
	filter.SellerID = sellerID
	filter.Category = c.Query("category")

	loc := h.engine.Aggregation.Location()
	if filter.Start, err = utils.ParseDateQuery(c, "start_date", loc); err != nil {
		return filter, err
	}
	end, err := utils.ParseDateQuery(c, "end_date", loc)
	if err != nil {
		return filter, err
	}
	if end != nil {
		// A bare date covers the whole day.
		if len(c.Query("end_date")) == len(time.DateOnly) {
			next := end.AddDate(0, 0, 1)
			end = &next
		}
		filter.End = end
	}
	return filter, nil
}

// ownedSale loads the sale named by the id parameter. It writes the error response
// itself and returns a nil sale when the caller may not see it.
func (h *SalesHandler) ownedSale(c *fiber.Ctx) (*models.Sale, error) {
	id, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, utils.ValidationErrorResponse(c, "Invalid sale ID")
	}

	sale, err := h.engine.Ledger.GetSale(c.UserContext(), id)
	if err != nil {
		return nil, utils.DomainErrorResponse(c, err, "Sale not found")
	}
	if !middleware.CanAccess(c, sale.SellerID) {
		// Other sellers' sales are reported as missing.
		return nil, utils.NotFoundResponse(c, "Sale not found")
	}
	return sale, nil
}
