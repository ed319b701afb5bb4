package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sales-arena/shared/gamification"
	"sales-arena/shared/middleware"
	"sales-arena/shared/models"
	"sales-arena/shared/store/memstore"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	engine *gamification.Engine
	admin  *models.Seller
	ana    *models.Seller
	bia    *models.Seller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{engine: gamification.New(gamification.Deps{
		Store:    st,
		Location: time.UTC,
		Logger:   zaptest.NewLogger(t),
	})}
	for _, s := range []**models.Seller{&f.admin, &f.ana, &f.bia} {
		*s = &models.Seller{IsActive: true, Role: models.RoleCollaborator}
	}
	f.admin.Name, f.admin.Email, f.admin.Role = "Admin", "admin@example.com", models.RoleAdmin
	f.ana.Name, f.ana.Email = "Ana", "ana@example.com"
	f.bia.Name, f.bia.Email = "Bia", "bia@example.com"
	for _, s := range []*models.Seller{f.admin, f.ana, f.bia} {
		require.NoError(t, st.CreateSeller(context.Background(), s))
	}
	return f
}

func (f *fixture) app(t *testing.T, seller *models.Seller) *fiber.App {
	t.Helper()
	h := NewSalesHandler(f.engine, zaptest.NewLogger(t))
	app := fiber.New()
	sales := app.Group("/sales", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalSellerID, seller.ID)
		c.Locals(middleware.LocalRole, seller.Role)
		return c.Next()
	})
	sales.Get("/ranking", h.Ranking)
	sales.Get("/aggregate", h.Aggregate)
	sales.Get("/daily-goal/:sellerId", h.DailyGoal)
	sales.Post("/", h.CreateSale)
	sales.Get("/", h.ListSales)
	sales.Get("/:id", h.GetSale)
	sales.Put("/:id", h.UpdateSale)
	sales.Delete("/:id", middleware.RoleMiddleware(models.RoleAdmin), h.DeleteSale)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func saleRequest(amount int64, category string) SaleRequest {
	return SaleRequest{
		Customer:      models.Customer{Name: "Acme"},
		Product:       models.Product{Name: "Plan", Category: category},
		Amount:        decimal.NewFromInt(amount),
		UnitPrice:     decimal.NewFromInt(amount),
		PaymentMethod: models.PaymentCreditCard,
	}
}

type saleResult struct {
	Sale            models.Sale          `json:"sale"`
	NewAchievements []models.Achievement `json:"new_achievements"`
}

func (f *fixture) create(t *testing.T, seller *models.Seller, amount int64, category string) models.Sale {
	t.Helper()
	code, env := do(t, f.app(t, seller), http.MethodPost, "/sales", saleRequest(amount, category))
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	var res saleResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Sale
}

func (f *fixture) totalSales(t *testing.T, seller *models.Seller) decimal.Decimal {
	t.Helper()
	got, err := f.engine.Store.GetSeller(context.Background(), seller.ID)
	require.NoError(t, err)
	return got.TotalSales
}

func TestCreateSaleAwardsFirstSale(t *testing.T) {
	f := newFixture(t)

	code, env := do(t, f.app(t, f.ana), http.MethodPost, "/sales", saleRequest(150, "software"))
	require.Equal(t, fiber.StatusCreated, code, env.Message)

	var res saleResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, f.ana.ID, res.Sale.SellerID)
	assert.True(t, decimal.RequireFromString("7.5").Equal(res.Sale.Commission.Amount))
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, models.AchievementFirstSale, res.NewAchievements[0].Type)
	assert.True(t, decimal.NewFromInt(150).Equal(f.totalSales(t, f.ana)))
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t)

	req := saleRequest(0, "")
	req.Discount = decimal.NewFromInt(120)
	code, env := do(t, f.app(t, f.ana), http.MethodPost, "/sales", req)
	require.Equal(t, fiber.StatusBadRequest, code)

	var fields []struct {
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	assert.Contains(t, names, "amount")
	assert.Contains(t, names, "discount")
	assert.True(t, f.totalSales(t, f.ana).IsZero())
}

func TestCreateSaleOnBehalf(t *testing.T) {
	f := newFixture(t)

	req := saleRequest(100, "")
	req.SellerID = &f.bia.ID
	code, _ := do(t, f.app(t, f.ana), http.MethodPost, "/sales", req)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = do(t, f.app(t, f.admin), http.MethodPost, "/sales", req)
	assert.Equal(t, fiber.StatusCreated, code)
	assert.True(t, decimal.NewFromInt(100).Equal(f.totalSales(t, f.bia)))
}

func TestSaleOwnership(t *testing.T) {
	f := newFixture(t)
	sale := f.create(t, f.ana, 100, "")

	code, _ := do(t, f.app(t, f.bia), http.MethodGet, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, f.app(t, f.ana), http.MethodGet, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, f.app(t, f.ana), http.MethodDelete, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestUpdateAndDeleteKeepTotalsConsistent(t *testing.T) {
	f := newFixture(t)
	sale := f.create(t, f.ana, 100, "")
	f.create(t, f.ana, 50, "")

	amount := decimal.NewFromInt(300)
	cancelled := models.SaleCancelled
	code, env := do(t, f.app(t, f.ana), http.MethodPut, "/sales/"+sale.ID.String(), SalePatchRequest{
		Amount: &amount,
		Status: &cancelled,
	})
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.True(t, decimal.NewFromInt(50).Equal(f.totalSales(t, f.ana)))

	confirmed := models.SaleConfirmed
	code, _ = do(t, f.app(t, f.ana), http.MethodPut, "/sales/"+sale.ID.String(), SalePatchRequest{Status: &confirmed})
	require.Equal(t, fiber.StatusOK, code)
	assert.True(t, decimal.NewFromInt(350).Equal(f.totalSales(t, f.ana)))

	code, _ = do(t, f.app(t, f.admin), http.MethodDelete, "/sales/"+sale.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.True(t, decimal.NewFromInt(50).Equal(f.totalSales(t, f.ana)))
}

func TestListSalesScopedToCaller(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.ana, 100, "")
	f.create(t, f.ana, 200, "")
	f.create(t, f.bia, 300, "")

	code, env := do(t, f.app(t, f.ana), http.MethodGet, "/sales?seller_id="+f.bia.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, code)
	var list SaleListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 2, list.Pagination.Total)
	for _, s := range list.Sales {
		assert.Equal(t, f.ana.ID, s.SellerID)
	}

	code, env = do(t, f.app(t, f.admin), http.MethodGet, "/sales?limit=2", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 3, list.Pagination.Total)
	assert.EqualValues(t, 2, list.Pagination.TotalPages)
	assert.Len(t, list.Sales, 2)

	code, _ = do(t, f.app(t, f.admin), http.MethodGet, "/sales?status=shipped", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRankingAndAggregate(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.ana, 100, "software")
	f.create(t, f.bia, 300, "hardware")
	f.create(t, f.bia, 50, "software")

	code, env := do(t, f.app(t, f.ana), http.MethodGet, "/sales/ranking?period=month", nil)
	require.Equal(t, fiber.StatusOK, code)
	var entries []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, f.bia.ID, entries[0].SellerID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.True(t, decimal.NewFromInt(350).Equal(entries[0].TotalAmount))

	code, _ = do(t, f.app(t, f.ana), http.MethodGet, "/sales/ranking?period=decade", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, env = do(t, f.app(t, f.admin), http.MethodGet, "/sales/aggregate?group_by=category&metrics=sum,count", nil)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	var rows []struct {
		Key   string           `json:"key"`
		Sum   *decimal.Decimal `json:"sum"`
		Count *int64           `json:"count"`
		Avg   *decimal.Decimal `json:"avg"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "hardware", rows[0].Key)
	assert.True(t, decimal.NewFromInt(300).Equal(*rows[0].Sum))
	assert.EqualValues(t, 2, *rows[1].Count)
	assert.Nil(t, rows[0].Avg)

	code, _ = do(t, f.app(t, f.admin), http.MethodGet, "/sales/aggregate?group_by=weekday", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestDailyGoalEndpoint(t *testing.T) {
	f := newFixture(t)
	code, _ := do(t, f.app(t, f.ana), http.MethodGet, "/sales/daily-goal/"+f.bia.ID.String(), nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, env := do(t, f.app(t, f.ana), http.MethodGet, "/sales/daily-goal/"+f.ana.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, code)
	var goal struct {
		Met bool `json:"met"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &goal))
	assert.False(t, goal.Met)
}
