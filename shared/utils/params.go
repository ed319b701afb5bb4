package utils

import (
	"fmt"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseUUIDParam reads a route parameter as a UUID.
func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// ParseOptionalUUIDQuery reads a query parameter as a UUID. An absent parameter yields nil.
func ParseOptionalUUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

// PageParams reads page (1-based) and limit, clamped to MaxPageSize.
func PageParams(c *fiber.Ctx) (int, int, store.Page) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", DefaultPageSize)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, store.Page{Offset: (page - 1) * limit, Limit: limit}
}

// ParsePeriod reads the "period" query parameter.
func ParsePeriod(c *fiber.Ctx, def models.Period) (models.Period, error) {
	p := models.Period(c.Query("period", string(def)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid period %q", p)
	}
	return p, nil
}

// ParseDateQuery reads an RFC 3339 timestamp or a YYYY-MM-DD date in loc.
func ParseDateQuery(c *fiber.Ctx, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &t, nil
}
