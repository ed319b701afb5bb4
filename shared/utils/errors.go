package utils

import (
	"errors"

	"sales-arena/shared/aggregation"
	"sales-arena/shared/ledger"
	"sales-arena/shared/leveling"
	"sales-arena/shared/ranking"
	"sales-arena/shared/store"

	"github.com/gofiber/fiber/v2"
)

// DomainErrorResponse maps errors of the gamification engine to the response envelope.
// notFound is the message used when the record does not exist.
func DomainErrorResponse(c *fiber.Ctx, err error, notFound string) error {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(Response{
			Success: false,
			Message: "Validation failed",
			Data:    verr.Fields,
			Error:   verr.Error(),
		})
	case errors.Is(err, store.ErrNotFound):
		return NotFoundResponse(c, notFound)
	case errors.Is(err, store.ErrDuplicate):
		return ConflictResponse(c, "Record already exists")
	case errors.Is(err, store.ErrHasDependents):
		return ConflictResponse(c, "Record has dependent sales and cannot be deleted")
	case errors.Is(err, ranking.ErrInvalidWindow),
		errors.Is(err, aggregation.ErrInvalidPeriod),
		errors.Is(err, aggregation.ErrInvalidQuery),
		errors.Is(err, leveling.ErrNegativePoints):
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", err)
	}
	return InternalServerErrorResponse(c, "Internal server error", err)
}
