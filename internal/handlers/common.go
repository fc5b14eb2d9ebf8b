package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
)

var validate = validator.New()

// parseAndValidate decodes the request body and runs struct validation.
// Returns false after writing the error response.
func parseAndValidate(c *fiber.Ctx, dest interface{}) bool {
	if err := c.BodyParser(dest); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
		return false
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		msg := "Validation failed"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "Validation failed on field '" + verrs[0].Field() + "' (" + verrs[0].Tag() + ")"
		}
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": msg,
		})
		return false
	}
	return true
}

// billingError maps the billing error taxonomy onto HTTP statuses
func billingError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, billing.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, billing.ErrInvalidState), errors.Is(err, billing.ErrDuplicateMonth):
		code = fiber.StatusConflict
	case errors.Is(err, billing.ErrValidation):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}
