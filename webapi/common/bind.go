package common

import (
	"errors"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// BindAndValidate parses the request body and validates it using
// go-playground/validator. On failure it writes a 400 problem response and
// returns a nil input together with the write error, so handlers can
// `return err` directly.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", fmt.Errorf("%w: %w", domain.ErrValidation, err), err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrValidation, err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
			}
			return nil, ProblemDetailsJSON(c, "Validation failed", err, "request validation failed", fields, fiber.StatusBadRequest)
		}
		return nil, ProblemDetailsJSON(c, "Validation failed", err, err.Error(), fiber.StatusBadRequest)
	}
	return &input, nil
}
