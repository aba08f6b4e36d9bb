// Package common holds the HTTP helpers shared by every route package:
// problem details, success envelopes, request binding and amounts.
package common

import (
	"context"
	"errors"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/gofiber/fiber/v2"
)

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs. Kind is an
// extension member naming the ledger failure class.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// MIMEProblemJSON is the media type of problem responses.
const MIMEProblemJSON = "application/problem+json"

// Failure classes reported in ProblemDetails.Kind.
const (
	KindInsufficientFunds = "InsufficientFunds"
	KindAccountNotFound   = "AccountNotFound"
	KindContention        = "Contention"
	KindValidation        = "Validation"
	KindConflict          = "Conflict"
	KindNotFound          = "NotFound"
	KindUnauthorized      = "Unauthorized"
	KindForbidden         = "Forbidden"
	KindInternal          = "Internal"
)

var validationErrors = []error{
	domain.ErrValidation,
	ledger.ErrInvalidAmount,
	ledger.ErrInvalidReason,
	ledger.ErrIdempotencyKeyRequired,
	ledger.ErrIdempotencyKeyTooLong,
	ledger.ErrInvalidCursor,
	purchase.ErrEmptyCart,
	purchase.ErrInvalidItem,
	purchase.ErrTotalMismatch,
	user.ErrInvalidEmail,
	user.ErrInvalidUsername,
	user.ErrPasswordTooShort,
	user.ErrPasswordTooLong,
}

// ErrorKind classifies err for clients.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ledger.ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, ledger.ErrContention):
		return KindContention
	case errors.Is(err, domain.ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, user.ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, user.ErrUserUnauthorized):
		return KindUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return KindForbidden
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return KindValidation
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ""
	}
	return KindInternal
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch ErrorKind(err) {
	case KindInsufficientFunds:
		return fiber.StatusUnprocessableEntity
	case KindAccountNotFound, KindNotFound:
		return fiber.StatusNotFound
	case KindContention, KindConflict:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ProblemDetailsJSON writes an application/problem+json response. The
// optional args are a detail string and an explicit status code; without a
// status the code is derived from err.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := ErrorToStatusCode(err)
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Instance: c.OriginalURL(),
		Kind:     ErrorKind(err),
	}
	explicitStatus := false
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			pd.Detail = v
		case int:
			status = v
			explicitStatus = true
		default:
			pd.Errors = v
		}
	}
	if pd.Detail == "" && err != nil && status < fiber.StatusInternalServerError {
		pd.Detail = err.Error()
	}
	if explicitStatus && err == nil {
		pd.Kind = ""
	}
	pd.Status = status
	if pd.Kind == KindContention {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(pd, MIMEProblemJSON)
}
