package common

import (
	"github.com/gofiber/fiber/v2"
)

// HeaderIdempotentReplayed marks a response that repeats an earlier result
// for the same idempotency key.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// HeaderIdempotencyKey carries the client supplied idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponseJSON wraps data in a Response.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// MarkReplayed sets the replay header when replayed is true.
func MarkReplayed(c *fiber.Ctx, replayed bool) {
	if replayed {
		c.Set(HeaderIdempotentReplayed, "true")
	}
}
