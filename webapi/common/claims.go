package common

import (
	"github.com/amirasaad/ledger/pkg/service/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserContextKey is where the JWT middleware stores the verified token.
const UserContextKey = "user"

// CurrentClaims returns the identity of the authenticated caller.
func CurrentClaims(c *fiber.Ctx) (*auth.Claims, error) {
	token, _ := c.Locals(UserContextKey).(*jwt.Token)
	return auth.ClaimsFromToken(token)
}
