package user

import (
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/middleware"
	usersvc "github.com/amirasaad/ledger/pkg/service/user"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func Routes(app *fiber.App, userSvc *usersvc.Service, cfg *config.Jwt) {
	app.Get("/user/:id", middleware.JwtProtected(cfg), GetUser(userSvc))
	app.Post("/user", CreateUser(userSvc))
}

// GetUser returns a Fiber handler for retrieving the caller's profile.
// @Summary Get user by ID
// @Description Retrieve a user by their ID. Only the user themselves may read it.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /user/{id} [get]
// @Security Bearer
func GetUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid user ID", domain.ErrValidation, "User ID must be a valid UUID")
		}
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		if claims.UserID != id {
			return common.ProblemDetailsJSON(c, "Forbidden", domain.ErrForbidden, "You are not allowed to read this user")
		}
		u, err := userSvc.GetUser(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", toUserResponse(u))
	}
}

// CreateUser registers a user and opens their account.
// @Summary Create a new user
// @Description Create a new user with username, email and password. A zero balance account is opened and a token is returned.
// @Tags users
// @Accept json
// @Produce json
// @Param request body NewUser true "User creation data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /user [post]
func CreateUser(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[NewUser](c)
		if input == nil {
			return err
		}
		reg, err := userSvc.Register(c.Context(), input.Username, input.Email, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't create user", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Created user", RegistrationResponse{
			User:      toUserResponse(reg.User),
			AccountID: reg.Account.ID,
			Token:     reg.Token,
		})
	}
}
