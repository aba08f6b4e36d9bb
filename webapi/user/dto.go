package user

import (
	"time"

	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/google/uuid"
)

// NewUser represents the request body for creating a new user.
type NewUser struct {
	Username string `json:"username" validate:"required,max=50,min=3"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Names     string    `json:"names,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegistrationResponse is returned by POST /user.
type RegistrationResponse struct {
	User      UserResponse `json:"user"`
	AccountID uuid.UUID    `json:"accountId"`
	Token     string       `json:"token"`
}

func toUserResponse(u *dto.UserRead) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Names:     u.Names,
		CreatedAt: u.CreatedAt,
	}
}
