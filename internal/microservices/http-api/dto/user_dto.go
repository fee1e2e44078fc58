package dto

import (
	"encoding/json"

	"mediareview/internal/microservices/http-api/models"
)

// UserCreateRequest used for POST /users. Role defaults to user.
type UserCreateRequest struct {
	Username  string  `json:"username" validate:"required,max=150,username,notme"`
	Email     string  `json:"email" validate:"required,max=254,email"`
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
	Bio       string  `json:"bio"`
	Role      *string `json:"role" validate:"omitnil,role"`
}

// UserUpdateRequest used for PATCH /users/{username}.
type UserUpdateRequest struct {
	Username  *string `json:"username" validate:"omitnil,max=150,username,notme"`
	Email     *string `json:"email" validate:"omitnil,max=254,email"`
	FirstName *string `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string `json:"last_name" validate:"omitnil,max=150"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role" validate:"omitnil,role"`
}

// SelfUpdateRequest used for PATCH /users/me. Role is read-only there: any
// submitted value is accepted and dropped.
type SelfUpdateRequest struct {
	UserUpdateRequest
	Role json.RawMessage `json:"role"`
}

type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func (d UserCreateRequest) ToModel() models.User {
	role := models.RoleUser
	if d.Role != nil {
		role = *d.Role
	}
	return models.User{
		Username:  d.Username,
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Bio:       d.Bio,
		Role:      role,
	}
}

// ApplyTo copies the submitted fields onto u.
func (d UserUpdateRequest) ApplyTo(u *models.User) {
	if d.Username != nil {
		u.Username = *d.Username
	}
	if d.Email != nil {
		u.Email = *d.Email
	}
	if d.FirstName != nil {
		u.FirstName = *d.FirstName
	}
	if d.LastName != nil {
		u.LastName = *d.LastName
	}
	if d.Bio != nil {
		u.Bio = *d.Bio
	}
	if d.Role != nil {
		u.Role = *d.Role
	}
}

func FromModelToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}
