package service

import (
	"context"
	"errors"
	"fmt"

	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

type superuserInput struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

// EnsureSuperuser creates the bootstrap administrator, or promotes the
// existing account with the same username and email. created reports which
// of the two happened. The account logs in through the regular signup and
// token flow.
func EnsureSuperuser(ctx context.Context, users repository.UserRepository, username, email string) (user *models.User, created bool, err error) {
	if err := validate(&superuserInput{Username: username, Email: email}); err != nil {
		return nil, false, err
	}

	user, err = users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{
			Username:    username,
			Email:       email,
			Role:        models.RoleAdmin,
			IsSuperuser: true,
			IsStaff:     true,
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, false, identityConflict(ctx, users, user, err)
		}
		return user, true, nil
	case err != nil:
		return nil, false, err
	}

	if user.Email != email {
		return nil, false, fmt.Errorf("user %q exists with another email: %w", username, fieldError("email", msgEmailTaken))
	}
	user.Role = models.RoleAdmin
	user.IsSuperuser = true
	user.IsStaff = true
	if err := users.Update(ctx, user); err != nil {
		return nil, false, err
	}
	return user, false, nil
}
