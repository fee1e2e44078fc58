package service

import (
	"context"
	"errors"

	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

type UserService interface {
	List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.UserResponse, int64, error)
	Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.UserResponse, error)
	Get(ctx context.Context, actor permission.Actor, username string) (*dto.UserResponse, error)
	Update(ctx context.Context, actor permission.Actor, username string, decode dto.Decoder) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor permission.Actor, username string) error
	Me(ctx context.Context, actor permission.Actor) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.UserResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	perms    *permission.Evaluator
}

func NewUserService(userRepo repository.UserRepository, perms *permission.Evaluator) UserService {
	return &userService{userRepo: userRepo, perms: perms}
}

// List returns users by id; q.Search matches a username exactly.
func (s *userService) List(ctx context.Context, actor permission.Actor, q dto.ListQuery) ([]dto.UserResponse, int64, error) {
	if err := authorize(s.perms, actor, permission.KindUser, permission.ActionList, nil); err != nil {
		return nil, 0, err
	}
	users, total, err := s.userRepo.List(ctx, q.Search, listPage(q))
	if err != nil {
		return nil, 0, err
	}
	return dto.Map(users, dto.FromModelToUserResponse), total, nil
}

// Create registers an active account directly. No confirmation code is
// issued and nothing is sent.
func (s *userService) Create(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.UserResponse, error) {
	if err := authorize(s.perms, actor, permission.KindUser, permission.ActionCreate, nil); err != nil {
		return nil, err
	}

	var req dto.UserCreateRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	user := req.ToModel()
	if err := checkIdentity(ctx, s.userRepo, &user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		return nil, identityConflict(ctx, s.userRepo, &user, err)
	}

	resp := dto.FromModelToUserResponse(&user)
	return &resp, nil
}

func (s *userService) Get(ctx context.Context, actor permission.Actor, username string) (*dto.UserResponse, error) {
	if err := authorize(s.perms, actor, permission.KindUser, permission.ActionRetrieve, nil); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, lookup(err, "user")
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

func (s *userService) Update(ctx context.Context, actor permission.Actor, username string, decode dto.Decoder) (*dto.UserResponse, error) {
	if err := authorize(s.perms, actor, permission.KindUser, permission.ActionUpdate, nil); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, lookup(err, "user")
	}
	var req dto.UserUpdateRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}
	return s.update(ctx, user, req)
}

func (s *userService) Delete(ctx context.Context, actor permission.Actor, username string) error {
	if err := authorize(s.perms, actor, permission.KindUser, permission.ActionDelete, nil); err != nil {
		return err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return lookup(err, "user")
	}
	return lookup(s.userRepo.Delete(ctx, user.ID), "user")
}

func (s *userService) Me(ctx context.Context, actor permission.Actor) (*dto.UserResponse, error) {
	user, err := s.self(ctx, actor, permission.ActionRetrieve)
	if err != nil {
		return nil, err
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

// UpdateMe edits the caller's own profile. A submitted role is ignored.
func (s *userService) UpdateMe(ctx context.Context, actor permission.Actor, decode dto.Decoder) (*dto.UserResponse, error) {
	user, err := s.self(ctx, actor, permission.ActionUpdate)
	if err != nil {
		return nil, err
	}
	var req dto.SelfUpdateRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}
	return s.update(ctx, user, req.UserUpdateRequest)
}

func (s *userService) self(ctx context.Context, actor permission.Actor, action permission.Action) (*models.User, error) {
	if err := authorize(s.perms, actor, permission.KindSelf, action, &actor.ID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) update(ctx context.Context, user *models.User, req dto.UserUpdateRequest) (*dto.UserResponse, error) {
	oldUsername, oldEmail := user.Username, user.Email
	req.ApplyTo(user)

	if user.Username != oldUsername || user.Email != oldEmail {
		if err := checkIdentity(ctx, s.userRepo, user); err != nil {
			return nil, err
		}
		// a pending code was issued for the old identity
		user.ConfirmationCodeHash = ""
		user.ConfirmationSentAt = nil
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, identityConflict(ctx, s.userRepo, user, err)
	}

	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

// checkIdentity reports username and email collisions with other accounts.
// The unique indexes stay the final guard.
func checkIdentity(ctx context.Context, users repository.UserRepository, user *models.User) error {
	fields := map[string][]string{}

	other, err := users.FindByUsername(ctx, user.Username)
	switch {
	case err == nil && other.ID != user.ID:
		fields["username"] = []string{msgUsernameTaken}
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	other, err = users.FindByEmail(ctx, user.Email)
	switch {
	case err == nil && other.ID != user.ID:
		fields["email"] = []string{msgEmailTaken}
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// identityConflict turns a unique-index failure on a user write into an
// error on the field that actually collided. The row that won the race is
// committed by now, so a second lookup finds it.
func identityConflict(ctx context.Context, users repository.UserRepository, user *models.User, err error) error {
	if !repository.IsUniqueViolation(err) {
		return err
	}
	if cerr := checkIdentity(ctx, users, user); cerr != nil {
		return cerr
	}
	return fieldError("username", msgUsernameTaken)
}
