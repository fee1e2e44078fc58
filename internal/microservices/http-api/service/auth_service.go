package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediareview/internal/config"
	"mediareview/internal/logging"
	"mediareview/internal/metrics"
	"mediareview/internal/middleware/auth"
	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/notify"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with that email already exists."
	msgInvalidCode   = "Invalid or expired confirmation code."
)

// Claims carried by access tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Signup(ctx context.Context, decode dto.Decoder) (*dto.SignupResponse, error)
	Token(ctx context.Context, decode dto.Decoder) (*dto.TokenResponse, error)
	ParseAccessToken(tokenString string) (*Claims, error)
	Authenticate(ctx context.Context, tokenString string) (*models.User, error)
}

type authService struct {
	userRepo       repository.UserRepository
	notifier       notify.Notifier
	jwtSecret      string
	accessTokenTTL time.Duration
	codeTTL        time.Duration
	now            func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		notifier:       notifier,
		jwtSecret:      cfg.JWTSecret,
		accessTokenTTL: cfg.AccessTokenTTL,
		codeTTL:        cfg.ConfirmationCodeTTL,
		now:            time.Now,
	}
}

// Signup gets or creates the user for the exact (username, email) pair and
// mails a fresh confirmation code. Repeating a signup re-issues the code.
func (s *authService) Signup(ctx context.Context, decode dto.Decoder) (*dto.SignupResponse, error) {
	var req dto.SignupRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	user, err := s.findOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	code := auth.NewCode()
	hash, err := auth.HashCode(code)
	if err != nil {
		return nil, fmt.Errorf("hash confirmation code: %w", err)
	}
	sentAt := s.now()
	user.ConfirmationCodeHash = hash
	user.ConfirmationSentAt = &sentAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	err = s.notifier.SendConfirmationCode(ctx, user.Email, user.Username, code)
	metrics.RecordConfirmationCode(err)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("signup code issued")
	return &dto.SignupResponse{Username: user.Username, Email: user.Email}, nil
}

func (s *authService) findOrCreate(ctx context.Context, req dto.SignupRequest) (*models.User, error) {
	user, err := s.matchIdentity(ctx, req)
	if err != nil || user != nil {
		return user, err
	}

	user = &models.User{Username: req.Username, Email: req.Email, Role: models.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		// lost a race with a concurrent signup; judge against the winner
		winner, merr := s.matchIdentity(ctx, req)
		if merr != nil || winner != nil {
			return winner, merr
		}
		return nil, fieldError("username", msgUsernameTaken)
	}
	return user, nil
}

// matchIdentity returns the account registered with exactly this pair, nil
// when neither name nor email is taken, or a ValidationError naming the
// field held by a different account.
func (s *authService) matchIdentity(ctx context.Context, req dto.SignupRequest) (*models.User, error) {
	byName, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	byEmail, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fields := map[string][]string{}
	if byName != nil && byName.Email != req.Email {
		fields["username"] = []string{msgUsernameTaken}
	}
	if byEmail != nil && byEmail.Username != req.Username {
		fields["email"] = []string{msgEmailTaken}
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	return byName, nil
}

// Token exchanges a confirmation code for an access token. The code is
// consumed on success.
func (s *authService) Token(ctx context.Context, decode dto.Decoder) (*dto.TokenResponse, error) {
	var req dto.TokenRequest
	if err := decodeAndValidate(decode, &req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, lookup(err, "user")
	}

	if !s.codeValid(user, req.ConfirmationCode) {
		return nil, fieldError("confirmation_code", msgInvalidCode)
	}

	loginAt := s.now()
	user.ConfirmationCodeHash = ""
	user.ConfirmationSentAt = nil
	user.LastLogin = &loginAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &dto.TokenResponse{Token: token}, nil
}

func (s *authService) codeValid(user *models.User, code string) bool {
	if !user.HasPendingCode() || user.ConfirmationSentAt == nil {
		return false
	}
	if s.codeTTL > 0 && s.now().After(user.ConfirmationSentAt.Add(s.codeTTL)) {
		return false
	}
	return auth.VerifyCode(user.ConfirmationCodeHash, code) == nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != "access" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a bearer token to the current state of its user, so
// role changes and deletions apply to tokens already issued.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
