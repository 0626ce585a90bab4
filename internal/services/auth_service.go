package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	jwtConfig config.JWTConfig
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, jwtConfig config.JWTConfig) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		jwtConfig: jwtConfig,
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Same failure as a wrong password so logins cannot probe for
			// registered addresses.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.CheckPassword(req.Password) {
		s.logger.Warn("Failed login attempt", "email", req.Email)
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	expiresAt := time.Now().Add(s.jwtConfig.TTL)
	claims := authClaims{
		Role: string(user.Role.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role.Name)

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken parses the bearer token and loads the current user record,
// so role or deactivation changes take effect on the next request.
func (s *authService) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(*authClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.User().GetByID(ctx, nil, uint(userID))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	return user, nil
}
