package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

func newAuthFixture(t *testing.T) (*fakeRepo, AuthService) {
	t.Helper()

	user := &models.User{
		ID:     1,
		Email:  "jo.bloggs@visionhub.example",
		Active: true,
		Role:   models.Role{Name: models.RoleStaff},
	}
	require.NoError(t, user.SetPassword("correct-horse"))

	repo := &fakeRepo{user: &fakeUserRepo{users: map[uint]*models.User{1: user}}}
	svc := NewAuthService(repo, nil, testLogger(), validator.New(), config.JWTConfig{
		Secret: "test-secret",
		TTL:    time.Hour,
	})
	return repo, svc
}

func TestLogin_RoundTrip(t *testing.T) {
	_, svc := newAuthFixture(t)

	result, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jo.bloggs@visionhub.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, uint(1), result.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)

	user, err := svc.VerifyToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jo.bloggs@visionhub.example",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@visionhub.example",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	repo, svc := newAuthFixture(t)
	repo.user.users[1].Active = false

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jo.bloggs@visionhub.example",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestVerifyToken_DeactivationTakesEffectImmediately(t *testing.T) {
	repo, svc := newAuthFixture(t)

	result, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "jo.bloggs@visionhub.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	repo.user.users[1].Active = false

	_, err = svc.VerifyToken(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.VerifyToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	repo, svc := newAuthFixture(t)

	other := NewAuthService(repo, nil, testLogger(), validator.New(), config.JWTConfig{
		Secret: "a-different-secret",
		TTL:    time.Hour,
	})
	result, err := other.Login(context.Background(), &LoginRequest{
		Email:    "jo.bloggs@visionhub.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
