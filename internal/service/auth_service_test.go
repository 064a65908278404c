package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

func newAuthService(users *mockUserStore) *AuthService {
	return NewAuthService(users, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "ims-go-api",
	})
}

func activeUserWithPassword(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "intern-1",
		Email:        "intern@example.com",
		PasswordHash: string(hash),
		FullName:     "Intern One",
		Role:         models.RoleIntern,
		Active:       true,
	}
}

func TestAuthServiceRegisterStartsInactive(t *testing.T) {
	users := newMockUserStore()
	svc := newAuthService(users)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "New Intern",
		Email:    "New@Example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleIntern, info.Role)
	assert.False(t, info.Active)
	assert.Equal(t, "new@example.com", info.Email)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "pw123456"))
	svc := newAuthService(users)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Copy",
		Email:    "intern@example.com",
		Password: "supersecret",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestAuthServiceLogin(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "correct-horse"))
	svc := newAuthService(users)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "intern-1", res.User.ID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "intern-1", claims.UserID)
	assert.Equal(t, models.RoleIntern, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "correct-horse"))
	svc := newAuthService(users)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "wrong",
	})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUserWithPassword(t, "correct-horse")
	user.Active = false
	users := newMockUserStore(user)
	svc := newAuthService(users)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "correct-horse",
	})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, errorCode(t, err))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "correct-horse"))
	svc := newAuthService(users)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the used token is revoked and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "correct-horse"))
	svc := newAuthService(users)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceLogout(t *testing.T) {
	users := newMockUserStore(activeUserWithPassword(t, "correct-horse"))
	svc := newAuthService(users)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "intern@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "intern-1"))

	err = svc.Logout(context.Background(), login.RefreshToken, "intern-2")
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}
