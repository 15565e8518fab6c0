package authService

import (
	"context"
	"io"
	"testing"

	"LensFitter/database/sqlite"
	"LensFitter/internal/api/auth"
	authRepository "LensFitter/internal/api/auth/repository"
	"LensFitter/pkg/bcrypt"
	jwtPkg "LensFitter/pkg/jwt"
	"LensFitter/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cryptoBcrypt "golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) AuthService {
	t.Helper()
	t.Setenv(jwtPkg.AccessTokenSecret, "auth-test-secret")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(logger, authRepository.New(db, logger), bcrypt.NewWithCost(cryptoBcrypt.MinCost), utils.New())
}

func register(t *testing.T, svc AuthService, email string) auth.UserResponse {
	t.Helper()
	user, err := svc.User().RegisterUser(context.Background(), auth.CreateUserRequest{
		Name:     "Optician",
		Email:    email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	user := register(t, svc, "optician@example.com")
	assert.Len(t, user.ID, 26)

	res, err := svc.Auth().Login(context.Background(), auth.LoginUserRequest{
		Email:    "optician@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.ExpiresInMinutes)

	token, err := jwtPkg.Parse(res.AccessToken, jwtPkg.AccessTokenSecret)
	require.NoError(t, err)
	claims, err := jwtPkg.UserFromClaims(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)

	me, err := svc.User().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "optician@example.com", me.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "dup@example.com")

	_, err := svc.User().RegisterUser(context.Background(), auth.CreateUserRequest{
		Name:     "Someone Else",
		Email:    "DUP@example.com",
		Password: "another password",
	})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "optician@example.com")

	_, err := svc.Auth().Login(context.Background(), auth.LoginUserRequest{Email: "optician@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidEmailOrPassword)

	_, err = svc.Auth().Login(context.Background(), auth.LoginUserRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidEmailOrPassword)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.User().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
