package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"aichat-backend/internal/model"
	"aichat-backend/internal/pkg/jwtutil"
	"aichat-backend/internal/repository"
	"aichat-backend/internal/testutil"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	db := testutil.NewSQLite(t)
	logger, _ := logtest.NewNullLogger()
	repo := repository.NewUserRepository(db)
	return NewAuthService(repo, testSecret, 24*time.Hour, logger), repo
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "pa55word"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "pa55word", stored.PasswordHash)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{name: "empty password", input: RegisterInput{Username: "alice"}},
		{name: "empty username", input: RegisterInput{Password: "secret"}},
		{name: "blank username", input: RegisterInput{Username: "   ", Password: "secret"}},
		{name: "both empty", input: RegisterInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestRegister_DuplicateLeavesFirstUser(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "first"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: "second"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)

	result, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "first"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.User.ID)
}

func TestLogin_TokenMapsBackToUser(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	claims, err := jwtutil.ParseToken(testSecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLogin_Failures(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   LoginInput
		wantErr error
	}{
		{name: "wrong password", input: LoginInput{Username: "alice", Password: "nope"}, wantErr: ErrInvalidCredential},
		{name: "unknown user", input: LoginInput{Username: "bob", Password: "secret"}, wantErr: ErrInvalidCredential},
		{name: "case differs", input: LoginInput{Username: "Alice", Password: "secret"}, wantErr: ErrInvalidCredential},
		{name: "missing password", input: LoginInput{Username: "alice"}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestLogin_LegacyDigest(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()

	salt := []byte("legacy-salt-1234")
	key := pbkdf2.Key([]byte("old-password"), salt, 29000, 32, sha256.New)
	ab64 := func(b []byte) string {
		return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
	}
	legacy := &model.User{
		Username:     "legacy",
		PasswordHash: "$pbkdf2-sha256$29000$" + ab64(salt) + "$" + ab64(key),
	}
	require.NoError(t, repo.Create(ctx, legacy))

	result, err := svc.Login(ctx, LoginInput{Username: "legacy", Password: "old-password"})
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, result.User.ID)

	_, err = svc.Login(ctx, LoginInput{Username: "legacy", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGetUserByID(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetUserByID(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_LengthLimits(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: strings.Repeat("u", 81), Password: "secret"})
	assert.ErrorIs(t, err, ErrUsernameTooLong)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: strings.Repeat("p", 73)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = svc.Register(ctx, RegisterInput{Username: strings.Repeat("u", 80), Password: strings.Repeat("p", 72)})
	assert.NoError(t, err)
}
