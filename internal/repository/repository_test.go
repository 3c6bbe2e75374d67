package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aichat-backend/internal/model"
	"aichat-backend/internal/testutil"
)

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "digest"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{Username: "alice", PasswordHash: "digest"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "digest", byName.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepository_GetMissing(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewUserRepository(db)

	user, err := repo.GetByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := createUser(t, db, "alice")

	err := repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "digest", stored.PasswordHash)
}

func TestUserRepository_UsernameCaseSensitive(t *testing.T) {
	db := testutil.NewSQLite(t)
	createUser(t, db, "alice")

	err := NewUserRepository(db).Create(context.Background(), &model.User{Username: "Alice", PasswordHash: "digest"})
	assert.NoError(t, err)
}

func TestChatHistoryRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewChatHistoryRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &model.ChatHistory{UserID: alice.ID, Message: msg, Response: "re: " + msg}))
	}
	require.NoError(t, repo.Create(ctx, &model.ChatHistory{UserID: bob.ID, Message: "bob", Response: "hi bob"}))

	records, err := repo.ListByUserID(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "three", records[0].Message)
	assert.Equal(t, "two", records[1].Message)
	assert.Equal(t, "one", records[2].Message)
	for _, r := range records {
		assert.Equal(t, alice.ID, r.UserID)
	}

	limited, err := repo.ListByUserID(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "three", limited[0].Message)

	count, err := repo.CountByUserID(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestChatHistoryRepository_SameTimestampFallsBackToID(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewChatHistoryRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	at := time.Date(2025, 3, 8, 14, 52, 0, 0, time.UTC)
	for _, msg := range []string{"first", "second"} {
		require.NoError(t, repo.Create(ctx, &model.ChatHistory{UserID: alice.ID, Message: msg, Response: "ok", CreatedAt: at}))
	}

	records, err := repo.ListByUserID(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Message)
}

func TestChatHistoryRepository_EmptyList(t *testing.T) {
	db := testutil.NewSQLite(t)

	records, err := NewChatHistoryRepository(db).ListByUserID(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestChatHistoryRepository_OrphanRejected(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewChatHistoryRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &model.ChatHistory{UserID: 404, Message: "hi", Response: "hello"})
	assert.Error(t, err)

	count, err := repo.CountByUserID(ctx, 404)
	require.NoError(t, err)
	assert.Zero(t, count)
}
