package service

import (
	"context"
	"testing"
	"time"

	"github.com/jkopstals/dingo-api/internal/model"

	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123!", hash)
	require.NoError(t, ComparePassword(hash, "Secret123!"))
	require.Error(t, ComparePassword(hash, "wrong"))
}

func TestAuthenticateUser(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	require.NoError(t, err)
	user := model.User{ID: 1, Email: "alice@example.com", PasswordHash: hash}

	got, err := AuthenticateUser(context.Background(), user, "Secret123!")
	require.NoError(t, err)
	require.Equal(t, 1, got.ID)

	_, err = AuthenticateUser(context.Background(), user, "wrong")
	require.Error(t, err)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	token, err := IssueAccessToken(model.User{ID: 42}, time.Minute)
	require.NoError(t, err)

	claims, err := VerifyAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, 42, claims.UserID)
	require.Equal(t, "42", claims.Subject)
}

func TestIssueAccessTokenNoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := IssueAccessToken(model.User{ID: 1}, time.Minute)
	require.Error(t, err)
}

func TestVerifyAccessTokenErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")

	// 偽造令牌
	_, err := VerifyAccessToken("not-a-token")
	require.Error(t, err)

	// 過期令牌
	token, err := IssueAccessToken(model.User{ID: 1}, -time.Minute)
	require.NoError(t, err)
	_, err = VerifyAccessToken(token)
	require.Error(t, err)

	// 錯誤密鑰簽發
	t.Setenv("JWT_SECRET", "othersecret")
	token, err = IssueAccessToken(model.User{ID: 1}, time.Minute)
	require.NoError(t, err)
	t.Setenv("JWT_SECRET", "testsecret")
	_, err = VerifyAccessToken(token)
	require.Error(t, err)
}
