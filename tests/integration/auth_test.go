package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hapienAPI/services"
	"hapienAPI/tests/helpers"
)

const testSigningKey = "test-signing-key-do-not-use"

func TestSession_IssueVerifyRestore(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	sessionService := services.NewSessionService(pool, []byte(testSigningKey))
	userID := helpers.CreateTestUser(t, pool, "Session User")

	ctx := context.Background()
	tokens, err := sessionService.Issue(ctx, userID, "ios")
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	assert.True(t, tokens.AccessExpiresAt.After(time.Now()))
	assert.True(t, tokens.RefreshExpiresAt.After(tokens.AccessExpiresAt))

	verified, err := sessionService.Verify(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, verified)

	// Restore rotates: new pair works, old refresh token is dead.
	rotated, err := sessionService.Restore(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = sessionService.Restore(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	restoredUser, err := sessionService.Verify(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, restoredUser)
}

func TestSession_VerifyRejectsTampering(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	sessionService := services.NewSessionService(pool, []byte(testSigningKey))
	otherKey := services.NewSessionService(pool, []byte("some-other-key"))
	userID := helpers.CreateTestUser(t, pool, "Session User")

	tokens, err := sessionService.Issue(context.Background(), userID, "web")
	require.NoError(t, err)

	_, err = otherKey.Verify(tokens.AccessToken)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	_, err = sessionService.Verify("not-a-jwt")
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestSession_RevokeInvalidatesRefreshToken(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	sessionService := services.NewSessionService(pool, []byte(testSigningKey))
	userID := helpers.CreateTestUser(t, pool, "Session User")

	ctx := context.Background()
	tokens, err := sessionService.Issue(ctx, userID, "web")
	require.NoError(t, err)

	sessionService.Revoke(ctx, tokens.RefreshToken)

	_, err = sessionService.Restore(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestVerifyOTP_CreatesProfileOnce(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	sessionService := services.NewSessionService(pool, []byte(testSigningKey))
	userService := services.NewUserService(pool)
	smsService := services.NewSMSService()
	authService := services.NewAuthService(pool, sessionService, userService, smsService)

	ctx := context.Background()
	phone := "919900000777777"
	code := "123456"

	plantOTP := func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `
			INSERT INTO phone_otps (phone, code_hash, expires_at, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (phone) DO UPDATE
			SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at`,
			phone, string(hash), time.Now().UTC().Add(5*time.Minute),
		)
		require.NoError(t, err)
	}

	plantOTP()
	tokens, first, err := authService.VerifyOTP(ctx, phone, code, "ios")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, phone, first.Phone)
	assert.Nil(t, first.Name)
	assert.False(t, first.ProfileComplete())

	// The code is consumed: replaying it fails.
	_, _, err = authService.VerifyOTP(ctx, phone, code, "ios")
	assert.ErrorIs(t, err, services.ErrInvalidOTP)

	// Second sign-in finds the existing profile instead of creating
	// another one.
	plantOTP()
	_, second, err := authService.VerifyOTP(ctx, phone, code, "android")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE phone = $1`, phone).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	sessionService := services.NewSessionService(pool, []byte(testSigningKey))
	userService := services.NewUserService(pool)
	smsService := services.NewSMSService()
	authService := services.NewAuthService(pool, sessionService, userService, smsService)

	ctx := context.Background()
	phone := "919900000888888"

	hash, err := bcrypt.GenerateFromPassword([]byte("654321"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO phone_otps (phone, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (phone) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at`,
		phone, string(hash), time.Now().UTC().Add(5*time.Minute),
	)
	require.NoError(t, err)

	_, _, err = authService.VerifyOTP(ctx, phone, "000000", "ios")
	assert.ErrorIs(t, err, services.ErrInvalidOTP)

	// No profile appears for a failed verification.
	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE phone = $1`, phone).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
