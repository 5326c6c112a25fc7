package helpers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/middleware"
)

// SetupTestDB connects to the test database and makes sure the schema
// exists. Tests that need Postgres are skipped when neither
// TEST_DATABASE_URL nor DATABASE_URL is set.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	ensureSchema(t, pool)

	return pool
}

func ensureSchema(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			name TEXT,
			avatar_url TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			device TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS phone_otps (
			phone TEXT PRIMARY KEY,
			code_hash TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id UUID PRIMARY KEY,
			requester_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			addressee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (requester_id, addressee_id)
		)`,
		`CREATE TABLE IF NOT EXISTS payment_orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			razorpay_order_id TEXT NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'INR',
			payment_type TEXT NOT NULL,
			reference_id TEXT,
			metadata JSONB,
			razorpay_payment_id TEXT,
			razorpay_signature TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS device_tokens (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			platform TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to create test schema: %v", err)
		}
	}
}

// CleanupTestDB removes rows created by tests and closes the pool. Test
// users carry phones starting with 9900000, nothing else is touched.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `DELETE FROM users WHERE phone LIKE '919900000%'`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	_, err = pool.Exec(ctx, `DELETE FROM phone_otps WHERE phone LIKE '919900000%'`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test OTPs: %v", err)
	}
	pool.Close()
}

// CreateTestUser inserts a user with a unique test phone number and
// returns its ID. Pass a non-empty name to make the profile complete.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	phone := fmt.Sprintf("919900000%06d", time.Now().UnixNano()%1000000)

	var nameArg *string
	if name != "" {
		nameArg = &name
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, phone, name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`,
		id, phone, nameArg,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return id
}

// TestUserPhone returns the phone stored for a test user.
func TestUserPhone(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) string {
	var phone string
	err := pool.QueryRow(context.Background(), `SELECT phone FROM users WHERE id = $1`, id).Scan(&phone)
	if err != nil {
		t.Fatalf("Failed to load test user phone: %v", err)
	}
	return phone
}

// AuthenticatedRequest attaches a user ID to the request context the
// same way AuthMiddleware does after a successful token check.
func AuthenticatedRequest(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}
