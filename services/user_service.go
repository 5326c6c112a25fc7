package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/internal/user"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, phone, name, avatar_url, bio, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.AvatarURL, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a bare profile for a phone number. Name stays NULL
// until onboarding completes.
func (s *UserService) CreateUser(ctx context.Context, phone string) (*user.User, error) {
	query := `
	INSERT INTO users (id, phone, created_at, updated_at)
	VALUES ($1, $2, NOW(), NOW())
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, uuid.New(), phone))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *UserService) GetUserByPhone(ctx context.Context, phone string) (*user.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
}

// IsProfileComplete is the guard's per-request onboarding check.
func (s *UserService) IsProfileComplete(ctx context.Context, id uuid.UUID) (bool, error) {
	var complete bool
	err := s.db.QueryRow(ctx, `SELECT name IS NOT NULL AND name <> '' FROM users WHERE id = $1`, id).Scan(&complete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to check profile: %w", err)
	}
	return complete, nil
}

// UpdateProfile applies a partial update. Only provided fields change.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *user.UpdateProfileRequest) (*user.User, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		appendSet("name", strings.TrimSpace(*req.Name))
	}
	if req.AvatarURL != nil {
		appendSet("avatar_url", *req.AvatarURL)
	}
	if req.Bio != nil {
		appendSet("bio", *req.Bio)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(setClauses, ", "), userColumns,
	)

	u, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

// SearchUsers finds profiles by name or phone prefix for friend
// discovery, excluding the caller.
func (s *UserService) SearchUsers(ctx context.Context, callerID uuid.UUID, q string) ([]*user.User, error) {
	query := `
	SELECT ` + userColumns + `
	FROM users
	WHERE id <> $1
	  AND name IS NOT NULL
	  AND (name ILIKE $2 || '%' OR phone LIKE $3 || '%')
	ORDER BY name
	LIMIT 25
	`
	rows, err := s.db.Query(ctx, query, callerID, q, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(&u.ID, &u.Phone, &u.Name, &u.AvatarURL, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteAccount removes the profile and everything keyed to it.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM device_tokens WHERE user_id = $1`,
		`DELETE FROM friendships WHERE requester_id = $1 OR addressee_id = $1`,
		`DELETE FROM sessions WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete account data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account deletion: %w", err)
	}

	log.Printf("UserService: deleted account %s", id)
	return nil
}
