package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid access token")
)

const (
	accessTokenTTL = time.Hour
	// Refresh tokens live as long as the session cookie: roughly a year.
	refreshTokenTTL = 365 * 24 * time.Hour
)

type SessionService struct {
	db         *pgxpool.Pool
	signingKey []byte
}

func NewSessionService(db *pgxpool.Pool, signingKey []byte) *SessionService {
	return &SessionService{db: db, signingKey: signingKey}
}

// Issue mints an access/refresh token pair for the user and persists the
// refresh token. One session per (user, device): a re-issue for the same
// device replaces the previous row.
func (s *SessionService) Issue(ctx context.Context, userID uuid.UUID, device string) (*session.SessionTokens, error) {
	now := time.Now().UTC()

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "hapien-api",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	tokens := &session.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(accessTokenTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(refreshTokenTTL),
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start session transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND device = $2`, userID, device); err != nil {
		return nil, fmt.Errorf("failed to replace prior session: %w", err)
	}

	insertQuery := `
		INSERT INTO sessions (id, user_id, token_hash, device, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, insertQuery, uuid.New(), userID, hashToken(refreshToken), device, tokens.RefreshExpiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	return tokens, nil
}

// Verify validates an access token and returns the user it belongs to.
func (s *SessionService) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// Restore exchanges a previously persisted refresh token for a fresh
// token pair. This is the recovery step clients run on cold start before
// treating "no session" as authoritative. The old token is always
// rotated out.
func (s *SessionService) Restore(ctx context.Context, refreshToken string) (*session.SessionTokens, error) {
	if refreshToken == "" {
		return nil, ErrSessionNotFound
	}

	var sess session.Session
	query := `
		SELECT id, user_id, token_hash, device, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`
	err := s.db.QueryRow(ctx, query, hashToken(refreshToken)).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.TokenHash,
		&sess.Device,
		&sess.ExpiresAt,
		&sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if time.Now().UTC().After(sess.ExpiresAt) {
		if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sess.ID); err != nil {
			log.Printf("SessionService: failed to delete expired session %s: %v", sess.ID, err)
		}
		return nil, ErrSessionExpired
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sess.ID); err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return s.Issue(ctx, sess.UserID, sess.Device)
}

// Revoke removes the session for the given refresh token. Best effort:
// an unknown token is not an error.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(refreshToken)); err != nil {
		log.Printf("SessionService: failed to revoke session: %v", err)
	}
}

// RevokeAll removes every session for a user. Used on account deletion.
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
