package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"hapienAPI/internal/session"
	"hapienAPI/internal/user"
	"hapienAPI/utils"
)

var (
	ErrInvalidOTP = errors.New("invalid otp")
	ErrOTPExpired = errors.New("otp expired")
)

const otpTTL = 5 * time.Minute

// AuthService implements phone OTP sign-in. A profile row is created on
// first successful verification; sessions come from the SessionService.
type AuthService struct {
	db       *pgxpool.Pool
	sessions *SessionService
	users    *UserService
	sms      *SMSService
}

func NewAuthService(db *pgxpool.Pool, sessions *SessionService, users *UserService, sms *SMSService) *AuthService {
	return &AuthService{db: db, sessions: sessions, users: users, sms: sms}
}

// RequestOTP generates a 6-digit code, stores its hash with a short
// expiry and dispatches it over SMS. A missing SMS provider degrades to
// logging the code rather than failing sign-in outright.
func (s *AuthService) RequestOTP(ctx context.Context, phone string) error {
	normalized := utils.NormalizePhone(phone)
	if len(normalized) < 11 {
		return fmt.Errorf("invalid phone number")
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	query := `
		INSERT INTO phone_otps (phone, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (phone) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, normalized, string(hash), time.Now().UTC().Add(otpTTL)); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	requestID, err := s.sms.SendOTP(ctx, normalized, code)
	if err != nil {
		if errors.Is(err, ErrSMSNotConfigured) {
			log.Printf("AuthService: SMS provider not configured, otp for %s is %s", normalized, code)
			return nil
		}
		return fmt.Errorf("failed to send otp: %w", err)
	}

	log.Printf("AuthService: otp dispatched to %s (request %s)", normalized, requestID)
	return nil
}

// VerifyOTP checks the code, creates the profile on first sign-in and
// issues a session token pair. The stored code is consumed either way
// once it has been compared.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code, device string) (*session.SessionTokens, *user.User, error) {
	normalized := utils.NormalizePhone(phone)

	var codeHash string
	var expiresAt time.Time
	err := s.db.QueryRow(ctx, `SELECT code_hash, expires_at FROM phone_otps WHERE phone = $1`, normalized).
		Scan(&codeHash, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInvalidOTP
		}
		return nil, nil, fmt.Errorf("failed to look up otp: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		s.consumeOTP(ctx, normalized)
		return nil, nil, ErrOTPExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(codeHash), []byte(code)) != nil {
		return nil, nil, ErrInvalidOTP
	}
	s.consumeOTP(ctx, normalized)

	u, err := s.users.GetUserByPhone(ctx, normalized)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, nil, err
		}
		u, err = s.users.CreateUser(ctx, normalized)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("AuthService: created profile %s for %s", u.ID, normalized)
	}

	tokens, err := s.sessions.Issue(ctx, u.ID, device)
	if err != nil {
		return nil, nil, err
	}

	return tokens, u, nil
}

func (s *AuthService) consumeOTP(ctx context.Context, phone string) {
	if _, err := s.db.Exec(ctx, `DELETE FROM phone_otps WHERE phone = $1`, phone); err != nil {
		log.Printf("AuthService: failed to consume otp for %s: %v", phone, err)
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
