package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/internal/notification"
)

var ErrNotificationNotFound = errors.New("notification not found")

// PushProvider delivers a notification to registered devices. FCM in
// production, absent in environments without Firebase credentials.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// CreateNotification stores the row and pushes to the user's devices.
// Push delivery is fire-and-forget; the row is the source of truth.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
	VALUES ($1, $2, $3, $4, $5, false, $6, NOW())
	RETURNING id, created_at
	`
	notif := &notification.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}
	err = s.db.QueryRow(ctx, query, uuid.New(), req.UserID, req.Type, req.Title, req.Message, dataJSON).
		Scan(&notif.ID, &notif.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		go s.push(notif)
	}

	return notif, nil
}

func (s *NotificationService) push(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tokens, err := s.deviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("NotificationService: failed to load device tokens for %s: %v", notif.UserID, err)
		return
	}

	if err := s.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Message, notif.Data); err != nil {
		log.Printf("NotificationService: push to %s failed: %v", notif.UserID, err)
	}
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID) ([]*notification.Notification, error) {
	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT 50
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		var dataJSON []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &dataJSON, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				log.Printf("NotificationService: bad data on notification %s: %v", n.ID, err)
			}
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// RegisterDevice upserts a push token for the user.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`
	if _, err := s.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
