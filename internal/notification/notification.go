package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationFriendRequest    NotificationType = "friend_request"
	NotificationFriendAccepted   NotificationType = "friend_accepted"
	NotificationPaymentCompleted NotificationType = "payment_completed"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type CreateNotificationRequest struct {
	UserID  uuid.UUID        `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	ActorID *uuid.UUID       `json:"actor_id,omitempty"`
	Data    map[string]any   `json:"data,omitempty"`
}
