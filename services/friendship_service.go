package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hapienAPI/internal/notification"
	"hapienAPI/internal/types/friendship"
	"hapienAPI/internal/user"
)

var (
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
	ErrRequestNotFound = errors.New("friend request not found")
)

// NotificationCreator is the sink for friendship events. The service
// only needs something that can record a notification; it never talks
// to the presentation layer directly.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

type FriendshipService struct {
	db       *pgxpool.Pool
	notifier NotificationCreator
}

func NewFriendshipService(db *pgxpool.Pool, notifier NotificationCreator) *FriendshipService {
	return &FriendshipService{db: db, notifier: notifier}
}

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

func scanFriendship(row pgx.Row) (*friendship.Friendship, error) {
	f := &friendship.Friendship{}
	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SendRequest drives the pair's state machine forward from the caller's
// side. At most one friendships row exists per unordered pair, so the
// existing row (looked up in both directions) decides the outcome:
//
//	accepted        -> no-op, report connected
//	pending, theirs -> fast-track to accepted (reciprocal request)
//	pending, ours   -> no-op, report already sent
//	rejected        -> no-op; the rejection stands until the addressee initiates
//	no row          -> insert pending
func (s *FriendshipService) SendRequest(ctx context.Context, callerID, addresseeID uuid.UUID) (*friendship.SendRequestResult, error) {
	if callerID == addresseeID {
		return nil, ErrSelfRequest
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, addresseeID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check addressee: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	lookupQuery := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`
	existing, err := scanFriendship(s.db.QueryRow(ctx, lookupQuery, callerID, addresseeID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up friendship: %w", err)
		}

		insertQuery := `
			INSERT INTO friendships (id, requester_id, addressee_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'pending', NOW(), NOW())
			RETURNING ` + friendshipColumns
		created, err := scanFriendship(s.db.QueryRow(ctx, insertQuery, uuid.New(), callerID, addresseeID))
		if err != nil {
			return nil, fmt.Errorf("failed to create friend request: %w", err)
		}

		s.emitFriendshipEvent(callerID, addresseeID, notification.NotificationFriendRequest)
		log.Printf("FriendshipService: %s requested %s", callerID, addresseeID)
		return &friendship.SendRequestResult{Status: friendship.ResultRequestSent, Friendship: created}, nil
	}

	switch existing.Status {
	case friendship.FriendshipAccepted:
		return &friendship.SendRequestResult{Status: friendship.ResultConnected, Friendship: existing}, nil

	case friendship.FriendshipPending:
		if existing.RequesterID == callerID {
			return &friendship.SendRequestResult{Status: friendship.ResultAlreadySent, Friendship: existing}, nil
		}

		// The other party asked first; sending back is an implicit accept.
		updateQuery := `
			UPDATE friendships SET status = 'accepted', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + friendshipColumns
		accepted, err := scanFriendship(s.db.QueryRow(ctx, updateQuery, existing.ID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Raced with an accept or reject; report the pair as settled.
				return &friendship.SendRequestResult{Status: friendship.ResultConnected, Friendship: existing}, nil
			}
			return nil, fmt.Errorf("failed to accept reciprocal request: %w", err)
		}

		s.emitFriendshipEvent(callerID, existing.RequesterID, notification.NotificationFriendAccepted)
		log.Printf("FriendshipService: reciprocal request connected %s and %s", callerID, existing.RequesterID)
		return &friendship.SendRequestResult{Status: friendship.ResultConnected, Friendship: accepted}, nil

	case friendship.FriendshipRejected:
		return &friendship.SendRequestResult{Status: friendship.ResultRequestPending, Friendship: nil}, nil
	}

	return nil, fmt.Errorf("unexpected friendship status %q", existing.Status)
}

// Accept transitions a pending request addressed to the caller. The
// addressee check and the status guard live in the UPDATE itself, so a
// concurrent accept/reject resolves to whichever commits first and the
// loser sees not-found.
func (s *FriendshipService) Accept(ctx context.Context, callerID, friendshipID uuid.UUID) (*friendship.Friendship, error) {
	f, err := s.resolvePending(ctx, callerID, friendshipID, friendship.FriendshipAccepted)
	if err != nil {
		return nil, err
	}
	s.emitFriendshipEvent(callerID, f.RequesterID, notification.NotificationFriendAccepted)
	return f, nil
}

// Reject transitions a pending request addressed to the caller. No
// notification: the requester is not told about rejections.
func (s *FriendshipService) Reject(ctx context.Context, callerID, friendshipID uuid.UUID) (*friendship.Friendship, error) {
	return s.resolvePending(ctx, callerID, friendshipID, friendship.FriendshipRejected)
}

func (s *FriendshipService) resolvePending(ctx context.Context, callerID, friendshipID uuid.UUID, to friendship.FriendshipStatus) (*friendship.Friendship, error) {
	query := `
		UPDATE friendships SET status = $3, updated_at = NOW()
		WHERE id = $1 AND addressee_id = $2 AND status = 'pending'
		RETURNING ` + friendshipColumns
	f, err := scanFriendship(s.db.QueryRow(ctx, query, friendshipID, callerID, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to update friend request: %w", err)
	}

	log.Printf("FriendshipService: request %s -> %s by %s", friendshipID, to, callerID)
	return f, nil
}

// ListFriends returns the profiles on the other side of every accepted
// row involving the user.
func (s *FriendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*user.User, error) {
	query := `
	SELECT u.id, u.phone, u.name, u.avatar_url, u.bio, u.created_at, u.updated_at
	FROM friendships f
	JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
	WHERE (f.requester_id = $1 OR f.addressee_id = $1)
	  AND f.status = 'accepted'
	ORDER BY u.name
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*user.User
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(&u.ID, &u.Phone, &u.Name, &u.AvatarURL, &u.Bio, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, u)
	}
	return friends, rows.Err()
}

// ListPendingRequests returns incoming requests awaiting the caller's
// accept or reject, newest first.
func (s *FriendshipService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*friendship.PendingRequest, error) {
	query := `
	SELECT f.id, f.requester_id, u.name, u.avatar_url, f.created_at
	FROM friendships f
	JOIN users u ON u.id = f.requester_id
	WHERE f.addressee_id = $1 AND f.status = 'pending'
	ORDER BY f.created_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var requests []*friendship.PendingRequest
	for rows.Next() {
		r := &friendship.PendingRequest{}
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.RequesterName, &r.AvatarURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// emitFriendshipEvent records a notification for the recipient on a
// background context. Transitions never fail because a downstream
// consumer did.
func (s *FriendshipService) emitFriendshipEvent(actorID, recipientID uuid.UUID, eventType notification.NotificationType) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var actorName string
		if err := s.db.QueryRow(ctx, `SELECT COALESCE(name, 'Someone') FROM users WHERE id = $1`, actorID).Scan(&actorName); err != nil {
			actorName = "Someone"
		}

		title := "New friend request"
		message := fmt.Sprintf("%s sent you a friend request", actorName)
		if eventType == notification.NotificationFriendAccepted {
			title = "Friend request accepted"
			message = fmt.Sprintf("%s accepted your friend request", actorName)
		}

		req := &notification.CreateNotificationRequest{
			UserID:  recipientID,
			Type:    eventType,
			Title:   title,
			Message: message,
			ActorID: &actorID,
			Data:    map[string]any{"actor_id": actorID.String()},
		}
		if _, err := s.notifier.CreateNotification(ctx, req); err != nil {
			log.Printf("FriendshipService: failed to notify %s: %v", recipientID, err)
		}
	}()
}
