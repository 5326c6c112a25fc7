package friendship

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship is a single row per unordered pair of users. The requester
// is whoever sent the request first; only the addressee may accept or
// reject it.
type Friendship struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	RequesterID uuid.UUID        `json:"requester_id" db:"requester_id"`
	AddresseeID uuid.UUID        `json:"addressee_id" db:"addressee_id"`
	Status      FriendshipStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// SendRequest outcomes reported back to the client.
const (
	ResultConnected      = "connected"       // already friends, or reciprocal pending fast-tracked
	ResultAlreadySent    = "already_sent"    // caller's own pending request exists
	ResultRequestSent    = "request_sent"    // new pending row created
	ResultRequestPending = "request_pending" // pair was rejected earlier; nothing re-opened
)

type SendRequestResult struct {
	Status     string      `json:"status"`
	Friendship *Friendship `json:"friendship,omitempty"`
}

type SendRequestBody struct {
	AddresseeID string `json:"addresseeId"`
}

// PendingRequest is an incoming request joined with the requester's profile.
type PendingRequest struct {
	ID            uuid.UUID `json:"id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName *string   `json:"requester_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
