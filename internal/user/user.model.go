package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	Name      *string   `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileComplete reports whether the user finished onboarding.
// A profile counts as complete once a display name has been set.
func (u *User) ProfileComplete() bool {
	return u.Name != nil && *u.Name != ""
}
