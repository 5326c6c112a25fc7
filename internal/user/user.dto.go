package user

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

type ProfileResponse struct {
	User            *User `json:"user"`
	ProfileComplete bool  `json:"profileComplete"`
}
