package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted identity record.
// HashedPassword and RefreshToken must never leave the service layer:
// use Public() for anything that ends up in a response.
type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Email          string
	FullName       string
	HashedPassword string

	// Most recently issued, still valid refresh token.
	// nil means no active session. At most one live value per user.
	RefreshToken *string

	AvatarURL     string
	CoverImageURL string
}

// PublicUser is the outward-facing projection of User
type PublicUser struct {
	ID            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar,omitempty"`
	CoverImageURL string    `json:"coverImage,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		CreatedAt:     u.CreatedAt,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
	}
}
