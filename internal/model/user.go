package model

import "time"

// User represents an account. The ID is issued by the identity provider
// (Firebase, GitHub, ...), not generated here.
//
// PasswordHash is tagged `json:"-"` so it can never leak through an API response.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Provider     string    `json:"provider"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
