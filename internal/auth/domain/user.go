package domain

import "time"

type User struct {
	ID        string // ULID
	Email     string // unique, lower-cased
	Name      string
	Picture   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is a provider user profile normalized to canonical fields.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
}
