package domain

import "time"

// Party is a votable option managed by admins.
type Party struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vote records a member's single active choice. At most one vote exists per
// owner; changing one's mind replaces the row rather than adding another.
type Vote struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	PartyID   string    `json:"party_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
