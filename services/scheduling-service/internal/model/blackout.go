package model

import "time"

// BlackoutDay marks a date on which a provider takes no bookings at all.
// There is at most one per provider and date.
type BlackoutDay struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Date       time.Time `json:"-"`
	Blocked    bool      `json:"blocked"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
