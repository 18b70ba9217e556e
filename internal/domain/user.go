// Package domain contains core domain types for the early-warning report bot.
package domain

import "time"

// Identity is an authorized reporter resolved from the identity directory.
type Identity struct {
	Cedula      string    `json:"cedula"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// IsZero returns true if no reporter has been resolved.
func (i Identity) IsZero() bool {
	return i.Cedula == ""
}
