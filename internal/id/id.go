package id

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUID string. Falls back to a random
// UUIDv4 in the unlikely event the clock source fails.
func NewUUIDv7() string {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v.String()
}
