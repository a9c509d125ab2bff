package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 string.
// UUIDv7 is time-ordered, so ledger rows inserted in sequence also sort in
// insertion order when listed by primary key.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to a random UUIDv4 if the clock source fails
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates and normalizes a UUID string
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
