package uid

import (
	"github.com/google/uuid"
)

// GenerateGameID returns a random v4 UUID for a new game session
func GenerateGameID() string {
	return uuid.NewString()
}

// GeneratePlayerID returns the identity handed to a new guest player
func GeneratePlayerID() string {
	return "guest_" + uuid.NewString()
}

// IsValidGameID reports whether id looks like an ID from GenerateGameID
func IsValidGameID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
