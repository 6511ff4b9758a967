package common

import "github.com/google/uuid"

// GenerateUUID returns a random UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}
