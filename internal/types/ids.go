package types

import (
	"github.com/google/uuid"
)

// NewDefinitionID generates a UUIDv7 definition identifier.
// Time-ordered IDs keep definitions listed in insertion order.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewDefinitionID() DefinitionID {
	return DefinitionID(uuid.Must(uuid.NewV7()).String())
}

// NewRecordID generates a UUIDv7 record identifier for records submitted without one.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRecordID() RecordID {
	return RecordID(uuid.Must(uuid.NewV7()).String())
}

// ParseDefinitionID validates and converts a string to DefinitionID.
// Rejects malformed UUIDs so rows written by other tools cannot alias definitions.
func ParseDefinitionID(s string) (DefinitionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return DefinitionID(s), nil
}
