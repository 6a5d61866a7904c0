package uuid

import (
	"github.com/google/uuid"
)

// UUID represents a UUID
type UUID = uuid.UUID

// Nil is the zero UUID
var Nil = uuid.Nil

// New returns a new time-ordered (version 7) UUID
func New() UUID {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return uuidv7
}

// Parse parses a UUID string
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics if the string is not a valid UUID
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}

// IsUUIDv7 checks if the given UUID is a valid UUIDv7
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// Ptr returns a pointer to a copy of id, or nil for the zero UUID.
func Ptr(id UUID) *UUID {
	if id == Nil {
		return nil
	}
	return &id
}

// ParseOptional parses s into a nullable reference. The empty string is a nil reference.
func ParseOptional(s string) (*UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Equal compares two nullable references. Two nil references are equal.
func Equal(a, b *UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Value dereferences a nullable reference, returning Nil for nil.
func Value(id *UUID) UUID {
	if id == nil {
		return Nil
	}
	return *id
}
