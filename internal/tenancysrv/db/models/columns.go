package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NormalizeValue maps the accepted representations of a column value onto one comparable value.
// Nil references become nil and uuid pointers are dereferenced.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

func refValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func assignUUID(dst *uuid.UUID, v any) error {
	switch x := NormalizeValue(v).(type) {
	case uuid.UUID:
		*dst = x
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return err
		}
		*dst = id
	default:
		return fmt.Errorf("cannot assign %T to uuid column", v)
	}
	return nil
}

func assignUUIDRef(dst **uuid.UUID, v any) error {
	if NormalizeValue(v) == nil {
		*dst = nil
		return nil
	}
	var id uuid.UUID
	if err := assignUUID(&id, v); err != nil {
		return err
	}
	*dst = &id
	return nil
}

func assignString(dst *string, v any) error {
	s, ok := NormalizeValue(v).(string)
	if !ok {
		return fmt.Errorf("cannot assign %T to text column", v)
	}
	*dst = s
	return nil
}
