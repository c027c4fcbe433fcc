package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ErrUnknownCollection is returned for a collection outside the allow-list.
var ErrUnknownCollection = errors.New("unknown collection")

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "record"
	}

	if e.ID == "" {
		return kind + " not found"
	}

	return fmt.Sprintf("%s not found: %s", kind, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
