package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel matched by errors.Is for every missing-entity
// condition. Callers must be able to tell "no such entity" apart from both
// "access denied" and a failing backend.
var ErrNotFound = errors.New("entity not found")

// ErrAlreadyExists is returned by Create calls when an entity with the same
// key is already stored.
var ErrAlreadyExists = errors.New("entity already exists")

// NotFoundError names the entity kind and key that was missing.
type NotFoundError struct {
	Entity string // e.g. "role", "permission", "sdset"
	Key    string
	Tenant string
}

func (e *NotFoundError) Error() string {
	if e.Tenant != "" {
		return fmt.Sprintf("%s not found: %s (tenant %s)", e.Entity, e.Key, e.Tenant)
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SystemError wraps a backend connectivity or protocol failure. It is a
// distinct kind: it never collapses into not-found or a deny decision.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("directory failure during %s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsSystem reports whether err is (or wraps) a backend failure.
func IsSystem(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}
