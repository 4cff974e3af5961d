package entity

import "errors"

var (
	// ErrUnknownKey is returned for lookups outside the catalog.
	ErrUnknownKey = errors.New("entity: unknown key")

	// ErrDuplicateKey is returned when two entities share a key.
	ErrDuplicateKey = errors.New("entity: duplicate key")

	// ErrDuplicateID is returned when two entities share an id.
	ErrDuplicateID = errors.New("entity: duplicate id")

	// ErrInvalidEntity is returned for an entity without id, key or kind.
	ErrInvalidEntity = errors.New("entity: invalid entity")

	// ErrNoProbe is returned when a sensor has no probe wired to it.
	ErrNoProbe = errors.New("entity: no probe for sensor")
)
