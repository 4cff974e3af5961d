package entity

import "fmt"

// Registry is the fixed, ordered entity set of one device. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	entities []Entity
	byKey    map[uint32]int
	byID     map[string]int
}

// NewRegistry validates and indexes the given entities. Listing order is
// the argument order.
func NewRegistry(entities ...Entity) (*Registry, error) {
	r := &Registry{
		entities: make([]Entity, 0, len(entities)),
		byKey:    make(map[uint32]int, len(entities)),
		byID:     make(map[string]int, len(entities)),
	}

	for _, e := range entities {
		if e.ID == "" || e.Key == 0 || e.Kind.String() == "unknown" {
			return nil, fmt.Errorf("%w: id=%q key=%d kind=%d", ErrInvalidEntity, e.ID, e.Key, e.Kind)
		}
		if _, dup := r.byKey[e.Key]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateKey, e.Key)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}

		r.byKey[e.Key] = len(r.entities)
		r.byID[e.ID] = len(r.entities)
		r.entities = append(r.entities, e)
	}

	return r, nil
}

// Entities returns a copy of the entity list in listing order.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	return len(r.entities)
}

// KeyOf returns the key for an entity id.
func (r *Registry) KeyOf(id string) (uint32, error) {
	i, ok := r.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %q", ErrUnknownKey, id)
	}
	return r.entities[i].Key, nil
}

// KindOf returns the kind for a key.
func (r *Registry) KindOf(key uint32) (Kind, error) {
	e, err := r.Lookup(key)
	if err != nil {
		return 0, err
	}
	return e.Kind, nil
}

// Lookup returns the entity for a key.
func (r *Registry) Lookup(key uint32) (Entity, error) {
	i, ok := r.byKey[key]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	return r.entities[i], nil
}

// LookupID returns the entity for an id.
func (r *Registry) LookupID(id string) (Entity, error) {
	i, ok := r.byID[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: id %q", ErrUnknownKey, id)
	}
	return r.entities[i], nil
}
