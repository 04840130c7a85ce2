package domain

import "context"

// Repository is the CRUD contract every storage backend implements for a
// single entity type E. Implementations guard their state with one
// reader/writer lock; each call is safe on its own but calls are not
// transactional with respect to each other.
type Repository[E any] interface {
	// Get returns the record with id. Absence is reported as ok=false.
	Get(ctx context.Context, id ID) (E, bool, error)
	// Add stores entity and returns its identifier. Entities without an id are
	// assigned one; a pre-set id is honoured unless occupied (ErrConflict).
	Add(ctx context.Context, entity E) (ID, error)
	// Delete removes the record with id and reports whether it existed.
	Delete(ctx context.Context, id ID) (bool, error)
	// Update replaces the stored record carrying entity's id. It fails with
	// ErrMissingID when entity has no id and reports false when no record matches.
	Update(ctx context.Context, entity E) (bool, error)
	// List returns every stored record in no particular order.
	List(ctx context.Context) ([]E, error)
}
