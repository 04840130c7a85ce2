// Package memory provides an in-memory repository backend used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// Repository stores entities of type T in a map keyed by identifier. Stored
// values are cloned on the way in and on the way out, so callers never share
// state with the repository.
type Repository[T any, P domain.Entity[T]] struct {
	mu     sync.RWMutex
	rows   map[domain.ID]P
	lastID domain.ID
}

// Compile-time contract assertion ensuring the repository satisfies the domain interface.
var _ domain.Repository[*entitymodel.Satellite] = (*Repository[entitymodel.Satellite, *entitymodel.Satellite])(nil)

// New returns an empty repository.
func New[T any, P domain.Entity[T]]() *Repository[T, P] {
	return &Repository[T, P]{rows: make(map[domain.ID]P)}
}

// Get returns a copy of the entity stored under id.
func (r *Repository[T, P]) Get(_ context.Context, id domain.ID) (P, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, false, nil
	}
	return P(row.Clone()), true, nil
}

// Add stores entity. Without a pre-set id the lowest free identifier at or
// above the last assigned one is used; the scan is linear in the number of
// occupied ids directly above the high-water mark.
func (r *Repository[T, P]) Add(_ context.Context, entity P) (domain.ID, error) {
	if entity == nil {
		return 0, fmt.Errorf("memory add: nil entity")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := entity.ID()
	if ok {
		if _, taken := r.rows[id]; taken {
			return 0, fmt.Errorf("memory add %d: %w", id, domain.ErrConflict)
		}
	} else {
		id = r.nextFree()
	}
	entity.SetID(id)
	r.rows[id] = P(entity.Clone())
	if id > r.lastID {
		r.lastID = id
	}
	return id, nil
}

func (r *Repository[T, P]) nextFree() domain.ID {
	next := r.lastID
	if next < 1 {
		next = 1
	}
	for {
		if _, taken := r.rows[next]; !taken {
			return next
		}
		next++
	}
}

// Delete removes the entity stored under id.
func (r *Repository[T, P]) Delete(_ context.Context, id domain.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

// Update replaces the stored entity carrying the same id.
func (r *Repository[T, P]) Update(_ context.Context, entity P) (bool, error) {
	if entity == nil {
		return false, fmt.Errorf("memory update: nil entity")
	}
	id, ok := entity.ID()
	if !ok {
		return false, domain.ErrMissingID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[id]; !exists {
		return false, nil
	}
	r.rows[id] = P(entity.Clone())
	return true, nil
}

// List returns copies of every stored entity in map order.
func (r *Repository[T, P]) List(_ context.Context) ([]P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]P, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, P(row.Clone()))
	}
	return out, nil
}

// Len reports the number of stored entities.
func (r *Repository[T, P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
