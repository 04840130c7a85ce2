// Package domain defines the identifier, reference, repository and error
// primitives shared by the satcore persistence backends and services.
package domain

import (
	"context"
	"strconv"
)

// ID is an opaque per-table record identifier. It is assigned once by a
// repository on the first successful insert and never changes afterwards.
type ID int64

// String renders the identifier in base 10.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Identifiable is implemented by every persisted entity. ID reports false
// until the record has been assigned an identifier.
type Identifiable interface {
	ID() (ID, bool)
	SetID(ID)
}

// Entity constrains a pointer-to-struct entity that repositories can store.
// Clone returns a deep copy so backends never alias caller-owned values.
type Entity[T any] interface {
	*T
	Identifiable
	Clone() *T
}

// Ref is a typed, non-owning reference to a record of entity kind T. The type
// parameter only marks the target kind; a Ref never implies the target exists.
type Ref[T any] struct {
	ID ID
}

// RefTo builds a reference to the record identified by id.
func RefTo[T any](id ID) Ref[T] { return Ref[T]{ID: id} }

// Resolve looks the referenced record up in repo. Dangling references report
// ok=false without an error.
func (r Ref[T]) Resolve(ctx context.Context, repo Repository[*T]) (*T, bool, error) {
	return repo.Get(ctx, r.ID)
}

// String renders the underlying identifier.
func (r Ref[T]) String() string { return r.ID.String() }
