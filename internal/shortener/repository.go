package shortener

import (
	"context"
	"iter"
)

// MappingStore is the durable table of canonical mappings.
type MappingStore interface {
	FindByLongURL(ctx context.Context, longURL string) (*Mapping, error)
	FindByShortKey(ctx context.Context, code Code) (*Mapping, error)
	Exists(ctx context.Context, code Code) (bool, error)

	// Create inserts a new mapping and sets its ID.
	// Returns ErrDuplicateKey or ErrDuplicateLongURL when a uniqueness constraint is violated.
	Create(ctx context.Context, mapping *Mapping) error
}

// LinkIndex associates principals with mappings.
type LinkIndex interface {
	// Upsert inserts the association or updates its title. An empty title keeps the stored one.
	// Returns ErrNotFound when link.Code has no mapping.
	Upsert(ctx context.Context, link *UserLink) (*UserLink, error)

	// ListForPrincipal yields the principal's links ordered by mapping creation time.
	// The query runs each time the sequence is ranged over.
	ListForPrincipal(ctx context.Context, principal PrincipalID) iter.Seq2[Link, error]
}

// Repository groups the mapping store and link index behind one transaction boundary.
type Repository interface {
	MappingStore
	LinkIndex

	// WithinTx runs fn so that every write made through repo commits together or not at all.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// Cache accelerates lookups in both directions. It is never a source of truth.
// Getters return ErrCacheMiss when no entry exists.
type Cache interface {
	GetByLongURL(ctx context.Context, longURL string) (Code, error)
	SetByLongURL(ctx context.Context, longURL string, code Code) error
	GetByShortKey(ctx context.Context, code Code) (string, error)
	SetByShortKey(ctx context.Context, code Code, longURL string) error
}
