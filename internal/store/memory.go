package store

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/serroba/eaziurl/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
// Uniqueness of short keys and long URLs is enforced under a single lock.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewMemoryStore creates a new in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			byCode: make(map[shortener.Code]*shortener.Mapping),
			byLong: make(map[string]shortener.Code),
			links:  make(map[linkKey]*shortener.UserLink),
			now:    func() time.Time { return time.Now().UTC() },
		},
	}
}

func (m *MemoryStore) FindByLongURL(_ context.Context, longURL string) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.findByLongURL(longURL)
}

func (m *MemoryStore) FindByShortKey(_ context.Context, code shortener.Code) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.findByShortKey(code)
}

func (m *MemoryStore) Exists(_ context.Context, code shortener.Code) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.state.byCode[code]

	return ok, nil
}

func (m *MemoryStore) Create(_ context.Context, mapping *shortener.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.state.create(mapping)

	return err
}

func (m *MemoryStore) Upsert(_ context.Context, link *shortener.UserLink) (*shortener.UserLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, _, err := m.state.upsert(link)

	return stored, err
}

func (m *MemoryStore) ListForPrincipal(ctx context.Context, principal shortener.PrincipalID) iter.Seq2[shortener.Link, error] {
	return func(yield func(shortener.Link, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(shortener.Link{}, err)

			return
		}

		// Snapshot under the lock so the consumer may call back into the store while ranging.
		m.mu.RLock()
		links := m.state.list(principal)
		m.mu.RUnlock()

		for _, link := range links {
			if !yield(link, nil) {
				return
			}
		}
	}
}

// WithinTx holds the write lock while fn runs and undoes its writes if fn fails.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(repo shortener.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{state: m.state}

	if err := fn(tx); err != nil {
		tx.rollback()

		return err
	}

	return nil
}

// MappingCount returns the number of canonical mappings.
func (m *MemoryStore) MappingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.state.byCode)
}

type linkKey struct {
	principal shortener.PrincipalID
	code      shortener.Code
}

// memoryState holds the tables. Callers are responsible for locking.
type memoryState struct {
	nextID int64
	byCode map[shortener.Code]*shortener.Mapping
	byLong map[string]shortener.Code
	links  map[linkKey]*shortener.UserLink
	now    func() time.Time
}

func (s *memoryState) findByLongURL(longURL string) (*shortener.Mapping, error) {
	code, ok := s.byLong[longURL]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return s.findByShortKey(code)
}

func (s *memoryState) findByShortKey(code shortener.Code) (*shortener.Mapping, error) {
	mapping, ok := s.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	cp := *mapping

	return &cp, nil
}

func (s *memoryState) create(mapping *shortener.Mapping) (func(), error) {
	if _, ok := s.byCode[mapping.Code]; ok {
		return nil, shortener.ErrDuplicateKey
	}

	if _, ok := s.byLong[mapping.LongURL]; ok {
		return nil, shortener.ErrDuplicateLongURL
	}

	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = s.now()
	}

	s.nextID++
	mapping.ID = s.nextID

	cp := *mapping
	s.byCode[cp.Code] = &cp
	s.byLong[cp.LongURL] = cp.Code

	undo := func() {
		delete(s.byCode, cp.Code)
		delete(s.byLong, cp.LongURL)
	}

	return undo, nil
}

func (s *memoryState) upsert(link *shortener.UserLink) (*shortener.UserLink, func(), error) {
	if _, ok := s.byCode[link.Code]; !ok {
		return nil, nil, shortener.ErrNotFound
	}

	key := linkKey{principal: link.Principal, code: link.Code}
	now := s.now()

	existing, ok := s.links[key]
	if !ok {
		stored := &shortener.UserLink{
			Principal: link.Principal,
			Code:      link.Code,
			Title:     link.Title,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.links[key] = stored

		cp := *stored

		return &cp, func() { delete(s.links, key) }, nil
	}

	previous := *existing

	if link.Title != "" && link.Title != existing.Title {
		existing.Title = link.Title
		existing.UpdatedAt = now
	}

	cp := *existing

	return &cp, func() { *existing = previous }, nil
}

func (s *memoryState) list(principal shortener.PrincipalID) []shortener.Link {
	var links []shortener.Link

	for key, link := range s.links {
		if key.principal != principal {
			continue
		}

		links = append(links, shortener.Link{
			Mapping:   *s.byCode[key.code],
			Title:     link.Title,
			UpdatedAt: link.UpdatedAt,
		})
	}

	slices.SortFunc(links, func(a, b shortener.Link) int {
		if c := a.Mapping.CreatedAt.Compare(b.Mapping.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.Mapping.ID, b.Mapping.ID)
	})

	return links
}

// memoryTx is the view of a MemoryStore handed to WithinTx callbacks.
// The store's write lock is already held, so it touches the state directly.
type memoryTx struct {
	state *memoryState
	undo  []func()
}

func (t *memoryTx) FindByLongURL(_ context.Context, longURL string) (*shortener.Mapping, error) {
	return t.state.findByLongURL(longURL)
}

func (t *memoryTx) FindByShortKey(_ context.Context, code shortener.Code) (*shortener.Mapping, error) {
	return t.state.findByShortKey(code)
}

func (t *memoryTx) Exists(_ context.Context, code shortener.Code) (bool, error) {
	_, ok := t.state.byCode[code]

	return ok, nil
}

func (t *memoryTx) Create(_ context.Context, mapping *shortener.Mapping) error {
	undo, err := t.state.create(mapping)
	if err != nil {
		return err
	}

	t.undo = append(t.undo, undo)

	return nil
}

func (t *memoryTx) Upsert(_ context.Context, link *shortener.UserLink) (*shortener.UserLink, error) {
	stored, undo, err := t.state.upsert(link)
	if err != nil {
		return nil, err
	}

	t.undo = append(t.undo, undo)

	return stored, nil
}

func (t *memoryTx) ListForPrincipal(_ context.Context, principal shortener.PrincipalID) iter.Seq2[shortener.Link, error] {
	links := t.state.list(principal)

	return func(yield func(shortener.Link, error) bool) {
		for _, link := range links {
			if !yield(link, nil) {
				return
			}
		}
	}
}

func (t *memoryTx) WithinTx(_ context.Context, fn func(repo shortener.Repository) error) error {
	return fn(t)
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}

	t.undo = nil
}

// Compile-time checks.
var (
	_ shortener.Repository = (*MemoryStore)(nil)
	_ shortener.Repository = (*memoryTx)(nil)
)
