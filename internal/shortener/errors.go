package shortener

import "errors"

var (
	// ErrNotFound is returned when a short key or long URL has no mapping.
	ErrNotFound = errors.New("mapping not found")
	// ErrDuplicateKey is returned by a store when the short key is already taken.
	ErrDuplicateKey = errors.New("short key already exists")
	// ErrDuplicateLongURL is returned by a store when the long URL already has a mapping.
	ErrDuplicateLongURL = errors.New("long url already mapped")
	// ErrKeyspaceExhausted is returned when no free short key was found within the retry budget.
	ErrKeyspaceExhausted = errors.New("short key space exhausted")
	// ErrInvalidURL is returned for long URLs that cannot be shortened.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidTitle is returned for titles that exceed storage constraints.
	ErrInvalidTitle = errors.New("invalid title")
	// ErrCacheMiss is returned by a Cache when it holds no entry for the key.
	ErrCacheMiss = errors.New("cache miss")
)
