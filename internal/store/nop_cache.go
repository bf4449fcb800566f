package store

import (
	"context"

	"github.com/serroba/eaziurl/internal/shortener"
)

// NopCache is a shortener.Cache that never holds anything.
type NopCache struct{}

func (NopCache) GetByLongURL(context.Context, string) (shortener.Code, error) {
	return "", shortener.ErrCacheMiss
}

func (NopCache) SetByLongURL(context.Context, string, shortener.Code) error {
	return nil
}

func (NopCache) GetByShortKey(context.Context, shortener.Code) (string, error) {
	return "", shortener.ErrCacheMiss
}

func (NopCache) SetByShortKey(context.Context, shortener.Code, string) error {
	return nil
}

// Compile-time check.
var _ shortener.Cache = NopCache{}
