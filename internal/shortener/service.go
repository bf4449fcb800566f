package shortener

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxAttempts is the number of candidate keys tried before giving up.
	DefaultMaxAttempts = 10
	// DefaultLookupTimeout bounds a shared store lookup in Resolve.
	DefaultLookupTimeout = 5 * time.Second
)

// Config holds the tunables of a Service.
type Config struct {
	// BaseURL is the public origin serving redirects, e.g. "http://localhost:8888".
	BaseURL string
	// DisplayBase is prepended to a key for the human friendly form, e.g. "eaziurl.fz/".
	DisplayBase string
	// MaxAttempts bounds key generation retries. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// LookupTimeout bounds a shared store lookup in Resolve. Zero means DefaultLookupTimeout.
	LookupTimeout time.Duration
}

// EncodeRequest is the input of Service.Encode.
type EncodeRequest struct {
	LongURL   string
	Title     string
	Principal PrincipalID
}

// Encoded is the outcome of Service.Encode.
type Encoded struct {
	Code       Code
	LongURL    string
	RealURL    string
	DisplayURL string
	// Title is the title stored for the principal, empty for anonymous callers.
	Title string
	// Created is true when this call created the canonical mapping.
	Created bool
}

// Service orchestrates encode and resolve requests across the repository and the cache.
type Service struct {
	repo          Repository
	cache         Cache
	generate      KeyGenerator
	baseURL       string
	displayBase   string
	maxAttempts   int
	lookupTimeout time.Duration
	logger        *zap.Logger
	resolving     singleflight.Group
	now           func() time.Time
}

// NewService creates a shortener service.
func NewService(repo Repository, cache Cache, generate KeyGenerator, cfg Config, logger *zap.Logger) *Service {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}

	return &Service{
		repo:          repo,
		cache:         cache,
		generate:      generate,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		displayBase:   cfg.DisplayBase,
		maxAttempts:   maxAttempts,
		lookupTimeout: lookupTimeout,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Encode returns the canonical short key for req.LongURL, creating the mapping on first use,
// and records req.Title for req.Principal when one is given.
func (s *Service) Encode(ctx context.Context, req EncodeRequest) (*Encoded, error) {
	if err := ValidateURL(req.LongURL); err != nil {
		return nil, err
	}

	if err := ValidateTitle(req.Title); err != nil {
		return nil, err
	}

	if code, ok := s.cachedCode(ctx, req.LongURL); ok {
		title, err := s.confirm(ctx, req, code)
		if err == nil {
			return s.encoded(code, req.LongURL, title, false), nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		s.logger.Warn("cached mapping missing from store",
			zap.String("code", string(code)),
			zap.String("long_url", req.LongURL),
		)
	}

	mapping, err := s.repo.FindByLongURL(ctx, req.LongURL)
	if err == nil {
		title, linkErr := s.link(ctx, s.repo, req, mapping.Code)
		if linkErr != nil {
			return nil, linkErr
		}

		s.remember(ctx, mapping.Code, mapping.LongURL)

		return s.encoded(mapping.Code, mapping.LongURL, title, false), nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find by long url: %w", err)
	}

	mapping, title, created, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.remember(ctx, mapping.Code, mapping.LongURL)

	return s.encoded(mapping.Code, mapping.LongURL, title, created), nil
}

// confirm checks a cached code against the store before it is handed out.
// Principals are confirmed by their link upsert; anonymous callers by reading the mapping back.
func (s *Service) confirm(ctx context.Context, req EncodeRequest, code Code) (string, error) {
	if !req.Principal.Anonymous() {
		return s.link(ctx, s.repo, req, code)
	}

	mapping, err := s.repo.FindByShortKey(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("confirm cached key: %w", err)
	}

	if mapping.LongURL != req.LongURL {
		return "", ErrNotFound
	}

	return "", nil
}

// create inserts a fresh mapping together with the principal's link.
// Key collisions are retried with a new candidate; losing a long URL race adopts the winner.
func (s *Service) create(ctx context.Context, req EncodeRequest) (*Mapping, string, bool, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", false, err
		}

		code := Code(s.generate())

		taken, err := s.repo.Exists(ctx, code)
		if err != nil {
			return nil, "", false, fmt.Errorf("check key: %w", err)
		}

		if taken {
			s.logger.Debug("candidate key taken", zap.String("code", string(code)), zap.Int("attempt", attempt))

			continue
		}

		mapping := &Mapping{
			Code:      code,
			LongURL:   req.LongURL,
			CreatedBy: req.Principal,
			CreatedAt: s.now(),
		}

		var title string

		err = s.repo.WithinTx(ctx, func(tx Repository) error {
			if err := tx.Create(ctx, mapping); err != nil {
				return err
			}

			linked, err := s.link(ctx, tx, req, mapping.Code)
			title = linked

			return err
		})

		switch {
		case err == nil:
			s.logger.Info("mapping created",
				zap.String("code", string(mapping.Code)),
				zap.Int("attempt", attempt),
			)

			return mapping, title, true, nil
		case errors.Is(err, ErrDuplicateKey):
			s.logger.Debug("key collision on create", zap.String("code", string(code)), zap.Int("attempt", attempt))

			continue
		case errors.Is(err, ErrDuplicateLongURL):
			return s.adopt(ctx, req)
		default:
			return nil, "", false, fmt.Errorf("create mapping: %w", err)
		}
	}

	s.logger.Error("no free short key within retry budget", zap.Int("attempts", s.maxAttempts))

	return nil, "", false, ErrKeyspaceExhausted
}

// adopt reuses the mapping of a concurrent writer that created req.LongURL first.
func (s *Service) adopt(ctx context.Context, req EncodeRequest) (*Mapping, string, bool, error) {
	winner, err := s.repo.FindByLongURL(ctx, req.LongURL)
	if err != nil {
		return nil, "", false, fmt.Errorf("read winning mapping: %w", err)
	}

	title, err := s.link(ctx, s.repo, req, winner.Code)
	if err != nil {
		return nil, "", false, err
	}

	return winner, title, false, nil
}

// Resolve returns the long URL behind code.
// Concurrent misses for the same code share one store lookup, which outlives any single caller.
func (s *Service) Resolve(ctx context.Context, code Code) (string, error) {
	if !ValidCode(code) {
		return "", ErrNotFound
	}

	longURL, err := s.cache.GetByShortKey(ctx, code)
	if err == nil {
		return longURL, nil
	}

	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("cache lookup by short key failed", zap.String("code", string(code)), zap.Error(err))
	}

	ch := s.resolving.DoChan(string(code), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()

		mapping, err := s.repo.FindByShortKey(lookupCtx, code)
		if err != nil {
			return "", err
		}

		s.remember(lookupCtx, mapping.Code, mapping.LongURL)

		return mapping.LongURL, nil
	})

	var res singleflight.Result

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if errors.Is(res.Err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("find by short key: %w", res.Err)
	}

	return res.Val.(string), nil
}

// ListLinks yields every link the principal has encoded, oldest mapping first.
func (s *Service) ListLinks(ctx context.Context, principal PrincipalID) iter.Seq2[Link, error] {
	return s.repo.ListForPrincipal(ctx, principal)
}

// Retitle stores a title for an existing mapping on behalf of principal.
func (s *Service) Retitle(ctx context.Context, principal PrincipalID, code Code, title string) (*UserLink, error) {
	if principal.Anonymous() {
		return nil, fmt.Errorf("%w: principal required", ErrInvalidTitle)
	}

	if title == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTitle)
	}

	if err := ValidateTitle(title); err != nil {
		return nil, err
	}

	if !ValidCode(code) {
		return nil, ErrNotFound
	}

	return s.repo.Upsert(ctx, &UserLink{Principal: principal, Code: code, Title: title})
}

// RealURL returns the redirecting URL for code.
func (s *Service) RealURL(code Code) string {
	return s.baseURL + "/" + string(code)
}

// DisplayURL returns the human friendly form of code.
func (s *Service) DisplayURL(code Code) string {
	return s.displayBase + string(code)
}

// link records the principal's association with code and returns the title now stored for it.
func (s *Service) link(ctx context.Context, repo Repository, req EncodeRequest, code Code) (string, error) {
	if req.Principal.Anonymous() {
		return "", nil
	}

	stored, err := repo.Upsert(ctx, &UserLink{Principal: req.Principal, Code: code, Title: req.Title})
	if err != nil {
		return "", fmt.Errorf("upsert link: %w", err)
	}

	return stored.Title, nil
}

func (s *Service) cachedCode(ctx context.Context, longURL string) (Code, bool) {
	code, err := s.cache.GetByLongURL(ctx, longURL)
	if err == nil {
		return code, true
	}

	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("cache lookup by long url failed", zap.Error(err))
	}

	return "", false
}

// remember writes both cache directions. Failures only cost latency, so they are logged.
func (s *Service) remember(ctx context.Context, code Code, longURL string) {
	if err := s.cache.SetByLongURL(ctx, longURL, code); err != nil {
		s.logger.Warn("cache write by long url failed", zap.String("code", string(code)), zap.Error(err))
	}

	if err := s.cache.SetByShortKey(ctx, code, longURL); err != nil {
		s.logger.Warn("cache write by short key failed", zap.String("code", string(code)), zap.Error(err))
	}
}

func (s *Service) encoded(code Code, longURL, title string, created bool) *Encoded {
	return &Encoded{
		Code:       code,
		LongURL:    longURL,
		Title:      title,
		RealURL:    s.RealURL(code),
		DisplayURL: s.DisplayURL(code),
		Created:    created,
	}
}
