package store

import (
	"context"
	"errors"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/eaziurl/internal/shortener"
)

const (
	uniqueViolation = "23505"

	constraintShortKey = "mappings_short_key_key"
	constraintURLHash  = "mappings_url_hash_key"
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

// NewPostgresStore creates a new PostgreSQL-backed repository.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func (p *PostgresStore) FindByLongURL(ctx context.Context, longURL string) (*shortener.Mapping, error) {
	query := `
		SELECT id, short_key, long_url, created_by, created_at
		FROM mappings
		WHERE url_hash = $1 AND long_url = $2
	`

	return p.scanMapping(p.db.QueryRow(ctx, query, shortener.HashURL(longURL), longURL))
}

func (p *PostgresStore) FindByShortKey(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	query := `
		SELECT id, short_key, long_url, created_by, created_at
		FROM mappings
		WHERE short_key = $1
	`

	return p.scanMapping(p.db.QueryRow(ctx, query, string(code)))
}

func (p *PostgresStore) Exists(ctx context.Context, code shortener.Code) (bool, error) {
	var exists bool

	err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mappings WHERE short_key = $1)`, string(code)).
		Scan(&exists)

	return exists, err
}

func (p *PostgresStore) Create(ctx context.Context, mapping *shortener.Mapping) error {
	query := `
		INSERT INTO mappings (short_key, long_url, url_hash, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := p.db.QueryRow(ctx, query,
		string(mapping.Code),
		mapping.LongURL,
		shortener.HashURL(mapping.LongURL),
		nullablePrincipal(mapping.CreatedBy),
		mapping.CreatedAt,
	).Scan(&mapping.ID)

	return translateError(err)
}

func (p *PostgresStore) Upsert(ctx context.Context, link *shortener.UserLink) (*shortener.UserLink, error) {
	query := `
		INSERT INTO user_links (principal_id, mapping_id, title)
		SELECT $1, m.id, $3
		FROM mappings m
		WHERE m.short_key = $2
		ON CONFLICT (principal_id, mapping_id) DO UPDATE
		SET title = CASE WHEN EXCLUDED.title = '' THEN user_links.title ELSE EXCLUDED.title END,
		    updated_at = CASE
		        WHEN EXCLUDED.title = '' OR EXCLUDED.title = user_links.title THEN user_links.updated_at
		        ELSE now()
		    END
		RETURNING title, created_at, updated_at
	`

	stored := &shortener.UserLink{Principal: link.Principal, Code: link.Code}

	err := p.db.QueryRow(ctx, query, string(link.Principal), string(link.Code), link.Title).
		Scan(&stored.Title, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return stored, nil
}

func (p *PostgresStore) ListForPrincipal(ctx context.Context, principal shortener.PrincipalID) iter.Seq2[shortener.Link, error] {
	query := `
		SELECT m.id, m.short_key, m.long_url, m.created_by, m.created_at, l.title, l.updated_at
		FROM user_links l
		JOIN mappings m ON m.id = l.mapping_id
		WHERE l.principal_id = $1
		ORDER BY m.created_at, m.id
	`

	return func(yield func(shortener.Link, error) bool) {
		rows, err := p.db.Query(ctx, query, string(principal))
		if err != nil {
			yield(shortener.Link{}, err)

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				link      shortener.Link
				createdBy *string
			)

			err := rows.Scan(
				&link.Mapping.ID,
				&link.Mapping.Code,
				&link.Mapping.LongURL,
				&createdBy,
				&link.Mapping.CreatedAt,
				&link.Title,
				&link.UpdatedAt,
			)
			if err != nil {
				yield(shortener.Link{}, err)

				return
			}

			if createdBy != nil {
				link.Mapping.CreatedBy = shortener.PrincipalID(*createdBy)
			}

			if !yield(link, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(shortener.Link{}, err)
		}
	}
}

// WithinTx runs fn inside a database transaction. Nested calls join the outer transaction.
func (p *PostgresStore) WithinTx(ctx context.Context, fn func(repo shortener.Repository) error) error {
	if p.pool == nil {
		return fn(p)
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: tx})
	})
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}

	return p.pool.Ping(ctx)
}

func (p *PostgresStore) scanMapping(row pgx.Row) (*shortener.Mapping, error) {
	var (
		mapping   shortener.Mapping
		createdBy *string
	)

	err := row.Scan(
		&mapping.ID,
		&mapping.Code,
		&mapping.LongURL,
		&createdBy,
		&mapping.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	if createdBy != nil {
		mapping.CreatedBy = shortener.PrincipalID(*createdBy)
	}

	return &mapping, nil
}

// translateError maps unique constraint violations onto the shortener duplicate errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintShortKey:
		return shortener.ErrDuplicateKey
	case constraintURLHash:
		return shortener.ErrDuplicateLongURL
	default:
		return err
	}
}

func nullablePrincipal(p shortener.PrincipalID) *string {
	if p.Anonymous() {
		return nil
	}

	s := string(p)

	return &s
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
