package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/types"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool. All statements
// are parameter-bound, including the dynamic admin list filters.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// NewPostgresStore connects a pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, cfg Config, log *logrus.Entry) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("could not create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not reach database: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  log.WithField("module", "database"),
	}, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping reports backend liveness, used by the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withTx runs fn inside a transaction, committing on success.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isUniqueViolation reports whether err is a unique constraint hit.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// addrText converts an optional address to its nullable canonical text form.
func addrText(a *types.Address) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

// parseAddr converts a nullable text column back to an optional address.
func parseAddr(s *string) (*types.Address, error) {
	if s == nil {
		return nil, nil
	}
	a, err := types.HexToAddress(*s)
	if err != nil {
		return nil, fmt.Errorf("corrupt address column %q: %w", *s, err)
	}
	return &a, nil
}

// parsePubkey converts a text column back to a public key.
func parsePubkey(s string) (types.PublicKey, error) {
	p, err := types.HexToPubkey(s)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("corrupt public key column %q: %w", s, err)
	}
	return p, nil
}

// condBuilder accumulates parameter-bound WHERE conditions.
type condBuilder struct {
	conds []string
	args  []any
}

func (b *condBuilder) add(expr string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(expr, len(b.args)))
}

// where renders the accumulated conditions, or an empty string.
func (b *condBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	out := " WHERE " + b.conds[0]
	for _, c := range b.conds[1:] {
		out += " AND " + c
	}
	return out
}

// bind appends an argument out of band (LIMIT/OFFSET, trailing WHERE) and
// returns its placeholder.
func (b *condBuilder) bind(arg any) string {
	b.args = append(b.args, arg)
	return fmt.Sprintf("$%d", len(b.args))
}
