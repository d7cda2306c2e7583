package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const authTokenColumns = "id, name, description, token_hash, created_at, last_used_at, active"

func scanAuthToken(row pgx.Row) (*AuthToken, error) {
	var t AuthToken
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.TokenHash, &t.CreatedAt, &t.LastUsedAt, &t.Active); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateAuthToken(ctx context.Context, token AuthToken) (*AuthToken, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO auth_tokens (id, name, description, token_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+authTokenColumns,
		token.ID, token.Name, token.Description, token.TokenHash)
	created, err := scanAuthToken(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("auth token %q: %w", token.Name, ErrConflict)
	}
	return created, err
}

func (s *PostgresStore) GetAuthToken(ctx context.Context, id uuid.UUID) (*AuthToken, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+authTokenColumns+" FROM auth_tokens WHERE id = $1", id)
	t, err := scanAuthToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) GetAuthTokenByHash(ctx context.Context, hash string) (*AuthToken, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+authTokenColumns+" FROM auth_tokens WHERE token_hash = $1", hash)
	t, err := scanAuthToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) ListAuthTokens(ctx context.Context) ([]AuthToken, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+authTokenColumns+" FROM auth_tokens ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []AuthToken
	for rows.Next() {
		t, err := scanAuthToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) DeleteAuthToken(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM auth_tokens WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auth token %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) TouchAuthToken(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, "UPDATE auth_tokens SET last_used_at = NOW() WHERE id = $1", id)
	return err
}

func (s *PostgresStore) CountAuthTokens(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM auth_tokens").Scan(&count)
	return count, err
}
