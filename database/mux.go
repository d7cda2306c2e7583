package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ethvouch/fee-manager/types"
)

func (s *PostgresStore) GetMuxConfig(ctx context.Context, name string) (*MuxConfig, error) {
	var cfg MuxConfig
	err := s.pool.QueryRow(ctx,
		"SELECT name, created_at, updated_at FROM commit_boost_mux_configs WHERE name = $1", name).
		Scan(&cfg.Name, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mux config %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *PostgresStore) ListMuxConfigs(ctx context.Context, page Pagination) ([]MuxConfig, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM commit_boost_mux_configs").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		"SELECT name, created_at, updated_at FROM commit_boost_mux_configs ORDER BY name ASC LIMIT $1 OFFSET $2",
		page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var configs []MuxConfig
	for rows.Next() {
		var cfg MuxConfig
		if err := rows.Scan(&cfg.Name, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, 0, err
		}
		configs = append(configs, cfg)
	}
	return configs, total, rows.Err()
}

func (s *PostgresStore) CreateMuxConfig(ctx context.Context, name string, keys []types.PublicKey) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"INSERT INTO commit_boost_mux_configs (name) VALUES ($1)", name); err != nil {
			return err
		}
		return insertMuxKeys(ctx, tx, name, keys)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("mux config %q: %w", name, ErrConflict)
	}
	return err
}

func (s *PostgresStore) DeleteMuxConfig(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM commit_boost_mux_configs WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mux config %q: %w", name, ErrNotFound)
	}
	return nil
}

// GetMuxKeys returns the member keys in insertion order.
func (s *PostgresStore) GetMuxKeys(ctx context.Context, name string) ([]types.PublicKey, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT public_key FROM commit_boost_mux_keys WHERE mux_name = $1 ORDER BY id", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []types.PublicKey
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		pk, err := parsePubkey(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, pk)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) CountMuxKeys(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM commit_boost_mux_keys WHERE mux_name = $1", name).Scan(&count)
	return count, err
}

// ReplaceMuxKeys clears and repopulates the set in one transaction, so a
// concurrent reader never observes the intermediate empty state.
func (s *PostgresStore) ReplaceMuxKeys(ctx context.Context, name string, keys []types.PublicKey) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"DELETE FROM commit_boost_mux_keys WHERE mux_name = $1", name); err != nil {
			return err
		}
		if err := insertMuxKeys(ctx, tx, name, keys); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			"UPDATE commit_boost_mux_configs SET updated_at = NOW() WHERE name = $1", name)
		return err
	})
}

// AddMuxKeys inserts only keys not already present and returns the number
// actually inserted. Duplicates are skipped, not errors.
func (s *PostgresStore) AddMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error) {
	var added int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		for _, key := range keys {
			tag, err := tx.Exec(ctx,
				`INSERT INTO commit_boost_mux_keys (mux_name, public_key) VALUES ($1, $2)
				 ON CONFLICT (mux_name, public_key) DO NOTHING`,
				name, key.String())
			if err != nil {
				return err
			}
			added += tag.RowsAffected()
		}
		_, err := tx.Exec(ctx,
			"UPDATE commit_boost_mux_configs SET updated_at = NOW() WHERE name = $1", name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveMuxKeys deletes only keys actually present and returns the number
// removed.
func (s *PostgresStore) RemoveMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"DELETE FROM commit_boost_mux_keys WHERE mux_name = $1 AND public_key = ANY($2)",
			name, types.PubkeysToStrings(keys))
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()
		_, err = tx.Exec(ctx,
			"UPDATE commit_boost_mux_configs SET updated_at = NOW() WHERE name = $1", name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func insertMuxKeys(ctx context.Context, tx pgx.Tx, name string, keys []types.PublicKey) error {
	for _, key := range keys {
		_, err := tx.Exec(ctx,
			`INSERT INTO commit_boost_mux_keys (mux_name, public_key) VALUES ($1, $2)
			 ON CONFLICT (mux_name, public_key) DO NOTHING`,
			name, key.String())
		if err != nil {
			return err
		}
	}
	return nil
}
