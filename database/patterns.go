package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const patternColumns = "name, pattern, tags, fee_recipient, gas_limit, min_value, reset_relays, created_at, updated_at"

func scanPattern(row pgx.Row) (*ProposerPattern, error) {
	var (
		p   ProposerPattern
		fee *string
	)
	if err := row.Scan(&p.Name, &p.Pattern, &p.Tags, &fee, &p.GasLimit, &p.MinValue, &p.ResetRelays, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	addr, err := parseAddr(fee)
	if err != nil {
		return nil, err
	}
	p.FeeRecipient = addr
	return &p, nil
}

func (s *PostgresStore) GetPattern(ctx context.Context, name string) (*ProposerPattern, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+patternColumns+" FROM vouch_proposer_patterns WHERE name = $1", name)
	p, err := scanPattern(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetPatternsByTags loads every pattern whose tag set intersects tags
// (Postgres array overlap, i.e. any shared tag qualifies). Return order is
// the store's order; the resolver imposes none beyond it.
func (s *PostgresStore) GetPatternsByTags(ctx context.Context, tags []string) ([]ProposerPattern, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+patternColumns+" FROM vouch_proposer_patterns WHERE tags && $1", tags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []ProposerPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

func (s *PostgresStore) ListPatterns(ctx context.Context, filter PatternFilter) ([]ProposerPattern, int64, error) {
	b := &condBuilder{}
	if filter.NamePrefix != "" {
		b.add("name LIKE $%d", filter.NamePrefix+"%")
	}
	if filter.Tag != "" {
		b.add("$%d = ANY(tags)", filter.Tag)
	}
	where := b.where()

	var total int64
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM vouch_proposer_patterns"+where, b.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM vouch_proposer_patterns%s ORDER BY name ASC LIMIT %s OFFSET %s",
		patternColumns, where, b.bind(filter.Limit), b.bind(filter.Offset))
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patterns []ProposerPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, 0, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, total, rows.Err()
}

func (s *PostgresStore) CreatePattern(ctx context.Context, p ProposerPattern, relays []PatternRelay) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouch_proposer_patterns (name, pattern, tags, fee_recipient, gas_limit, min_value, reset_relays)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.Name, p.Pattern, p.Tags, addrText(p.FeeRecipient), p.GasLimit, p.MinValue, p.ResetRelays)
		if err != nil {
			return err
		}
		return insertPatternRelays(ctx, tx, p.Name, relays)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("proposer pattern %q: %w", p.Name, ErrConflict)
	}
	return err
}

func (s *PostgresStore) UpdatePattern(ctx context.Context, name string, update PatternUpdate) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM vouch_proposer_patterns WHERE name = $1)", name).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("proposer pattern %q: %w", name, ErrNotFound)
		}

		b := &condBuilder{}
		if update.Pattern != nil {
			b.add("pattern = $%d", *update.Pattern)
		}
		if update.Tags != nil {
			b.add("tags = $%d", update.Tags)
		}
		if update.FeeRecipient != nil {
			b.add("fee_recipient = $%d", update.FeeRecipient.String())
		}
		if update.GasLimit != nil {
			b.add("gas_limit = $%d", *update.GasLimit)
		}
		if update.MinValue != nil {
			b.add("min_value = $%d", *update.MinValue)
		}
		if update.ResetRelays != nil {
			b.add("reset_relays = $%d", *update.ResetRelays)
		}
		if len(b.conds) > 0 {
			set := b.conds[0]
			for _, c := range b.conds[1:] {
				set += ", " + c
			}
			query := fmt.Sprintf("UPDATE vouch_proposer_patterns SET %s, updated_at = NOW() WHERE name = %s",
				set, b.bind(name))
			if _, err := tx.Exec(ctx, query, b.args...); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx,
				"UPDATE vouch_proposer_patterns SET updated_at = NOW() WHERE name = $1", name); err != nil {
				return err
			}
		}

		if update.Relays != nil {
			if _, err := tx.Exec(ctx,
				"DELETE FROM vouch_proposer_pattern_relays WHERE pattern_name = $1", name); err != nil {
				return err
			}
			return insertPatternRelays(ctx, tx, name, update.Relays)
		}
		return nil
	})
}

func (s *PostgresStore) DeletePattern(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM vouch_proposer_patterns WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposer pattern %q: %w", name, ErrNotFound)
	}
	return nil
}

const patternRelayColumns = "pattern_name, url, public_key, fee_recipient, gas_limit, min_value"

func scanPatternRelays(rows pgx.Rows) ([]PatternRelay, error) {
	defer rows.Close()

	var relays []PatternRelay
	for rows.Next() {
		var (
			r      PatternRelay
			pubkey string
			fee    *string
		)
		if err := rows.Scan(&r.PatternName, &r.URL, &pubkey, &fee, &r.GasLimit, &r.MinValue); err != nil {
			return nil, err
		}
		pk, err := parsePubkey(pubkey)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddr(fee)
		if err != nil {
			return nil, err
		}
		r.PublicKey = pk
		r.FeeRecipient = addr
		relays = append(relays, r)
	}
	return relays, rows.Err()
}

func (s *PostgresStore) GetPatternRelays(ctx context.Context, name string) ([]PatternRelay, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+patternRelayColumns+" FROM vouch_proposer_pattern_relays WHERE pattern_name = $1", name)
	if err != nil {
		return nil, err
	}
	return scanPatternRelays(rows)
}

func (s *PostgresStore) GetPatternRelaysBulk(ctx context.Context, names []string) ([]PatternRelay, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+patternRelayColumns+" FROM vouch_proposer_pattern_relays WHERE pattern_name = ANY($1)", names)
	if err != nil {
		return nil, err
	}
	return scanPatternRelays(rows)
}

func insertPatternRelays(ctx context.Context, tx pgx.Tx, patternName string, relays []PatternRelay) error {
	for _, r := range relays {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouch_proposer_pattern_relays (pattern_name, url, public_key, fee_recipient, gas_limit, min_value)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			patternName, r.URL, r.PublicKey.String(), addrText(r.FeeRecipient), r.GasLimit, r.MinValue)
		if err != nil {
			return err
		}
	}
	return nil
}
