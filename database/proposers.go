package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ethvouch/fee-manager/types"
)

const proposerColumns = "public_key, fee_recipient, gas_limit, min_value, reset_relays, created_at, updated_at"

func scanProposer(row pgx.Row) (*Proposer, error) {
	var (
		p      Proposer
		pubkey string
		fee    *string
	)
	if err := row.Scan(&pubkey, &fee, &p.GasLimit, &p.MinValue, &p.ResetRelays, &p.CreatedAt, &p.UpdatedAt); err != nil {
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
	p.PublicKey = pk
	p.FeeRecipient = addr
	return &p, nil
}

func (s *PostgresStore) GetProposer(ctx context.Context, key types.PublicKey) (*Proposer, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+proposerColumns+" FROM vouch_proposers WHERE public_key = $1", key.String())
	p, err := scanProposer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetProposersBulk loads every proposer whose key appears in keys with a
// single query. Keys without a row are simply absent from the result.
func (s *PostgresStore) GetProposersBulk(ctx context.Context, keys []types.PublicKey) ([]Proposer, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+proposerColumns+" FROM vouch_proposers WHERE public_key = ANY($1)",
		types.PubkeysToStrings(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposers []Proposer
	for rows.Next() {
		p, err := scanProposer(rows)
		if err != nil {
			return nil, err
		}
		proposers = append(proposers, *p)
	}
	return proposers, rows.Err()
}

func (s *PostgresStore) ListProposers(ctx context.Context, filter ProposerFilter) ([]Proposer, int64, error) {
	b := &condBuilder{}
	if filter.FeeRecipient != nil {
		b.add("fee_recipient = $%d", filter.FeeRecipient.String())
	}
	if filter.GasLimit != nil {
		b.add("gas_limit = $%d", *filter.GasLimit)
	}
	if filter.MinValue != nil {
		b.add("min_value = $%d", *filter.MinValue)
	}
	if filter.ResetRelays != nil {
		b.add("reset_relays = $%d", *filter.ResetRelays)
	}
	where := b.where()

	var total int64
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM vouch_proposers"+where, b.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM vouch_proposers%s ORDER BY public_key ASC LIMIT %s OFFSET %s",
		proposerColumns, where, b.bind(filter.Limit), b.bind(filter.Offset))
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var proposers []Proposer
	for rows.Next() {
		p, err := scanProposer(rows)
		if err != nil {
			return nil, 0, err
		}
		proposers = append(proposers, *p)
	}
	return proposers, total, rows.Err()
}

// UpsertProposer creates or fully updates a proposer. The relay child
// collection is always replaced as a whole, inside one transaction.
func (s *PostgresStore) UpsertProposer(ctx context.Context, p Proposer, relays []ProposerRelay) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouch_proposers (public_key, fee_recipient, gas_limit, min_value, reset_relays)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (public_key) DO UPDATE SET
			   fee_recipient = EXCLUDED.fee_recipient,
			   gas_limit = EXCLUDED.gas_limit,
			   min_value = EXCLUDED.min_value,
			   reset_relays = EXCLUDED.reset_relays,
			   updated_at = NOW()`,
			p.PublicKey.String(), addrText(p.FeeRecipient), p.GasLimit, p.MinValue, p.ResetRelays)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM vouch_proposer_relays WHERE proposer_public_key = $1", p.PublicKey.String()); err != nil {
			return err
		}
		for _, r := range relays {
			_, err := tx.Exec(ctx,
				`INSERT INTO vouch_proposer_relays (proposer_public_key, url, public_key, fee_recipient, gas_limit, min_value, disabled)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.PublicKey.String(), r.URL, r.PublicKey.String(), addrText(r.FeeRecipient), r.GasLimit, r.MinValue, r.Disabled)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) DeleteProposer(ctx context.Context, key types.PublicKey) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM vouch_proposers WHERE public_key = $1", key.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposer %s: %w", key, ErrNotFound)
	}
	return nil
}

const proposerRelayColumns = "proposer_public_key, url, public_key, fee_recipient, gas_limit, min_value, disabled"

func scanProposerRelays(rows pgx.Rows) ([]ProposerRelay, error) {
	defer rows.Close()

	var relays []ProposerRelay
	for rows.Next() {
		var (
			r        ProposerRelay
			owner    string
			pubkey   string
			fee      *string
			disabled bool
		)
		if err := rows.Scan(&owner, &r.URL, &pubkey, &fee, &r.GasLimit, &r.MinValue, &disabled); err != nil {
			return nil, err
		}
		ok, err := parsePubkey(owner)
		if err != nil {
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
		r.ProposerKey = ok
		r.PublicKey = pk
		r.FeeRecipient = addr
		r.Disabled = disabled
		relays = append(relays, r)
	}
	return relays, rows.Err()
}

func (s *PostgresStore) GetProposerRelays(ctx context.Context, key types.PublicKey) ([]ProposerRelay, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+proposerRelayColumns+" FROM vouch_proposer_relays WHERE proposer_public_key = $1", key.String())
	if err != nil {
		return nil, err
	}
	return scanProposerRelays(rows)
}

// GetProposerRelaysBulk loads the relays of every proposer in keys with one
// query; disabled relays are included.
func (s *PostgresStore) GetProposerRelaysBulk(ctx context.Context, keys []types.PublicKey) ([]ProposerRelay, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+proposerRelayColumns+" FROM vouch_proposer_relays WHERE proposer_public_key = ANY($1)",
		types.PubkeysToStrings(keys))
	if err != nil {
		return nil, err
	}
	return scanProposerRelays(rows)
}
