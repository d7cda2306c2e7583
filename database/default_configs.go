package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const defaultConfigColumns = "name, fee_recipient, gas_limit, min_value, active, created_at, updated_at"

func scanDefaultConfig(row pgx.Row) (*DefaultConfig, error) {
	var (
		cfg DefaultConfig
		fee *string
	)
	if err := row.Scan(&cfg.Name, &fee, &cfg.GasLimit, &cfg.MinValue, &cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	addr, err := parseAddr(fee)
	if err != nil {
		return nil, err
	}
	cfg.FeeRecipient = addr
	return &cfg, nil
}

func (s *PostgresStore) GetDefaultConfig(ctx context.Context, name string) (*DefaultConfig, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+defaultConfigColumns+" FROM vouch_default_configs WHERE name = $1", name)
	cfg, err := scanDefaultConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cfg, err
}

func (s *PostgresStore) GetActiveDefaultConfig(ctx context.Context, name string) (*DefaultConfig, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+defaultConfigColumns+" FROM vouch_default_configs WHERE name = $1 AND active = true", name)
	cfg, err := scanDefaultConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cfg, err
}

func (s *PostgresStore) ListDefaultConfigs(ctx context.Context, filter DefaultConfigFilter) ([]DefaultConfig, int64, error) {
	b := &condBuilder{}
	if filter.NamePrefix != "" {
		b.add("name LIKE $%d", filter.NamePrefix+"%")
	}
	if filter.FeeRecipient != nil {
		b.add("fee_recipient = $%d", filter.FeeRecipient.String())
	}
	if filter.GasLimit != nil {
		b.add("gas_limit = $%d", *filter.GasLimit)
	}
	if filter.MinValue != nil {
		b.add("min_value = $%d", *filter.MinValue)
	}
	if filter.Active != nil {
		b.add("active = $%d", *filter.Active)
	}
	where := b.where()

	var total int64
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM vouch_default_configs"+where, b.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM vouch_default_configs%s ORDER BY name ASC LIMIT %s OFFSET %s",
		defaultConfigColumns, where, b.bind(filter.Limit), b.bind(filter.Offset))
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var configs []DefaultConfig
	for rows.Next() {
		cfg, err := scanDefaultConfig(rows)
		if err != nil {
			return nil, 0, err
		}
		configs = append(configs, *cfg)
	}
	return configs, total, rows.Err()
}

func (s *PostgresStore) CreateDefaultConfig(ctx context.Context, cfg DefaultConfig, relays []DefaultRelay) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouch_default_configs (name, fee_recipient, gas_limit, min_value, active)
			 VALUES ($1, $2, $3, $4, $5)`,
			cfg.Name, addrText(cfg.FeeRecipient), cfg.GasLimit, cfg.MinValue, cfg.Active)
		if err != nil {
			return err
		}
		return insertDefaultRelays(ctx, tx, cfg.Name, relays)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("default config %q: %w", cfg.Name, ErrConflict)
	}
	return err
}

func (s *PostgresStore) UpdateDefaultConfig(ctx context.Context, name string, update DefaultConfigUpdate) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM vouch_default_configs WHERE name = $1)", name).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("default config %q: %w", name, ErrNotFound)
		}

		b := &condBuilder{}
		if update.FeeRecipient != nil {
			b.add("fee_recipient = $%d", update.FeeRecipient.String())
		}
		if update.GasLimit != nil {
			b.add("gas_limit = $%d", *update.GasLimit)
		}
		if update.MinValue != nil {
			b.add("min_value = $%d", *update.MinValue)
		}
		if update.Active != nil {
			b.add("active = $%d", *update.Active)
		}
		if len(b.conds) > 0 {
			set := b.conds[0]
			for _, c := range b.conds[1:] {
				set += ", " + c
			}
			query := fmt.Sprintf("UPDATE vouch_default_configs SET %s, updated_at = NOW() WHERE name = %s",
				set, b.bind(name))
			if _, err := tx.Exec(ctx, query, b.args...); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx,
				"UPDATE vouch_default_configs SET updated_at = NOW() WHERE name = $1", name); err != nil {
				return err
			}
		}

		// A non-nil relay list replaces the whole child collection within
		// this transaction, so readers never observe it half-empty.
		if update.Relays != nil {
			if _, err := tx.Exec(ctx,
				"DELETE FROM vouch_default_relays WHERE config_name = $1", name); err != nil {
				return err
			}
			return insertDefaultRelays(ctx, tx, name, update.Relays)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteDefaultConfig(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM vouch_default_configs WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("default config %q: %w", name, ErrNotFound)
	}
	return nil
}

const defaultRelayColumns = "config_name, url, public_key, fee_recipient, gas_limit, min_value"

func scanDefaultRelays(rows pgx.Rows) ([]DefaultRelay, error) {
	defer rows.Close()

	var relays []DefaultRelay
	for rows.Next() {
		var (
			r      DefaultRelay
			pubkey string
			fee    *string
		)
		if err := rows.Scan(&r.ConfigName, &r.URL, &pubkey, &fee, &r.GasLimit, &r.MinValue); err != nil {
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

func (s *PostgresStore) GetDefaultRelays(ctx context.Context, configName string) ([]DefaultRelay, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+defaultRelayColumns+" FROM vouch_default_relays WHERE config_name = $1", configName)
	if err != nil {
		return nil, err
	}
	return scanDefaultRelays(rows)
}

func (s *PostgresStore) GetDefaultRelaysBulk(ctx context.Context, configNames []string) ([]DefaultRelay, error) {
	if len(configNames) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+defaultRelayColumns+" FROM vouch_default_relays WHERE config_name = ANY($1)", configNames)
	if err != nil {
		return nil, err
	}
	return scanDefaultRelays(rows)
}

func insertDefaultRelays(ctx context.Context, tx pgx.Tx, configName string, relays []DefaultRelay) error {
	for _, r := range relays {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouch_default_relays (config_name, url, public_key, fee_recipient, gas_limit, min_value)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			configName, r.URL, r.PublicKey.String(), addrText(r.FeeRecipient), r.GasLimit, r.MinValue)
		if err != nil {
			return err
		}
	}
	return nil
}
