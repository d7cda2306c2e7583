// Package database provides typed access to the fee-manager entities in
// Postgres: default configs, proposers, proposer patterns, their relay
// children, mux key sets, and auth tokens.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ethvouch/fee-manager/types"
)

var (
	// ErrNotFound is returned when a named entity does not exist (or, for
	// resolution, exists but is inactive).
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create hits an already-existing name.
	ErrConflict = errors.New("already exists")
)

// DefaultConfig is a named baseline fee/relay policy.
type DefaultConfig struct {
	Name         string
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultRelay is a relay child of a default config, unique by URL within
// its parent.
type DefaultRelay struct {
	ConfigName   string
	URL          string
	PublicKey    types.PublicKey
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
}

// Proposer is a per-validator override keyed by its public key.
type Proposer struct {
	PublicKey    types.PublicKey
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	ResetRelays  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProposerRelay is a relay child of a proposer, unique by URL within its
// parent. Disabled relays stay persisted and are passed through on
// resolution; filtering is the consumer's call.
type ProposerRelay struct {
	ProposerKey  types.PublicKey
	URL          string
	PublicKey    types.PublicKey
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	Disabled     bool
}

// ProposerPattern is a named rule carrying opaque regex text and a tag set.
// The pattern is never evaluated here.
type ProposerPattern struct {
	Name         string
	Pattern      string
	Tags         []string
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	ResetRelays  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PatternRelay is a relay child of a proposer pattern.
type PatternRelay struct {
	PatternName  string
	URL          string
	PublicKey    types.PublicKey
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
}

// MuxConfig is a named deduplicated set of validator public keys.
type MuxConfig struct {
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthToken is an admin bearer token. Only the SHA-256 hash is persisted.
type AuthToken struct {
	ID          uuid.UUID
	Name        string
	Description *string
	TokenHash   string
	CreatedAt   time.Time
	LastUsedAt  *time.Time
	Active      bool
}

// DefaultConfigFilter narrows admin default config listings. Zero values
// mean "no constraint". All filters are bound as query parameters.
type DefaultConfigFilter struct {
	NamePrefix   string
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	Active       *bool
	Limit        int64
	Offset       int64
}

// ProposerFilter narrows admin proposer listings.
type ProposerFilter struct {
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	ResetRelays  *bool
	Limit        int64
	Offset       int64
}

// PatternFilter narrows admin pattern listings.
type PatternFilter struct {
	NamePrefix string
	Tag        string
	Limit      int64
	Offset     int64
}

// Pagination bounds plain listings.
type Pagination struct {
	Limit  int64
	Offset int64
}

// DefaultConfigUpdate is a partial update; nil fields are left untouched.
// Relays, when non-nil, replaces the whole child collection.
type DefaultConfigUpdate struct {
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	Active       *bool
	Relays       []DefaultRelay
}

// PatternUpdate is a partial update for a proposer pattern.
type PatternUpdate struct {
	Pattern      *string
	Tags         []string
	FeeRecipient *types.Address
	GasLimit     *string
	MinValue     *string
	ResetRelays  *bool
	Relays       []PatternRelay
}

// Store is the typed persistence surface consumed by the resolution
// engine, the mux key set manager, the auth service and the admin
// handlers. Bulk lookups (by key list, by tag intersection) are
// first-class operations, not loops of single queries.
type Store interface {
	// Default configs.
	GetDefaultConfig(ctx context.Context, name string) (*DefaultConfig, error)
	GetActiveDefaultConfig(ctx context.Context, name string) (*DefaultConfig, error)
	ListDefaultConfigs(ctx context.Context, filter DefaultConfigFilter) ([]DefaultConfig, int64, error)
	CreateDefaultConfig(ctx context.Context, cfg DefaultConfig, relays []DefaultRelay) error
	UpdateDefaultConfig(ctx context.Context, name string, update DefaultConfigUpdate) error
	DeleteDefaultConfig(ctx context.Context, name string) error
	GetDefaultRelays(ctx context.Context, configName string) ([]DefaultRelay, error)
	GetDefaultRelaysBulk(ctx context.Context, configNames []string) ([]DefaultRelay, error)

	// Proposers.
	GetProposer(ctx context.Context, key types.PublicKey) (*Proposer, error)
	GetProposersBulk(ctx context.Context, keys []types.PublicKey) ([]Proposer, error)
	ListProposers(ctx context.Context, filter ProposerFilter) ([]Proposer, int64, error)
	UpsertProposer(ctx context.Context, p Proposer, relays []ProposerRelay) error
	DeleteProposer(ctx context.Context, key types.PublicKey) error
	GetProposerRelays(ctx context.Context, key types.PublicKey) ([]ProposerRelay, error)
	GetProposerRelaysBulk(ctx context.Context, keys []types.PublicKey) ([]ProposerRelay, error)

	// Proposer patterns.
	GetPattern(ctx context.Context, name string) (*ProposerPattern, error)
	GetPatternsByTags(ctx context.Context, tags []string) ([]ProposerPattern, error)
	ListPatterns(ctx context.Context, filter PatternFilter) ([]ProposerPattern, int64, error)
	CreatePattern(ctx context.Context, p ProposerPattern, relays []PatternRelay) error
	UpdatePattern(ctx context.Context, name string, update PatternUpdate) error
	DeletePattern(ctx context.Context, name string) error
	GetPatternRelays(ctx context.Context, name string) ([]PatternRelay, error)
	GetPatternRelaysBulk(ctx context.Context, names []string) ([]PatternRelay, error)

	// Mux configs.
	GetMuxConfig(ctx context.Context, name string) (*MuxConfig, error)
	ListMuxConfigs(ctx context.Context, page Pagination) ([]MuxConfig, int64, error)
	CreateMuxConfig(ctx context.Context, name string, keys []types.PublicKey) error
	DeleteMuxConfig(ctx context.Context, name string) error
	GetMuxKeys(ctx context.Context, name string) ([]types.PublicKey, error)
	CountMuxKeys(ctx context.Context, name string) (int64, error)
	ReplaceMuxKeys(ctx context.Context, name string, keys []types.PublicKey) error
	AddMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error)
	RemoveMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error)

	// Auth tokens.
	CreateAuthToken(ctx context.Context, token AuthToken) (*AuthToken, error)
	GetAuthToken(ctx context.Context, id uuid.UUID) (*AuthToken, error)
	GetAuthTokenByHash(ctx context.Context, hash string) (*AuthToken, error)
	ListAuthTokens(ctx context.Context) ([]AuthToken, error)
	DeleteAuthToken(ctx context.Context, id uuid.UUID) error
	TouchAuthToken(ctx context.Context, id uuid.UUID) error
	CountAuthTokens(ctx context.Context) (int64, error)
}
