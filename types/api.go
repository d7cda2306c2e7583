package types

import "time"

// RelayConfig is the wire shape of a relay attached to a default config, a
// proposer or a pattern. Optional fields are omitted when unset, never
// emitted as null.
type RelayConfig struct {
	PublicKey    PublicKey `json:"public_key"`
	FeeRecipient *Address  `json:"fee_recipient,omitempty"`
	GasLimit     *string   `json:"gas_limit,omitempty"`
	MinValue     *string   `json:"min_value,omitempty"`
}

// ProposerRelayConfig extends RelayConfig with the proposer-level disabled
// flag. The flag is persisted and returned on the admin API; the execution
// config endpoint passes all relays through and leaves filtering to the
// consumer.
type ProposerRelayConfig struct {
	PublicKey    PublicKey `json:"public_key"`
	FeeRecipient *Address  `json:"fee_recipient,omitempty"`
	GasLimit     *string   `json:"gas_limit,omitempty"`
	MinValue     *string   `json:"min_value,omitempty"`
	Disabled     bool      `json:"disabled"`
}

// PaginatedResponse wraps admin listings.
type PaginatedResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// ExecutionConfigRequest is the body of the public execution config call.
type ExecutionConfigRequest struct {
	Keys []PublicKey `json:"keys"`
}

// ExecutionConfigResponse is the merged configuration for one batch of
// validator keys (response version 2).
type ExecutionConfigResponse struct {
	Version      int                    `json:"version"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
	Proposers    []ProposerEntry        `json:"proposers,omitempty"`
}

// ProposerEntry is one override in the proposers array. Proposer holds
// either a validator public key (for key-matched entries) or the literal
// regex text of a pattern (for tag-matched entries); the field is
// intentionally polymorphic.
type ProposerEntry struct {
	Proposer     string                 `json:"proposer"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	ResetRelays  *bool                  `json:"reset_relays,omitempty"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
}

// Default config admin API.

type DefaultConfigResponse struct {
	Name         string                 `json:"name"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	Active       bool                   `json:"active"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type DefaultConfigListItem struct {
	Name         string                 `json:"name"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	Active       bool                   `json:"active"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type CreateDefaultConfigRequest struct {
	Name         string                 `json:"name"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	Active       *bool                  `json:"active,omitempty"` // defaults to true
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
}

type UpdateDefaultConfigRequest struct {
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	Active       *bool                  `json:"active,omitempty"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
}

// Proposer admin API.

type ProposerResponse struct {
	PublicKey    PublicKey                      `json:"public_key"`
	FeeRecipient *Address                       `json:"fee_recipient,omitempty"`
	GasLimit     *string                        `json:"gas_limit,omitempty"`
	MinValue     *string                        `json:"min_value,omitempty"`
	ResetRelays  bool                           `json:"reset_relays"`
	Relays       map[string]ProposerRelayConfig `json:"relays,omitempty"`
	CreatedAt    time.Time                      `json:"created_at"`
	UpdatedAt    time.Time                      `json:"updated_at"`
}

type ProposerListItem struct {
	PublicKey    PublicKey `json:"public_key"`
	FeeRecipient *Address  `json:"fee_recipient,omitempty"`
	GasLimit     *string   `json:"gas_limit,omitempty"`
	MinValue     *string   `json:"min_value,omitempty"`
	ResetRelays  bool      `json:"reset_relays"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateOrUpdateProposerRequest struct {
	FeeRecipient *Address                       `json:"fee_recipient,omitempty"`
	GasLimit     *string                        `json:"gas_limit,omitempty"`
	MinValue     *string                        `json:"min_value,omitempty"`
	ResetRelays  bool                           `json:"reset_relays"`
	Relays       map[string]ProposerRelayConfig `json:"relays,omitempty"`
}

// Proposer pattern admin API.

type ProposerPatternResponse struct {
	Name         string                 `json:"name"`
	Pattern      string                 `json:"pattern"`
	Tags         []string               `json:"tags"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	ResetRelays  bool                   `json:"reset_relays"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type ProposerPatternListItem struct {
	Name         string    `json:"name"`
	Pattern      string    `json:"pattern"`
	Tags         []string  `json:"tags"`
	FeeRecipient *Address  `json:"fee_recipient,omitempty"`
	GasLimit     *string   `json:"gas_limit,omitempty"`
	MinValue     *string   `json:"min_value,omitempty"`
	ResetRelays  bool      `json:"reset_relays"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateProposerPatternRequest struct {
	Name         string                 `json:"name"`
	Pattern      string                 `json:"pattern"`
	Tags         []string               `json:"tags"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	ResetRelays  bool                   `json:"reset_relays"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
}

type UpdateProposerPatternRequest struct {
	Pattern      *string                `json:"pattern,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	FeeRecipient *Address               `json:"fee_recipient,omitempty"`
	GasLimit     *string                `json:"gas_limit,omitempty"`
	MinValue     *string                `json:"min_value,omitempty"`
	ResetRelays  *bool                  `json:"reset_relays,omitempty"`
	Relays       map[string]RelayConfig `json:"relays,omitempty"`
}

// Mux admin API.

type MuxConfigResponse struct {
	Name      string      `json:"name"`
	Keys      []PublicKey `json:"keys"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type MuxConfigListItem struct {
	Name      string    `json:"name"`
	KeyCount  int64     `json:"key_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateMuxConfigRequest struct {
	Name string      `json:"name"`
	Keys []PublicKey `json:"keys"`
}

type UpdateMuxConfigRequest struct {
	Keys []PublicKey `json:"keys"`
}

type MuxKeysRequest struct {
	Keys []PublicKey `json:"keys"`
}

type MuxKeysResponse struct {
	Added     *int64 `json:"added,omitempty"`
	Removed   *int64 `json:"removed,omitempty"`
	TotalKeys int64  `json:"total_keys"`
}

// Auth token admin API.

type AuthTokenResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

type CreateAuthTokenRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// CreatedAuthTokenResponse carries the plaintext token. It is returned
// exactly once, at creation; only the hash is stored.
type CreatedAuthTokenResponse struct {
	AuthTokenResponse
	Token string `json:"token"`
}
