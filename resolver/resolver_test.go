package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/database/mock"
	"github.com/ethvouch/fee-manager/types"
)

var testLog = logrus.NewEntry(logrus.New())

func testPubkey(b byte) types.PublicKey {
	var pk types.PublicKey
	pk[0] = 0xa0
	pk[47] = b
	return pk
}

func testAddress(b byte) types.Address {
	var addr types.Address
	addr[19] = b
	return addr
}

func strPtr(s string) *string { return &s }

func newTestEngine(t *testing.T) (*Engine, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	return NewEngine(store, testLog), store
}

func seedDefaultConfig(t *testing.T, store *mock.Store, name string, active bool) {
	t.Helper()
	fee := testAddress(0x01)
	err := store.CreateDefaultConfig(context.Background(), database.DefaultConfig{
		Name:         name,
		FeeRecipient: &fee,
		GasLimit:     strPtr("30000000"),
		MinValue:     strPtr("0.05"),
		Active:       active,
	}, []database.DefaultRelay{
		{ConfigName: name, URL: "https://relay-a.example.org", PublicKey: testPubkey(0x0a)},
		{ConfigName: name, URL: "https://relay-b.example.org", PublicKey: testPubkey(0x0b), MinValue: strPtr("0.1")},
	})
	require.NoError(t, err)
}

func TestResolveUnknownConfig(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Resolve(context.Background(), "nope", nil, nil)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestResolveInactiveConfig(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", false)

	_, err := engine.Resolve(context.Background(), "mainnet", nil, nil)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestResolveDefaultsOnly(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	resp, err := engine.Resolve(context.Background(), "mainnet", nil, nil)
	require.NoError(t, err)

	require.Equal(t, 2, resp.Version)
	require.Equal(t, testAddress(0x01), *resp.FeeRecipient)
	require.Equal(t, "30000000", *resp.GasLimit)
	require.Equal(t, "0.05", *resp.MinValue)
	require.Len(t, resp.Relays, 2)
	require.Equal(t, testPubkey(0x0a), resp.Relays["https://relay-a.example.org"].PublicKey)
	require.Empty(t, resp.Proposers)
}

func TestResolveOmitsUnsetFields(t *testing.T) {
	engine, store := newTestEngine(t)
	err := store.CreateDefaultConfig(context.Background(), database.DefaultConfig{
		Name:   "sparse",
		Active: true,
	}, nil)
	require.NoError(t, err)

	resp, err := engine.Resolve(context.Background(), "sparse", nil, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":2}`, string(payload))
}

func TestResolveProposerOverride(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	known := testPubkey(0x11)
	unknown := testPubkey(0x22)
	fee := testAddress(0x02)
	err := store.UpsertProposer(context.Background(), database.Proposer{
		PublicKey:    known,
		FeeRecipient: &fee,
		GasLimit:     strPtr("36000000"),
	}, []database.ProposerRelay{
		{ProposerKey: known, URL: "https://relay-c.example.org", PublicKey: testPubkey(0x0c)},
		{ProposerKey: known, URL: "https://relay-d.example.org", PublicKey: testPubkey(0x0d), Disabled: true},
	})
	require.NoError(t, err)

	resp, err := engine.Resolve(context.Background(), "mainnet", []types.PublicKey{unknown, known}, nil)
	require.NoError(t, err)

	// Top-level defaults are never overridden by proposer fields.
	require.Equal(t, testAddress(0x01), *resp.FeeRecipient)

	require.Len(t, resp.Proposers, 1)
	entry := resp.Proposers[0]
	require.Equal(t, known.String(), entry.Proposer)
	require.Equal(t, fee, *entry.FeeRecipient)
	require.Equal(t, "36000000", *entry.GasLimit)
	require.Nil(t, entry.MinValue)
	require.Nil(t, entry.ResetRelays)

	// Disabled relays are passed through, not filtered.
	require.Len(t, entry.Relays, 2)
	require.Contains(t, entry.Relays, "https://relay-d.example.org")
}

func TestResolveResetRelaysOnlyWhenSet(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	key := testPubkey(0x11)
	err := store.UpsertProposer(context.Background(), database.Proposer{
		PublicKey:   key,
		ResetRelays: true,
	}, nil)
	require.NoError(t, err)

	resp, err := engine.Resolve(context.Background(), "mainnet", []types.PublicKey{key}, nil)
	require.NoError(t, err)

	require.Len(t, resp.Proposers, 1)
	require.NotNil(t, resp.Proposers[0].ResetRelays)
	require.True(t, *resp.Proposers[0].ResetRelays)
}

func TestResolveRequestOrderPreserved(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	first := testPubkey(0x33)
	second := testPubkey(0x11)
	for _, key := range []types.PublicKey{second, first} {
		require.NoError(t, store.UpsertProposer(context.Background(), database.Proposer{PublicKey: key}, nil))
	}

	resp, err := engine.Resolve(context.Background(), "mainnet", []types.PublicKey{first, second}, nil)
	require.NoError(t, err)

	require.Len(t, resp.Proposers, 2)
	require.Equal(t, first.String(), resp.Proposers[0].Proposer)
	require.Equal(t, second.String(), resp.Proposers[1].Proposer)
}

func TestResolveDuplicateKeys(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	key := testPubkey(0x11)
	require.NoError(t, store.UpsertProposer(context.Background(), database.Proposer{PublicKey: key}, nil))

	resp, err := engine.Resolve(context.Background(), "mainnet", []types.PublicKey{key, key}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Proposers, 2)
}

func TestResolvePatternTagMatch(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	fee := testAddress(0x03)
	err := store.CreatePattern(context.Background(), database.ProposerPattern{
		Name:         "lido-operators",
		Pattern:      "^lido/.*",
		Tags:         []string{"lido", "institutional"},
		FeeRecipient: &fee,
		ResetRelays:  true,
	}, []database.PatternRelay{
		{PatternName: "lido-operators", URL: "https://relay-e.example.org", PublicKey: testPubkey(0x0e)},
	})
	require.NoError(t, err)
	err = store.CreatePattern(context.Background(), database.ProposerPattern{
		Name:    "solo-stakers",
		Pattern: "^solo/.*",
		Tags:    []string{"solo"},
	}, nil)
	require.NoError(t, err)

	// Any shared tag qualifies; "solo" is not requested.
	resp, err := engine.Resolve(context.Background(), "mainnet", nil, []string{"institutional", "unknown-tag"})
	require.NoError(t, err)

	require.Len(t, resp.Proposers, 1)
	entry := resp.Proposers[0]
	require.Equal(t, "^lido/.*", entry.Proposer)
	require.Equal(t, fee, *entry.FeeRecipient)
	require.NotNil(t, entry.ResetRelays)
	require.Len(t, entry.Relays, 1)
}

func TestResolveNoTagsSkipsPatterns(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	err := store.CreatePattern(context.Background(), database.ProposerPattern{
		Name:    "lido-operators",
		Pattern: "^lido/.*",
		Tags:    []string{"lido"},
	}, nil)
	require.NoError(t, err)

	resp, err := engine.Resolve(context.Background(), "mainnet", nil, nil)
	require.NoError(t, err)
	require.Empty(t, resp.Proposers)
}

func TestResolveProposersBeforePatterns(t *testing.T) {
	engine, store := newTestEngine(t)
	seedDefaultConfig(t, store, "mainnet", true)

	key := testPubkey(0x11)
	require.NoError(t, store.UpsertProposer(context.Background(), database.Proposer{PublicKey: key}, nil))
	require.NoError(t, store.CreatePattern(context.Background(), database.ProposerPattern{
		Name:    "lido-operators",
		Pattern: "^lido/.*",
		Tags:    []string{"lido"},
	}, nil))

	resp, err := engine.Resolve(context.Background(), "mainnet", []types.PublicKey{key}, []string{"lido"})
	require.NoError(t, err)

	require.Len(t, resp.Proposers, 2)
	require.Equal(t, key.String(), resp.Proposers[0].Proposer)
	require.Equal(t, "^lido/.*", resp.Proposers[1].Proposer)
}

func TestResolveStoreError(t *testing.T) {
	engine, store := newTestEngine(t)
	store.Err = context.DeadlineExceeded

	_, err := engine.Resolve(context.Background(), "mainnet", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
