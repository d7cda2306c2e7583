package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/testutil"
	"github.com/ethvouch/fee-manager/types"
)

func TestProposerBulkLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	k1 := testutil.RandomBLSPublicKey(t)
	k2 := testutil.RandomBLSPublicKey(t)
	absent := testutil.RandomBLSPublicKey(t)
	fee := testutil.RandomAddress(t)

	require.NoError(t, store.UpsertProposer(ctx, database.Proposer{PublicKey: k1, FeeRecipient: &fee}, nil))
	require.NoError(t, store.UpsertProposer(ctx, database.Proposer{PublicKey: k2}, nil))

	proposers, err := store.GetProposersBulk(ctx, []types.PublicKey{k2, k1, absent})
	require.NoError(t, err)
	require.Len(t, proposers, 2)
	// Store order, not request order.
	require.Equal(t, k1, proposers[0].PublicKey)
	require.Equal(t, k2, proposers[1].PublicKey)
}

func TestDefaultConfigUpdateSemantics(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	fee := testutil.RandomAddress(t)
	gas := "30000000"
	require.NoError(t, store.CreateDefaultConfig(ctx, database.DefaultConfig{
		Name:         "mainnet",
		FeeRecipient: &fee,
		GasLimit:     &gas,
		Active:       true,
	}, []database.DefaultRelay{
		{ConfigName: "mainnet", URL: "https://relay.example.org", PublicKey: testutil.RandomBLSPublicKey(t)},
	}))

	// Nil fields stay untouched, nil Relays keeps the children.
	newGas := "36000000"
	require.NoError(t, store.UpdateDefaultConfig(ctx, "mainnet", database.DefaultConfigUpdate{GasLimit: &newGas}))

	cfg, err := store.GetDefaultConfig(ctx, "mainnet")
	require.NoError(t, err)
	require.Equal(t, fee, *cfg.FeeRecipient)
	require.Equal(t, newGas, *cfg.GasLimit)
	require.True(t, cfg.Active)

	relays, err := store.GetDefaultRelays(ctx, "mainnet")
	require.NoError(t, err)
	require.Len(t, relays, 1)

	// Non-nil Relays replaces the whole collection.
	require.NoError(t, store.UpdateDefaultConfig(ctx, "mainnet", database.DefaultConfigUpdate{
		Relays: []database.DefaultRelay{},
	}))
	relays, err = store.GetDefaultRelays(ctx, "mainnet")
	require.NoError(t, err)
	require.Empty(t, relays)
}

func TestTagOverlapMatching(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreatePattern(ctx, database.ProposerPattern{
		Name: "a", Pattern: "^a", Tags: []string{"x", "y"},
	}, nil))
	require.NoError(t, store.CreatePattern(ctx, database.ProposerPattern{
		Name: "b", Pattern: "^b", Tags: []string{"z"},
	}, nil))

	matched, err := store.GetPatternsByTags(ctx, []string{"y", "missing"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, "a", matched[0].Name)

	matched, err = store.GetPatternsByTags(ctx, []string{"missing"})
	require.NoError(t, err)
	require.Empty(t, matched)
}
