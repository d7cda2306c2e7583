package muxset

import (
	"context"
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
	pk[0] = 0xb0
	pk[47] = b
	return pk
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(mock.NewStore(), testLog)
}

func TestCreateDedupesPreservingOrder(t *testing.T) {
	m := newTestManager(t)
	k1, k2 := testPubkey(0x01), testPubkey(0x02)

	set, err := m.Create(context.Background(), "lido", []types.PublicKey{k1, k2, k1})
	require.NoError(t, err)
	require.Equal(t, []types.PublicKey{k1, k2}, set.Keys)
}

func TestCreateConflict(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), "lido", nil)
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "lido", nil)
	require.ErrorIs(t, err, database.ErrConflict)
}

func TestGetUnknown(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get(context.Background(), "nope")
	require.ErrorIs(t, err, database.ErrNotFound)
	_, err = m.Keys(context.Background(), "nope")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestAddReportsActualCount(t *testing.T) {
	m := newTestManager(t)
	k1, k2 := testPubkey(0x01), testPubkey(0x02)

	_, err := m.Create(context.Background(), "lido", []types.PublicKey{k1})
	require.NoError(t, err)

	added, total, err := m.Add(context.Background(), "lido", []types.PublicKey{k1, k2})
	require.NoError(t, err)
	require.EqualValues(t, 1, added)
	require.EqualValues(t, 2, total)

	// Re-adding the same keys adds nothing.
	added, total, err = m.Add(context.Background(), "lido", []types.PublicKey{k1, k2})
	require.NoError(t, err)
	require.EqualValues(t, 0, added)
	require.EqualValues(t, 2, total)
}

func TestRemoveReportsActualCount(t *testing.T) {
	m := newTestManager(t)
	k1, k2, absent := testPubkey(0x01), testPubkey(0x02), testPubkey(0x03)

	_, err := m.Create(context.Background(), "lido", []types.PublicKey{k1, k2})
	require.NoError(t, err)

	removed, total, err := m.Remove(context.Background(), "lido", []types.PublicKey{k2, absent})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.EqualValues(t, 1, total)
}

func TestReplaceIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	k1, k2 := testPubkey(0x01), testPubkey(0x02)

	_, err := m.Create(context.Background(), "lido", []types.PublicKey{k1})
	require.NoError(t, err)

	set, err := m.Replace(context.Background(), "lido", []types.PublicKey{k2, k1, k2})
	require.NoError(t, err)
	require.Equal(t, []types.PublicKey{k2, k1}, set.Keys)

	set, err = m.Replace(context.Background(), "lido", []types.PublicKey{k2, k1})
	require.NoError(t, err)
	require.Equal(t, []types.PublicKey{k2, k1}, set.Keys)
}

func TestReplaceUnknown(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Replace(context.Background(), "nope", nil)
	require.ErrorIs(t, err, database.ErrNotFound)
	_, _, err = m.Add(context.Background(), "nope", nil)
	require.ErrorIs(t, err, database.ErrNotFound)
	_, _, err = m.Remove(context.Background(), "nope", nil)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestListWithKeyCounts(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), "alpha", []types.PublicKey{testPubkey(0x01), testPubkey(0x02)})
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "beta", nil)
	require.NoError(t, err)

	items, total, err := m.List(context.Background(), database.Pagination{Limit: 100})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	require.Equal(t, "alpha", items[0].Name)
	require.EqualValues(t, 2, items[0].KeyCount)
	require.EqualValues(t, 0, items[1].KeyCount)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), "lido", nil)
	require.NoError(t, err)
	require.NoError(t, m.Delete(context.Background(), "lido"))
	require.ErrorIs(t, m.Delete(context.Background(), "lido"), database.ErrNotFound)
}
