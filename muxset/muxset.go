// Package muxset manages named, deduplicated sets of validator public keys
// served to commit-boost style consumers.
package muxset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

// Store is the slice of the persistence surface the manager needs.
type Store interface {
	GetMuxConfig(ctx context.Context, name string) (*database.MuxConfig, error)
	ListMuxConfigs(ctx context.Context, page database.Pagination) ([]database.MuxConfig, int64, error)
	CreateMuxConfig(ctx context.Context, name string, keys []types.PublicKey) error
	DeleteMuxConfig(ctx context.Context, name string) error
	GetMuxKeys(ctx context.Context, name string) ([]types.PublicKey, error)
	CountMuxKeys(ctx context.Context, name string) (int64, error)
	ReplaceMuxKeys(ctx context.Context, name string, keys []types.PublicKey) error
	AddMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error)
	RemoveMuxKeys(ctx context.Context, name string, keys []types.PublicKey) (int64, error)
}

// KeySet is a mux config together with its member keys, in insertion order.
type KeySet struct {
	Config database.MuxConfig
	Keys   []types.PublicKey
}

// Manager owns the key set operations. Membership is set semantics:
// duplicates in input are collapsed, adds and removes report the number of
// keys actually changed.
type Manager struct {
	store Store
	log   *logrus.Entry
}

func NewManager(store Store, log *logrus.Entry) *Manager {
	return &Manager{
		store: store,
		log:   log.WithField("component", "muxset"),
	}
}

// Create makes a new named set. Duplicate keys in the input are collapsed,
// keeping the first occurrence's position. Returns database.ErrConflict if
// the name is taken.
func (m *Manager) Create(ctx context.Context, name string, keys []types.PublicKey) (*KeySet, error) {
	if err := m.store.CreateMuxConfig(ctx, name, dedupe(keys)); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"mux": name, "keys": len(keys)}).Info("created mux config")
	return m.Get(ctx, name)
}

// Get loads a set and its keys. Returns database.ErrNotFound for unknown
// names.
func (m *Manager) Get(ctx context.Context, name string) (*KeySet, error) {
	cfg, err := m.store.GetMuxConfig(ctx, name)
	if err != nil {
		return nil, err
	}
	keys, err := m.store.GetMuxKeys(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load keys for mux %q: %w", name, err)
	}
	return &KeySet{Config: *cfg, Keys: keys}, nil
}

// Keys returns just the member keys of a set, in insertion order.
func (m *Manager) Keys(ctx context.Context, name string) ([]types.PublicKey, error) {
	if _, err := m.store.GetMuxConfig(ctx, name); err != nil {
		return nil, err
	}
	return m.store.GetMuxKeys(ctx, name)
}

// List returns a page of sets with their key counts.
func (m *Manager) List(ctx context.Context, page database.Pagination) ([]types.MuxConfigListItem, int64, error) {
	configs, total, err := m.store.ListMuxConfigs(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	items := make([]types.MuxConfigListItem, 0, len(configs))
	for _, cfg := range configs {
		count, err := m.store.CountMuxKeys(ctx, cfg.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("count keys for mux %q: %w", cfg.Name, err)
		}
		items = append(items, types.MuxConfigListItem{
			Name:      cfg.Name,
			KeyCount:  count,
			CreatedAt: cfg.CreatedAt,
			UpdatedAt: cfg.UpdatedAt,
		})
	}
	return items, total, nil
}

// Replace swaps the full membership atomically; a concurrent reader sees
// either the old set or the new one, never an empty in-between. Replacing
// with the same keys is a no-op beyond the timestamp.
func (m *Manager) Replace(ctx context.Context, name string, keys []types.PublicKey) (*KeySet, error) {
	if _, err := m.store.GetMuxConfig(ctx, name); err != nil {
		return nil, err
	}
	if err := m.store.ReplaceMuxKeys(ctx, name, dedupe(keys)); err != nil {
		return nil, fmt.Errorf("replace keys for mux %q: %w", name, err)
	}
	m.log.WithFields(logrus.Fields{"mux": name, "keys": len(keys)}).Info("replaced mux keys")
	return m.Get(ctx, name)
}

// Add inserts the keys not already present and returns how many were
// actually added alongside the new total.
func (m *Manager) Add(ctx context.Context, name string, keys []types.PublicKey) (added, total int64, err error) {
	if _, err := m.store.GetMuxConfig(ctx, name); err != nil {
		return 0, 0, err
	}
	added, err = m.store.AddMuxKeys(ctx, name, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("add keys to mux %q: %w", name, err)
	}
	total, err = m.store.CountMuxKeys(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	return added, total, nil
}

// Remove deletes the keys actually present and returns how many were
// removed alongside the new total. Removing absent keys is not an error.
func (m *Manager) Remove(ctx context.Context, name string, keys []types.PublicKey) (removed, total int64, err error) {
	if _, err := m.store.GetMuxConfig(ctx, name); err != nil {
		return 0, 0, err
	}
	removed, err = m.store.RemoveMuxKeys(ctx, name, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("remove keys from mux %q: %w", name, err)
	}
	total, err = m.store.CountMuxKeys(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	return removed, total, nil
}

// Delete drops the set and its keys.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := m.store.DeleteMuxConfig(ctx, name); err != nil {
		return err
	}
	m.log.WithField("mux", name).Info("deleted mux config")
	return nil
}

func dedupe(keys []types.PublicKey) []types.PublicKey {
	seen := make(map[types.PublicKey]struct{}, len(keys))
	out := make([]types.PublicKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
