// Package resolver merges the layered fee configuration (default config,
// per-proposer overrides, tag-matched pattern overrides) into the response
// served to validator clients.
package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

// ResponseVersion identifies the merged execution config shape.
const ResponseVersion = 2

// Store is the slice of the persistence surface the engine reads from.
type Store interface {
	GetActiveDefaultConfig(ctx context.Context, name string) (*database.DefaultConfig, error)
	GetDefaultRelays(ctx context.Context, configName string) ([]database.DefaultRelay, error)
	GetProposersBulk(ctx context.Context, keys []types.PublicKey) ([]database.Proposer, error)
	GetProposerRelaysBulk(ctx context.Context, keys []types.PublicKey) ([]database.ProposerRelay, error)
	GetPatternsByTags(ctx context.Context, tags []string) ([]database.ProposerPattern, error)
	GetPatternRelaysBulk(ctx context.Context, names []string) ([]database.PatternRelay, error)
}

// Engine resolves execution configs. It is stateless and safe for
// concurrent use; every call reads the store fresh.
type Engine struct {
	store Store
	log   *logrus.Entry
}

func NewEngine(store Store, log *logrus.Entry) *Engine {
	return &Engine{
		store: store,
		log:   log.WithField("component", "resolver"),
	}
}

// Resolve builds the merged execution config for one batch of validator
// keys. The top-level fields always come from the named default config and
// are never overridden; per-key and tag-matched overrides are additive
// entries in the proposers array. Returns database.ErrNotFound when the
// config does not exist or is inactive.
func (e *Engine) Resolve(ctx context.Context, configName string, keys []types.PublicKey, tags []string) (*types.ExecutionConfigResponse, error) {
	cfg, err := e.store.GetActiveDefaultConfig(ctx, configName)
	if err != nil {
		return nil, fmt.Errorf("load default config %q: %w", configName, err)
	}

	defaultRelays, err := e.store.GetDefaultRelays(ctx, configName)
	if err != nil {
		return nil, fmt.Errorf("load default relays for %q: %w", configName, err)
	}

	resp := &types.ExecutionConfigResponse{
		Version:      ResponseVersion,
		FeeRecipient: cfg.FeeRecipient,
		GasLimit:     cfg.GasLimit,
		MinValue:     cfg.MinValue,
	}
	if len(defaultRelays) > 0 {
		resp.Relays = make(map[string]types.RelayConfig, len(defaultRelays))
		for _, r := range defaultRelays {
			resp.Relays[r.URL] = types.RelayConfig{
				PublicKey:    r.PublicKey,
				FeeRecipient: r.FeeRecipient,
				GasLimit:     r.GasLimit,
				MinValue:     r.MinValue,
			}
		}
	}

	proposerEntries, err := e.proposerEntries(ctx, keys)
	if err != nil {
		return nil, err
	}
	patternEntries, err := e.patternEntries(ctx, tags)
	if err != nil {
		return nil, err
	}

	// Key-matched overrides first, in request order, then tag-matched
	// pattern overrides in store order.
	resp.Proposers = append(proposerEntries, patternEntries...)

	e.log.WithFields(logrus.Fields{
		"config":         configName,
		"requestedKeys":  len(keys),
		"matchedKeys":    len(proposerEntries),
		"requestedTags":  len(tags),
		"matchedPattern": len(patternEntries),
	}).Debug("resolved execution config")

	return resp, nil
}

// proposerEntries builds one entry per requested key that has a stored
// override, preserving the request order. Unknown keys are silently
// skipped. Both lookups are single bulk queries.
func (e *Engine) proposerEntries(ctx context.Context, keys []types.PublicKey) ([]types.ProposerEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	proposers, err := e.store.GetProposersBulk(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load proposers: %w", err)
	}
	if len(proposers) == 0 {
		return nil, nil
	}
	byKey := make(map[types.PublicKey]database.Proposer, len(proposers))
	matched := make([]types.PublicKey, 0, len(proposers))
	for _, p := range proposers {
		byKey[p.PublicKey] = p
		matched = append(matched, p.PublicKey)
	}

	relays, err := e.store.GetProposerRelaysBulk(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("load proposer relays: %w", err)
	}
	relaysByKey := make(map[types.PublicKey]map[string]types.RelayConfig)
	for _, r := range relays {
		m := relaysByKey[r.ProposerKey]
		if m == nil {
			m = make(map[string]types.RelayConfig)
			relaysByKey[r.ProposerKey] = m
		}
		// Disabled relays are included; the consumer decides what to do
		// with a relay it no longer wants to use.
		m[r.URL] = types.RelayConfig{
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		}
	}

	var entries []types.ProposerEntry
	for _, key := range keys {
		p, ok := byKey[key]
		if !ok {
			continue
		}
		entry := types.ProposerEntry{
			Proposer:     key.String(),
			FeeRecipient: p.FeeRecipient,
			GasLimit:     p.GasLimit,
			MinValue:     p.MinValue,
			Relays:       relaysByKey[key],
		}
		if p.ResetRelays {
			reset := true
			entry.ResetRelays = &reset
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// patternEntries builds one entry per pattern whose tag set intersects the
// requested tags. The entry's proposer field carries the pattern's regex
// text verbatim; the service never evaluates it.
func (e *Engine) patternEntries(ctx context.Context, tags []string) ([]types.ProposerEntry, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	patterns, err := e.store.GetPatternsByTags(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		names = append(names, p.Name)
	}

	relays, err := e.store.GetPatternRelaysBulk(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("load pattern relays: %w", err)
	}
	relaysByName := make(map[string]map[string]types.RelayConfig)
	for _, r := range relays {
		m := relaysByName[r.PatternName]
		if m == nil {
			m = make(map[string]types.RelayConfig)
			relaysByName[r.PatternName] = m
		}
		m[r.URL] = types.RelayConfig{
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		}
	}

	var entries []types.ProposerEntry
	for _, p := range patterns {
		entry := types.ProposerEntry{
			Proposer:     p.Pattern,
			FeeRecipient: p.FeeRecipient,
			GasLimit:     p.GasLimit,
			MinValue:     p.MinValue,
			Relays:       relaysByName[p.Name],
		}
		if p.ResetRelays {
			reset := true
			entry.ResetRelays = &reset
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
