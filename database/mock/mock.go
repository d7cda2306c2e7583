// Package mock provides an in-memory Store used by handler and engine
// tests. Semantics mirror the Postgres implementation: sentinel errors,
// set semantics for mux keys, insertion-order listings.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

// Store is a thread-safe in-memory database.Store.
type Store struct {
	mu sync.RWMutex

	defaultConfigs map[string]database.DefaultConfig
	defaultRelays  map[string][]database.DefaultRelay

	proposers      map[types.PublicKey]database.Proposer
	proposerOrder  []types.PublicKey
	proposerRelays map[types.PublicKey][]database.ProposerRelay

	patterns      map[string]database.ProposerPattern
	patternOrder  []string
	patternRelays map[string][]database.PatternRelay

	muxConfigs map[string]database.MuxConfig
	muxKeys    map[string][]types.PublicKey

	tokens     map[uuid.UUID]database.AuthToken
	tokenOrder []uuid.UUID

	// Err, when set, is returned by every call. Used to exercise the
	// internal-error paths.
	Err error
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{
		defaultConfigs: make(map[string]database.DefaultConfig),
		defaultRelays:  make(map[string][]database.DefaultRelay),
		proposers:      make(map[types.PublicKey]database.Proposer),
		proposerRelays: make(map[types.PublicKey][]database.ProposerRelay),
		patterns:       make(map[string]database.ProposerPattern),
		patternRelays:  make(map[string][]database.PatternRelay),
		muxConfigs:     make(map[string]database.MuxConfig),
		muxKeys:        make(map[string][]types.PublicKey),
		tokens:         make(map[uuid.UUID]database.AuthToken),
	}
}

func (s *Store) GetDefaultConfig(_ context.Context, name string) (*database.DefaultConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	cfg, ok := s.defaultConfigs[name]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &cfg, nil
}

func (s *Store) GetActiveDefaultConfig(_ context.Context, name string) (*database.DefaultConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	cfg, ok := s.defaultConfigs[name]
	if !ok || !cfg.Active {
		return nil, database.ErrNotFound
	}
	return &cfg, nil
}

func (s *Store) ListDefaultConfigs(_ context.Context, filter database.DefaultConfigFilter) ([]database.DefaultConfig, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []database.DefaultConfig
	for _, cfg := range s.defaultConfigs {
		if filter.NamePrefix != "" && !hasPrefix(cfg.Name, filter.NamePrefix) {
			continue
		}
		if filter.FeeRecipient != nil && (cfg.FeeRecipient == nil || *cfg.FeeRecipient != *filter.FeeRecipient) {
			continue
		}
		if filter.GasLimit != nil && !strEq(cfg.GasLimit, filter.GasLimit) {
			continue
		}
		if filter.MinValue != nil && !strEq(cfg.MinValue, filter.MinValue) {
			continue
		}
		if filter.Active != nil && cfg.Active != *filter.Active {
			continue
		}
		matched = append(matched, cfg)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := int64(len(matched))
	return paginate(matched, filter.Limit, filter.Offset), total, nil
}

func (s *Store) CreateDefaultConfig(_ context.Context, cfg database.DefaultConfig, relays []database.DefaultRelay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.defaultConfigs[cfg.Name]; ok {
		return fmt.Errorf("default config %q: %w", cfg.Name, database.ErrConflict)
	}
	now := time.Now().UTC()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	s.defaultConfigs[cfg.Name] = cfg
	s.defaultRelays[cfg.Name] = append([]database.DefaultRelay(nil), relays...)
	return nil
}

func (s *Store) UpdateDefaultConfig(_ context.Context, name string, update database.DefaultConfigUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cfg, ok := s.defaultConfigs[name]
	if !ok {
		return fmt.Errorf("default config %q: %w", name, database.ErrNotFound)
	}
	if update.FeeRecipient != nil {
		cfg.FeeRecipient = update.FeeRecipient
	}
	if update.GasLimit != nil {
		cfg.GasLimit = update.GasLimit
	}
	if update.MinValue != nil {
		cfg.MinValue = update.MinValue
	}
	if update.Active != nil {
		cfg.Active = *update.Active
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.defaultConfigs[name] = cfg
	if update.Relays != nil {
		s.defaultRelays[name] = append([]database.DefaultRelay(nil), update.Relays...)
	}
	return nil
}

func (s *Store) DeleteDefaultConfig(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.defaultConfigs[name]; !ok {
		return fmt.Errorf("default config %q: %w", name, database.ErrNotFound)
	}
	delete(s.defaultConfigs, name)
	delete(s.defaultRelays, name)
	return nil
}

func (s *Store) GetDefaultRelays(_ context.Context, configName string) ([]database.DefaultRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]database.DefaultRelay(nil), s.defaultRelays[configName]...), nil
}

func (s *Store) GetDefaultRelaysBulk(_ context.Context, configNames []string) ([]database.DefaultRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []database.DefaultRelay
	for _, name := range configNames {
		out = append(out, s.defaultRelays[name]...)
	}
	return out, nil
}

func (s *Store) GetProposer(_ context.Context, key types.PublicKey) (*database.Proposer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.proposers[key]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProposersBulk(_ context.Context, keys []types.PublicKey) ([]database.Proposer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	requested := make(map[types.PublicKey]bool, len(keys))
	for _, k := range keys {
		requested[k] = true
	}
	// Store order, like a real bulk query: rows come back in their own
	// order, not the caller's.
	var out []database.Proposer
	for _, k := range s.proposerOrder {
		if requested[k] {
			out = append(out, s.proposers[k])
		}
	}
	return out, nil
}

func (s *Store) ListProposers(_ context.Context, filter database.ProposerFilter) ([]database.Proposer, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	var matched []database.Proposer
	for _, p := range s.proposers {
		if filter.FeeRecipient != nil && (p.FeeRecipient == nil || *p.FeeRecipient != *filter.FeeRecipient) {
			continue
		}
		if filter.GasLimit != nil && !strEq(p.GasLimit, filter.GasLimit) {
			continue
		}
		if filter.MinValue != nil && !strEq(p.MinValue, filter.MinValue) {
			continue
		}
		if filter.ResetRelays != nil && p.ResetRelays != *filter.ResetRelays {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PublicKey.String() < matched[j].PublicKey.String()
	})
	total := int64(len(matched))
	return paginate(matched, filter.Limit, filter.Offset), total, nil
}

func (s *Store) UpsertProposer(_ context.Context, p database.Proposer, relays []database.ProposerRelay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	now := time.Now().UTC()
	if existing, ok := s.proposers[p.PublicKey]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
		s.proposerOrder = append(s.proposerOrder, p.PublicKey)
	}
	p.UpdatedAt = now
	s.proposers[p.PublicKey] = p
	s.proposerRelays[p.PublicKey] = append([]database.ProposerRelay(nil), relays...)
	return nil
}

func (s *Store) DeleteProposer(_ context.Context, key types.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.proposers[key]; !ok {
		return fmt.Errorf("proposer %s: %w", key, database.ErrNotFound)
	}
	delete(s.proposers, key)
	delete(s.proposerRelays, key)
	for i, k := range s.proposerOrder {
		if k == key {
			s.proposerOrder = append(s.proposerOrder[:i], s.proposerOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetProposerRelays(_ context.Context, key types.PublicKey) ([]database.ProposerRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]database.ProposerRelay(nil), s.proposerRelays[key]...), nil
}

func (s *Store) GetProposerRelaysBulk(_ context.Context, keys []types.PublicKey) ([]database.ProposerRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[types.PublicKey]bool, len(keys))
	var out []database.ProposerRelay
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s.proposerRelays[k]...)
	}
	return out, nil
}

func (s *Store) GetPattern(_ context.Context, name string) (*database.ProposerPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.patterns[name]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetPatternsByTags(_ context.Context, tags []string) ([]database.ProposerPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	requested := make(map[string]bool, len(tags))
	for _, t := range tags {
		requested[t] = true
	}
	var out []database.ProposerPattern
	for _, name := range s.patternOrder {
		p := s.patterns[name]
		for _, t := range p.Tags {
			if requested[t] {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) ListPatterns(_ context.Context, filter database.PatternFilter) ([]database.ProposerPattern, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	var matched []database.ProposerPattern
	for _, p := range s.patterns {
		if filter.NamePrefix != "" && !hasPrefix(p.Name, filter.NamePrefix) {
			continue
		}
		if filter.Tag != "" && !contains(p.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := int64(len(matched))
	return paginate(matched, filter.Limit, filter.Offset), total, nil
}

func (s *Store) CreatePattern(_ context.Context, p database.ProposerPattern, relays []database.PatternRelay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.patterns[p.Name]; ok {
		return fmt.Errorf("proposer pattern %q: %w", p.Name, database.ErrConflict)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.patterns[p.Name] = p
	s.patternOrder = append(s.patternOrder, p.Name)
	s.patternRelays[p.Name] = append([]database.PatternRelay(nil), relays...)
	return nil
}

func (s *Store) UpdatePattern(_ context.Context, name string, update database.PatternUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.patterns[name]
	if !ok {
		return fmt.Errorf("proposer pattern %q: %w", name, database.ErrNotFound)
	}
	if update.Pattern != nil {
		p.Pattern = *update.Pattern
	}
	if update.Tags != nil {
		p.Tags = update.Tags
	}
	if update.FeeRecipient != nil {
		p.FeeRecipient = update.FeeRecipient
	}
	if update.GasLimit != nil {
		p.GasLimit = update.GasLimit
	}
	if update.MinValue != nil {
		p.MinValue = update.MinValue
	}
	if update.ResetRelays != nil {
		p.ResetRelays = *update.ResetRelays
	}
	p.UpdatedAt = time.Now().UTC()
	s.patterns[name] = p
	if update.Relays != nil {
		s.patternRelays[name] = append([]database.PatternRelay(nil), update.Relays...)
	}
	return nil
}

func (s *Store) DeletePattern(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.patterns[name]; !ok {
		return fmt.Errorf("proposer pattern %q: %w", name, database.ErrNotFound)
	}
	delete(s.patterns, name)
	delete(s.patternRelays, name)
	for i, n := range s.patternOrder {
		if n == name {
			s.patternOrder = append(s.patternOrder[:i], s.patternOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetPatternRelays(_ context.Context, name string) ([]database.PatternRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]database.PatternRelay(nil), s.patternRelays[name]...), nil
}

func (s *Store) GetPatternRelaysBulk(_ context.Context, names []string) ([]database.PatternRelay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[string]bool, len(names))
	var out []database.PatternRelay
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, s.patternRelays[n]...)
	}
	return out, nil
}

func (s *Store) GetMuxConfig(_ context.Context, name string) (*database.MuxConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	cfg, ok := s.muxConfigs[name]
	if !ok {
		return nil, fmt.Errorf("mux config %q: %w", name, database.ErrNotFound)
	}
	return &cfg, nil
}

func (s *Store) ListMuxConfigs(_ context.Context, page database.Pagination) ([]database.MuxConfig, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	var configs []database.MuxConfig
	for _, cfg := range s.muxConfigs {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	total := int64(len(configs))
	return paginate(configs, page.Limit, page.Offset), total, nil
}

func (s *Store) CreateMuxConfig(_ context.Context, name string, keys []types.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.muxConfigs[name]; ok {
		return fmt.Errorf("mux config %q: %w", name, database.ErrConflict)
	}
	now := time.Now().UTC()
	s.muxConfigs[name] = database.MuxConfig{Name: name, CreatedAt: now, UpdatedAt: now}
	s.muxKeys[name] = dedupeKeys(keys)
	return nil
}

func (s *Store) DeleteMuxConfig(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.muxConfigs[name]; !ok {
		return fmt.Errorf("mux config %q: %w", name, database.ErrNotFound)
	}
	delete(s.muxConfigs, name)
	delete(s.muxKeys, name)
	return nil
}

func (s *Store) GetMuxKeys(_ context.Context, name string) ([]types.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]types.PublicKey(nil), s.muxKeys[name]...), nil
}

func (s *Store) CountMuxKeys(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.muxKeys[name])), nil
}

func (s *Store) ReplaceMuxKeys(_ context.Context, name string, keys []types.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cfg, ok := s.muxConfigs[name]
	if !ok {
		return fmt.Errorf("mux config %q: %w", name, database.ErrNotFound)
	}
	s.muxKeys[name] = dedupeKeys(keys)
	cfg.UpdatedAt = time.Now().UTC()
	s.muxConfigs[name] = cfg
	return nil
}

func (s *Store) AddMuxKeys(_ context.Context, name string, keys []types.PublicKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	cfg, ok := s.muxConfigs[name]
	if !ok {
		return 0, fmt.Errorf("mux config %q: %w", name, database.ErrNotFound)
	}
	present := make(map[types.PublicKey]bool, len(s.muxKeys[name]))
	for _, k := range s.muxKeys[name] {
		present[k] = true
	}
	var added int64
	for _, k := range keys {
		if present[k] {
			continue
		}
		present[k] = true
		s.muxKeys[name] = append(s.muxKeys[name], k)
		added++
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.muxConfigs[name] = cfg
	return added, nil
}

func (s *Store) RemoveMuxKeys(_ context.Context, name string, keys []types.PublicKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	cfg, ok := s.muxConfigs[name]
	if !ok {
		return 0, fmt.Errorf("mux config %q: %w", name, database.ErrNotFound)
	}
	drop := make(map[types.PublicKey]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	var kept []types.PublicKey
	var removed int64
	for _, k := range s.muxKeys[name] {
		if drop[k] {
			removed++
			continue
		}
		kept = append(kept, k)
	}
	s.muxKeys[name] = kept
	cfg.UpdatedAt = time.Now().UTC()
	s.muxConfigs[name] = cfg
	return removed, nil
}

func (s *Store) CreateAuthToken(_ context.Context, token database.AuthToken) (*database.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	token.CreatedAt = time.Now().UTC()
	token.Active = true
	s.tokens[token.ID] = token
	s.tokenOrder = append(s.tokenOrder, token.ID)
	return &token, nil
}

func (s *Store) GetAuthToken(_ context.Context, id uuid.UUID) (*database.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.tokens[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &t, nil
}

func (s *Store) GetAuthTokenByHash(_ context.Context, hash string) (*database.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			return &t, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) ListAuthTokens(_ context.Context) ([]database.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	tokens := make([]database.AuthToken, 0, len(s.tokenOrder))
	for i := len(s.tokenOrder) - 1; i >= 0; i-- {
		tokens = append(tokens, s.tokens[s.tokenOrder[i]])
	}
	return tokens, nil
}

func (s *Store) DeleteAuthToken(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.tokens[id]; !ok {
		return fmt.Errorf("auth token %s: %w", id, database.ErrNotFound)
	}
	delete(s.tokens, id)
	for i, tid := range s.tokenOrder {
		if tid == id {
			s.tokenOrder = append(s.tokenOrder[:i], s.tokenOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) TouchAuthToken(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	t, ok := s.tokens[id]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now().UTC()
	t.LastUsedAt = &now
	s.tokens[id] = t
	return nil
}

func (s *Store) CountAuthTokens(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.tokens)), nil
}

func dedupeKeys(keys []types.PublicKey) []types.PublicKey {
	seen := make(map[types.PublicKey]bool, len(keys))
	var out []types.PublicKey
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func paginate[T any](items []T, limit, offset int64) []T {
	if offset >= int64(len(items)) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func strEq(have, want *string) bool {
	return have != nil && want != nil && *have == *want
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
