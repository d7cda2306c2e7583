package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethvouch/fee-manager/audit"
	"github.com/ethvouch/fee-manager/auth"
	"github.com/ethvouch/fee-manager/database/mock"
	"github.com/ethvouch/fee-manager/muxset"
	"github.com/ethvouch/fee-manager/resolver"
	"github.com/ethvouch/fee-manager/types"
)

var testLog = logrus.NewEntry(logrus.New())

type testBackend struct {
	service    *Service
	store      *mock.Store
	adminToken string
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	store := mock.NewStore()
	authService := auth.NewService(store, testLog)
	token, err := authService.EnsureDefaultToken(context.Background())
	require.NoError(t, err)

	service, err := NewService(ServiceOpts{
		ListenAddr: "localhost:0",
		Store:      store,
		Resolver:   resolver.NewEngine(store, testLog),
		Muxes:      muxset.NewManager(store, testLog),
		Auth:       authService,
		Audit:      audit.NewNopLogger(),
		Log:        testLog,
		Timeouts:   NewDefaultHTTPServerTimeouts(),
	})
	require.NoError(t, err)

	return &testBackend{service: service, store: store, adminToken: token}
}

func (be *testBackend) request(t *testing.T, method, path string, payload any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(payloadBytes)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+be.adminToken)
	}
	rr := httptest.NewRecorder()
	be.service.getRouter().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func testPubkey(b byte) types.PublicKey {
	var pk types.PublicKey
	pk[0] = 0xc0
	pk[47] = b
	return pk
}

func testAddress(b byte) types.Address {
	var addr types.Address
	addr[19] = b
	return addr
}

func strPtr(s string) *string { return &s }

func TestRootHandler(t *testing.T) {
	be := newTestBackend(t)
	rr := be.request(t, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "{}", rr.Body.String())
}

func TestHealth(t *testing.T) {
	be := newTestBackend(t)
	rr := be.request(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	be := newTestBackend(t)
	rr := be.request(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	be := newTestBackend(t)

	rr := be.request(t, http.MethodGet, "/admin/v1/default-configs", nil, false)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	resp := decodeBody[map[string]map[string]string](t, rr)
	require.Equal(t, "UNAUTHORIZED", resp["error"]["code"])
}

func TestDefaultConfigCRUD(t *testing.T) {
	be := newTestBackend(t)
	fee := testAddress(0x01)

	create := types.CreateDefaultConfigRequest{
		Name:         "mainnet",
		FeeRecipient: &fee,
		GasLimit:     strPtr("30000000"),
		Relays: map[string]types.RelayConfig{
			"https://relay-a.example.org": {PublicKey: testPubkey(0x0a)},
		},
	}

	rr := be.request(t, http.MethodPost, "/admin/v1/default-configs", create, true)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[types.DefaultConfigResponse](t, rr)
	require.Equal(t, "mainnet", created.Name)
	require.True(t, created.Active)
	require.Len(t, created.Relays, 1)

	// Duplicate name conflicts.
	rr = be.request(t, http.MethodPost, "/admin/v1/default-configs", create, true)
	require.Equal(t, http.StatusConflict, rr.Code)

	// Get.
	rr = be.request(t, http.MethodGet, "/admin/v1/default-configs/mainnet", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	// Partial update flips active only.
	inactive := false
	rr = be.request(t, http.MethodPatch, "/admin/v1/default-configs/mainnet",
		types.UpdateDefaultConfigRequest{Active: &inactive}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decodeBody[types.DefaultConfigResponse](t, rr)
	require.False(t, updated.Active)
	require.Equal(t, fee, *updated.FeeRecipient)
	require.Len(t, updated.Relays, 1)

	// Delete, then 404.
	rr = be.request(t, http.MethodDelete, "/admin/v1/default-configs/mainnet", nil, true)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = be.request(t, http.MethodGet, "/admin/v1/default-configs/mainnet", nil, true)
	require.Equal(t, http.StatusNotFound, rr.Code)
	resp := decodeBody[map[string]map[string]string](t, rr)
	require.Equal(t, "NOT_FOUND", resp["error"]["code"])
}

func TestDefaultConfigListPagination(t *testing.T) {
	be := newTestBackend(t)

	for _, name := range []string{"alpha", "beta", "gamma"} {
		rr := be.request(t, http.MethodPost, "/admin/v1/default-configs",
			types.CreateDefaultConfigRequest{Name: name}, true)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := be.request(t, http.MethodGet, "/admin/v1/default-configs?limit=2&offset=1", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[types.PaginatedResponse[types.DefaultConfigListItem]](t, rr)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	require.Equal(t, "beta", page.Data[0].Name)

	rr = be.request(t, http.MethodGet, "/admin/v1/default-configs?limit=0", nil, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProposerUpsertAndDelete(t *testing.T) {
	be := newTestBackend(t)
	key := testPubkey(0x11)
	fee := testAddress(0x02)

	body := types.CreateOrUpdateProposerRequest{
		FeeRecipient: &fee,
		ResetRelays:  true,
		Relays: map[string]types.ProposerRelayConfig{
			"https://relay-b.example.org": {PublicKey: testPubkey(0x0b), Disabled: true},
		},
	}
	rr := be.request(t, http.MethodPut, "/admin/v1/proposers/"+key.String(), body, true)
	require.Equal(t, http.StatusOK, rr.Code)
	saved := decodeBody[types.ProposerResponse](t, rr)
	require.Equal(t, key, saved.PublicKey)
	require.True(t, saved.ResetRelays)
	require.True(t, saved.Relays["https://relay-b.example.org"].Disabled)

	// Upsert is idempotent on the same key.
	body.ResetRelays = false
	rr = be.request(t, http.MethodPut, "/admin/v1/proposers/"+key.String(), body, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, decodeBody[types.ProposerResponse](t, rr).ResetRelays)

	rr = be.request(t, http.MethodPut, "/admin/v1/proposers/not-a-key", body, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = be.request(t, http.MethodDelete, "/admin/v1/proposers/"+key.String(), nil, true)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = be.request(t, http.MethodGet, "/admin/v1/proposers/"+key.String(), nil, true)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatternCRUD(t *testing.T) {
	be := newTestBackend(t)

	create := types.CreateProposerPatternRequest{
		Name:    "lido-operators",
		Pattern: "^lido/.*",
		Tags:    []string{"lido"},
	}
	rr := be.request(t, http.MethodPost, "/admin/v1/patterns", create, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Missing pattern text is invalid.
	rr = be.request(t, http.MethodPost, "/admin/v1/patterns",
		types.CreateProposerPatternRequest{Name: "incomplete"}, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	newPattern := "^lido2/.*"
	rr = be.request(t, http.MethodPatch, "/admin/v1/patterns/lido-operators",
		types.UpdateProposerPatternRequest{Pattern: &newPattern}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, newPattern, decodeBody[types.ProposerPatternResponse](t, rr).Pattern)

	rr = be.request(t, http.MethodGet, "/admin/v1/patterns?tag=lido", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[types.PaginatedResponse[types.ProposerPatternListItem]](t, rr)
	require.EqualValues(t, 1, page.Total)

	rr = be.request(t, http.MethodDelete, "/admin/v1/patterns/lido-operators", nil, true)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMuxAdminFlow(t *testing.T) {
	be := newTestBackend(t)
	k1, k2, k3 := testPubkey(0x01), testPubkey(0x02), testPubkey(0x03)

	rr := be.request(t, http.MethodPost, "/admin/v1/mux",
		types.CreateMuxConfigRequest{Name: "lido", Keys: []types.PublicKey{k1, k1, k2}}, true)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[types.MuxConfigResponse](t, rr)
	require.Equal(t, []types.PublicKey{k1, k2}, created.Keys)

	rr = be.request(t, http.MethodPost, "/admin/v1/mux",
		types.CreateMuxConfigRequest{Name: "lido"}, true)
	require.Equal(t, http.StatusConflict, rr.Code)

	// Add: one new, one already present.
	rr = be.request(t, http.MethodPost, "/admin/v1/mux/lido/keys",
		types.MuxKeysRequest{Keys: []types.PublicKey{k2, k3}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	addResp := decodeBody[types.MuxKeysResponse](t, rr)
	require.NotNil(t, addResp.Added)
	require.EqualValues(t, 1, *addResp.Added)
	require.EqualValues(t, 3, addResp.TotalKeys)

	// Remove: one present, one absent.
	rr = be.request(t, http.MethodDelete, "/admin/v1/mux/lido/keys",
		types.MuxKeysRequest{Keys: []types.PublicKey{k1, testPubkey(0x7f)}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	removeResp := decodeBody[types.MuxKeysResponse](t, rr)
	require.NotNil(t, removeResp.Removed)
	require.EqualValues(t, 1, *removeResp.Removed)
	require.EqualValues(t, 2, removeResp.TotalKeys)

	// Replace.
	rr = be.request(t, http.MethodPut, "/admin/v1/mux/lido",
		types.UpdateMuxConfigRequest{Keys: []types.PublicKey{k3}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []types.PublicKey{k3}, decodeBody[types.MuxConfigResponse](t, rr).Keys)

	// List with key counts.
	rr = be.request(t, http.MethodGet, "/admin/v1/mux", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[types.PaginatedResponse[types.MuxConfigListItem]](t, rr)
	require.EqualValues(t, 1, page.Total)
	require.EqualValues(t, 1, page.Data[0].KeyCount)

	rr = be.request(t, http.MethodDelete, "/admin/v1/mux/lido", nil, true)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestPublicMuxEndpoint(t *testing.T) {
	be := newTestBackend(t)
	k1 := testPubkey(0x01)

	rr := be.request(t, http.MethodPost, "/admin/v1/mux",
		types.CreateMuxConfigRequest{Name: "lido", Keys: []types.PublicKey{k1}}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	// No auth needed on the public read.
	rr = be.request(t, http.MethodGet, "/commit-boost/v1/mux/lido", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	keys := decodeBody[[]types.PublicKey](t, rr)
	require.Equal(t, []types.PublicKey{k1}, keys)

	rr = be.request(t, http.MethodGet, "/commit-boost/v1/mux/unknown", nil, false)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExecutionConfigEndpoint(t *testing.T) {
	be := newTestBackend(t)
	fee := testAddress(0x01)
	key := testPubkey(0x11)

	rr := be.request(t, http.MethodPost, "/admin/v1/default-configs",
		types.CreateDefaultConfigRequest{
			Name:         "mainnet",
			FeeRecipient: &fee,
			Relays: map[string]types.RelayConfig{
				"https://relay-a.example.org": {PublicKey: testPubkey(0x0a)},
			},
		}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	proposerFee := testAddress(0x02)
	rr = be.request(t, http.MethodPut, "/admin/v1/proposers/"+key.String(),
		types.CreateOrUpdateProposerRequest{FeeRecipient: &proposerFee}, true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = be.request(t, http.MethodPost, "/admin/v1/patterns",
		types.CreateProposerPatternRequest{
			Name:    "lido-operators",
			Pattern: "^lido/.*",
			Tags:    []string{"lido"},
		}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Public resolution: key override plus tag-matched pattern.
	rr = be.request(t, http.MethodPost, "/vouch/v2/execution-config/mainnet?tags=lido,unknown",
		types.ExecutionConfigRequest{Keys: []types.PublicKey{key, testPubkey(0x7f)}}, false)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[types.ExecutionConfigResponse](t, rr)
	require.Equal(t, 2, resp.Version)
	require.Equal(t, fee, *resp.FeeRecipient)
	require.Len(t, resp.Relays, 1)
	require.Len(t, resp.Proposers, 2)
	require.Equal(t, key.String(), resp.Proposers[0].Proposer)
	require.Equal(t, "^lido/.*", resp.Proposers[1].Proposer)

	// Unknown config.
	rr = be.request(t, http.MethodPost, "/vouch/v2/execution-config/unknown",
		types.ExecutionConfigRequest{}, false)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Malformed body.
	req, err := http.NewRequest(http.MethodPost, "/vouch/v2/execution-config/mainnet",
		bytes.NewReader([]byte(`{"keys": [123]}`)))
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	be.service.getRouter().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	errResp := decodeBody[map[string]map[string]string](t, recorder)
	require.Equal(t, "INVALID_DATA", errResp["error"]["code"])
}

func TestExecutionConfigInactiveConfig(t *testing.T) {
	be := newTestBackend(t)

	inactive := false
	rr := be.request(t, http.MethodPost, "/admin/v1/default-configs",
		types.CreateDefaultConfigRequest{Name: "mainnet", Active: &inactive}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = be.request(t, http.MethodPost, "/vouch/v2/execution-config/mainnet",
		types.ExecutionConfigRequest{}, false)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTokenAdminFlow(t *testing.T) {
	be := newTestBackend(t)

	rr := be.request(t, http.MethodPost, "/admin/v1/tokens",
		types.CreateAuthTokenRequest{Name: "ci"}, true)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[types.CreatedAuthTokenResponse](t, rr)
	require.NotEmpty(t, created.Token)
	require.Equal(t, "ci", created.Name)

	// The new token works for admin calls.
	req, err := http.NewRequest(http.MethodGet, "/admin/v1/tokens", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	recorder := httptest.NewRecorder()
	be.service.getRouter().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	tokens := decodeBody[[]types.AuthTokenResponse](t, recorder)
	require.Len(t, tokens, 2) // bootstrap + ci

	// The plaintext is never present in listings.
	require.NotContains(t, recorder.Body.String(), created.Token)

	rr = be.request(t, http.MethodDelete, "/admin/v1/tokens/"+created.ID, nil, true)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = be.request(t, http.MethodGet, "/admin/v1/tokens/"+created.ID, nil, true)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
