package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/database/mock"
)

var testLog = logrus.NewEntry(logrus.New())

func newTestService(t *testing.T) (*Service, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	return NewService(store, testLog), store
}

func TestCreateAndValidateToken(t *testing.T) {
	svc, _ := newTestService(t)

	created, plaintext, err := svc.CreateToken(context.Background(), "ci", nil)
	require.NoError(t, err)
	require.Len(t, plaintext, 64) // 32 random bytes, hex
	require.Equal(t, HashToken(plaintext), created.TokenHash)
	require.NotEqual(t, plaintext, created.TokenHash)

	validated, err := svc.Validate(context.Background(), plaintext)
	require.NoError(t, err)
	require.Equal(t, created.ID, validated.ID)
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Validate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTouchesLastUsed(t *testing.T) {
	svc, store := newTestService(t)

	created, plaintext, err := svc.CreateToken(context.Background(), "ci", nil)
	require.NoError(t, err)
	require.Nil(t, created.LastUsedAt)

	_, err = svc.Validate(context.Background(), plaintext)
	require.NoError(t, err)

	reloaded, err := store.GetAuthToken(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastUsedAt)
}

func TestEnsureDefaultToken(t *testing.T) {
	svc, _ := newTestService(t)

	plaintext, err := svc.EnsureDefaultToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)

	_, err = svc.Validate(context.Background(), plaintext)
	require.NoError(t, err)

	// Second start: tokens exist, nothing is created.
	again, err := svc.EnsureDefaultToken(context.Background())
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestDeleteTokenRevokesAccess(t *testing.T) {
	svc, _ := newTestService(t)

	created, plaintext, err := svc.CreateToken(context.Background(), "ci", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteToken(context.Background(), created.ID))
	_, err = svc.Validate(context.Background(), plaintext)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, svc.DeleteToken(context.Background(), created.ID), database.ErrNotFound)
}

func TestMiddleware(t *testing.T) {
	svc, _ := newTestService(t)
	_, plaintext, err := svc.CreateToken(context.Background(), "ci", nil)
	require.NoError(t, err)

	var gotActor bool
	handler := svc.Middleware(func(w http.ResponseWriter, _ *http.Request, status int, msg string) {
		http.Error(w, msg, status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, gotActor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + plaintext, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer deadbeef", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotActor = false
			req := httptest.NewRequest(http.MethodGet, "/admin/v1/defaults", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.wantStatus, rr.Code)
			require.Equal(t, tc.wantStatus == http.StatusOK, gotActor)
		})
	}
}
