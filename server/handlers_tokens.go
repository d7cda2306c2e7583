package server

import (
	"net/http"

	"github.com/google/uuid"
	gmux "github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

func tokenToWire(t database.AuthToken) types.AuthTokenResponse {
	return types.AuthTokenResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
		LastUsedAt:  t.LastUsedAt,
	}
}

func (s *Service) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.auth.ListTokens(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "couldn't list auth tokens")
		return
	}
	items := make([]types.AuthTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		items = append(items, tokenToWire(t))
	}
	s.respondOK(w, items)
}

func (s *Service) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(gmux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "invalid token id")
		return
	}

	token, err := s.auth.GetToken(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load auth token")
		return
	}
	s.respondOK(w, tokenToWire(*token))
}

func (s *Service) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	payload := new(types.CreateAuthTokenRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	if payload.Name == "" {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "name is required")
		return
	}

	token, plaintext, err := s.auth.CreateToken(r.Context(), payload.Name, payload.Description)
	if err != nil {
		s.respondStoreError(w, err, "couldn't create auth token")
		return
	}
	s.audit.Record(r, "create", "auth_token", token.ID.String())
	s.respondJSON(w, http.StatusCreated, types.CreatedAuthTokenResponse{
		AuthTokenResponse: tokenToWire(*token),
		Token:             plaintext,
	})
}

func (s *Service) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(gmux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "invalid token id")
		return
	}

	if err := s.auth.DeleteToken(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "couldn't delete auth token")
		return
	}
	s.audit.Record(r, "delete", "auth_token", id.String())
	w.WriteHeader(http.StatusNoContent)
}
