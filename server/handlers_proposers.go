package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

func pathPubkey(r *http.Request) (types.PublicKey, bool) {
	key, err := types.HexToPubkey(mux.Vars(r)["pubkey"])
	return key, err == nil
}

func (s *Service) handleListProposers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	fee, err := queryAddress(r, "fee_recipient")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	resetRelays, err := queryBool(r, "reset_relays")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	filter := database.ProposerFilter{
		FeeRecipient: fee,
		GasLimit:     queryString(r, "gas_limit"),
		MinValue:     queryString(r, "min_value"),
		ResetRelays:  resetRelays,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	proposers, total, err := s.store.ListProposers(r.Context(), filter)
	if err != nil {
		s.respondStoreError(w, err, "couldn't list proposers")
		return
	}

	items := make([]types.ProposerListItem, 0, len(proposers))
	for _, p := range proposers {
		items = append(items, types.ProposerListItem{
			PublicKey:    p.PublicKey,
			FeeRecipient: p.FeeRecipient,
			GasLimit:     p.GasLimit,
			MinValue:     p.MinValue,
			ResetRelays:  p.ResetRelays,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	s.respondOK(w, types.PaginatedResponse[types.ProposerListItem]{
		Data:   items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Service) handleGetProposer(w http.ResponseWriter, r *http.Request) {
	key, ok := pathPubkey(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "invalid public key")
		return
	}

	p, err := s.store.GetProposer(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load proposer")
		return
	}
	relays, err := s.store.GetProposerRelays(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load proposer relays")
		return
	}
	s.respondOK(w, proposerToWire(*p, relays))
}

func (s *Service) handleUpsertProposer(w http.ResponseWriter, r *http.Request) {
	key, ok := pathPubkey(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "invalid public key")
		return
	}

	payload := new(types.CreateOrUpdateProposerRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	p := database.Proposer{
		PublicKey:    key,
		FeeRecipient: payload.FeeRecipient,
		GasLimit:     payload.GasLimit,
		MinValue:     payload.MinValue,
		ResetRelays:  payload.ResetRelays,
	}
	if err := s.store.UpsertProposer(r.Context(), p, proposerRelaysFromWire(key, payload.Relays)); err != nil {
		s.respondStoreError(w, err, "couldn't upsert proposer")
		return
	}
	s.audit.Record(r, "upsert", "proposer", key.String())

	saved, err := s.store.GetProposer(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, err, "couldn't reload proposer")
		return
	}
	relays, err := s.store.GetProposerRelays(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load proposer relays")
		return
	}
	s.respondOK(w, proposerToWire(*saved, relays))
}

func (s *Service) handleDeleteProposer(w http.ResponseWriter, r *http.Request) {
	key, ok := pathPubkey(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "invalid public key")
		return
	}

	if err := s.store.DeleteProposer(r.Context(), key); err != nil {
		s.respondStoreError(w, err, "couldn't delete proposer")
		return
	}
	s.audit.Record(r, "delete", "proposer", key.String())
	w.WriteHeader(http.StatusNoContent)
}

func proposerToWire(p database.Proposer, relays []database.ProposerRelay) types.ProposerResponse {
	return types.ProposerResponse{
		PublicKey:    p.PublicKey,
		FeeRecipient: p.FeeRecipient,
		GasLimit:     p.GasLimit,
		MinValue:     p.MinValue,
		ResetRelays:  p.ResetRelays,
		Relays:       proposerRelaysToWire(relays),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
