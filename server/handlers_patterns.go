package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

func patternToWire(p database.ProposerPattern, relays []database.PatternRelay) types.ProposerPatternResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return types.ProposerPatternResponse{
		Name:         p.Name,
		Pattern:      p.Pattern,
		Tags:         tags,
		FeeRecipient: p.FeeRecipient,
		GasLimit:     p.GasLimit,
		MinValue:     p.MinValue,
		ResetRelays:  p.ResetRelays,
		Relays:       patternRelaysToWire(relays),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (s *Service) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	filter := database.PatternFilter{
		NamePrefix: r.URL.Query().Get("name"),
		Tag:        r.URL.Query().Get("tag"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}

	patterns, total, err := s.store.ListPatterns(r.Context(), filter)
	if err != nil {
		s.respondStoreError(w, err, "couldn't list patterns")
		return
	}

	items := make([]types.ProposerPatternListItem, 0, len(patterns))
	for _, p := range patterns {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, types.ProposerPatternListItem{
			Name:         p.Name,
			Pattern:      p.Pattern,
			Tags:         tags,
			FeeRecipient: p.FeeRecipient,
			GasLimit:     p.GasLimit,
			MinValue:     p.MinValue,
			ResetRelays:  p.ResetRelays,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		})
	}
	s.respondOK(w, types.PaginatedResponse[types.ProposerPatternListItem]{
		Data:   items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Service) handleGetPattern(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p, err := s.store.GetPattern(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load pattern")
		return
	}
	relays, err := s.store.GetPatternRelays(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load pattern relays")
		return
	}
	s.respondOK(w, patternToWire(*p, relays))
}

func (s *Service) handleCreatePattern(w http.ResponseWriter, r *http.Request) {
	payload := new(types.CreateProposerPatternRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	if payload.Name == "" || payload.Pattern == "" {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "name and pattern are required")
		return
	}

	p := database.ProposerPattern{
		Name:         payload.Name,
		Pattern:      payload.Pattern,
		Tags:         payload.Tags,
		FeeRecipient: payload.FeeRecipient,
		GasLimit:     payload.GasLimit,
		MinValue:     payload.MinValue,
		ResetRelays:  payload.ResetRelays,
	}
	if err := s.store.CreatePattern(r.Context(), p, patternRelaysFromWire(payload.Name, payload.Relays)); err != nil {
		s.respondStoreError(w, err, "couldn't create pattern")
		return
	}
	s.audit.Record(r, "create", "proposer_pattern", payload.Name)

	created, err := s.store.GetPattern(r.Context(), payload.Name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't reload pattern")
		return
	}
	relays, err := s.store.GetPatternRelays(r.Context(), payload.Name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load pattern relays")
		return
	}
	s.respondJSON(w, http.StatusCreated, patternToWire(*created, relays))
}

func (s *Service) handleUpdatePattern(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	payload := new(types.UpdateProposerPatternRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	update := database.PatternUpdate{
		Pattern:      payload.Pattern,
		Tags:         payload.Tags,
		FeeRecipient: payload.FeeRecipient,
		GasLimit:     payload.GasLimit,
		MinValue:     payload.MinValue,
		ResetRelays:  payload.ResetRelays,
	}
	if payload.Relays != nil {
		update.Relays = patternRelaysFromWire(name, payload.Relays)
	}
	if err := s.store.UpdatePattern(r.Context(), name, update); err != nil {
		s.respondStoreError(w, err, "couldn't update pattern")
		return
	}
	s.audit.Record(r, "update", "proposer_pattern", name)

	updated, err := s.store.GetPattern(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't reload pattern")
		return
	}
	relays, err := s.store.GetPatternRelays(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load pattern relays")
		return
	}
	s.respondOK(w, patternToWire(*updated, relays))
}

func (s *Service) handleDeletePattern(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.store.DeletePattern(r.Context(), name); err != nil {
		s.respondStoreError(w, err, "couldn't delete pattern")
		return
	}
	s.audit.Record(r, "delete", "proposer_pattern", name)
	w.WriteHeader(http.StatusNoContent)
}
