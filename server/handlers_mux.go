package server

import (
	"net/http"

	gmux "github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/muxset"
	"github.com/ethvouch/fee-manager/types"
)

func muxConfigToWire(set *muxset.KeySet) types.MuxConfigResponse {
	keys := set.Keys
	if keys == nil {
		keys = []types.PublicKey{}
	}
	return types.MuxConfigResponse{
		Name:      set.Config.Name,
		Keys:      keys,
		CreatedAt: set.Config.CreatedAt,
		UpdatedAt: set.Config.UpdatedAt,
	}
}

func (s *Service) handleListMuxConfigs(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	items, total, err := s.muxes.List(r.Context(), page)
	if err != nil {
		s.respondStoreError(w, err, "couldn't list mux configs")
		return
	}
	s.respondOK(w, types.PaginatedResponse[types.MuxConfigListItem]{
		Data:   items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Service) handleGetMuxConfig(w http.ResponseWriter, r *http.Request) {
	name := gmux.Vars(r)["name"]

	set, err := s.muxes.Get(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load mux config")
		return
	}
	s.respondOK(w, muxConfigToWire(set))
}

func (s *Service) handleCreateMuxConfig(w http.ResponseWriter, r *http.Request) {
	payload := new(types.CreateMuxConfigRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	if payload.Name == "" {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "name is required")
		return
	}

	set, err := s.muxes.Create(r.Context(), payload.Name, payload.Keys)
	if err != nil {
		s.respondStoreError(w, err, "couldn't create mux config")
		return
	}
	s.audit.Record(r, "create", "mux_config", payload.Name)
	s.respondJSON(w, http.StatusCreated, muxConfigToWire(set))
}

func (s *Service) handleReplaceMuxKeys(w http.ResponseWriter, r *http.Request) {
	name := gmux.Vars(r)["name"]

	payload := new(types.UpdateMuxConfigRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	set, err := s.muxes.Replace(r.Context(), name, payload.Keys)
	if err != nil {
		s.respondStoreError(w, err, "couldn't replace mux keys")
		return
	}
	s.audit.Record(r, "replace", "mux_config", name)
	s.respondOK(w, muxConfigToWire(set))
}

func (s *Service) handleDeleteMuxConfig(w http.ResponseWriter, r *http.Request) {
	name := gmux.Vars(r)["name"]

	if err := s.muxes.Delete(r.Context(), name); err != nil {
		s.respondStoreError(w, err, "couldn't delete mux config")
		return
	}
	s.audit.Record(r, "delete", "mux_config", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleAddMuxKeys(w http.ResponseWriter, r *http.Request) {
	name := gmux.Vars(r)["name"]

	payload := new(types.MuxKeysRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	added, total, err := s.muxes.Add(r.Context(), name, payload.Keys)
	if err != nil {
		s.respondStoreError(w, err, "couldn't add mux keys")
		return
	}
	s.audit.Record(r, "add_keys", "mux_config", name)
	s.respondOK(w, types.MuxKeysResponse{Added: &added, TotalKeys: total})
}

func (s *Service) handleRemoveMuxKeys(w http.ResponseWriter, r *http.Request) {
	name := gmux.Vars(r)["name"]

	payload := new(types.MuxKeysRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	removed, total, err := s.muxes.Remove(r.Context(), name, payload.Keys)
	if err != nil {
		s.respondStoreError(w, err, "couldn't remove mux keys")
		return
	}
	s.audit.Record(r, "remove_keys", "mux_config", name)
	s.respondOK(w, types.MuxKeysResponse{Removed: &removed, TotalKeys: total})
}
