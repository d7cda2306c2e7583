package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

func defaultConfigToWire(cfg database.DefaultConfig, relays []database.DefaultRelay) types.DefaultConfigResponse {
	return types.DefaultConfigResponse{
		Name:         cfg.Name,
		FeeRecipient: cfg.FeeRecipient,
		GasLimit:     cfg.GasLimit,
		MinValue:     cfg.MinValue,
		Active:       cfg.Active,
		Relays:       defaultRelaysToWire(relays),
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
}

func (s *Service) handleListDefaultConfigs(w http.ResponseWriter, r *http.Request) {
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
	active, err := queryBool(r, "active")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	filter := database.DefaultConfigFilter{
		NamePrefix:   r.URL.Query().Get("name"),
		FeeRecipient: fee,
		GasLimit:     queryString(r, "gas_limit"),
		MinValue:     queryString(r, "min_value"),
		Active:       active,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	configs, total, err := s.store.ListDefaultConfigs(r.Context(), filter)
	if err != nil {
		s.respondStoreError(w, err, "couldn't list default configs")
		return
	}

	items := make([]types.DefaultConfigListItem, 0, len(configs))
	for _, cfg := range configs {
		relays, err := s.store.GetDefaultRelays(r.Context(), cfg.Name)
		if err != nil {
			s.respondStoreError(w, err, "couldn't load default relays")
			return
		}
		items = append(items, types.DefaultConfigListItem(defaultConfigToWire(cfg, relays)))
	}
	s.respondOK(w, types.PaginatedResponse[types.DefaultConfigListItem]{
		Data:   items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Service) handleGetDefaultConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	cfg, err := s.store.GetDefaultConfig(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load default config")
		return
	}
	relays, err := s.store.GetDefaultRelays(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load default relays")
		return
	}
	s.respondOK(w, defaultConfigToWire(*cfg, relays))
}

func (s *Service) handleCreateDefaultConfig(w http.ResponseWriter, r *http.Request) {
	payload := new(types.CreateDefaultConfigRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}
	if payload.Name == "" {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, "name is required")
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	cfg := database.DefaultConfig{
		Name:         payload.Name,
		FeeRecipient: payload.FeeRecipient,
		GasLimit:     payload.GasLimit,
		MinValue:     payload.MinValue,
		Active:       active,
	}
	if err := s.store.CreateDefaultConfig(r.Context(), cfg, defaultRelaysFromWire(payload.Name, payload.Relays)); err != nil {
		s.respondStoreError(w, err, "couldn't create default config")
		return
	}
	s.audit.Record(r, "create", "default_config", payload.Name)

	created, err := s.store.GetDefaultConfig(r.Context(), payload.Name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't reload default config")
		return
	}
	relays, err := s.store.GetDefaultRelays(r.Context(), payload.Name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load default relays")
		return
	}
	s.respondJSON(w, http.StatusCreated, defaultConfigToWire(*created, relays))
}

func (s *Service) handleUpdateDefaultConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	payload := new(types.UpdateDefaultConfigRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	update := database.DefaultConfigUpdate{
		FeeRecipient: payload.FeeRecipient,
		GasLimit:     payload.GasLimit,
		MinValue:     payload.MinValue,
		Active:       payload.Active,
	}
	if payload.Relays != nil {
		update.Relays = defaultRelaysFromWire(name, payload.Relays)
	}
	if err := s.store.UpdateDefaultConfig(r.Context(), name, update); err != nil {
		s.respondStoreError(w, err, "couldn't update default config")
		return
	}
	s.audit.Record(r, "update", "default_config", name)

	updated, err := s.store.GetDefaultConfig(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't reload default config")
		return
	}
	relays, err := s.store.GetDefaultRelays(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load default relays")
		return
	}
	s.respondOK(w, defaultConfigToWire(*updated, relays))
}

func (s *Service) handleDeleteDefaultConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.store.DeleteDefaultConfig(r.Context(), name); err != nil {
		s.respondStoreError(w, err, "couldn't delete default config")
		return
	}
	s.audit.Record(r, "delete", "default_config", name)
	w.WriteHeader(http.StatusNoContent)
}
