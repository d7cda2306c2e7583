package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ethvouch/fee-manager/types"
)

// handleExecutionConfig serves the merged execution config for a batch of
// validator keys. Tags arrive as a comma-separated query parameter; an
// empty body key list and no tags are both fine and yield the defaults.
func (s *Service) handleExecutionConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["config"]

	payload := new(types.ExecutionConfigRequest)
	if err := DecodeJSON(r.Body, payload); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidData, err.Error())
		return
	}

	tags := parseTags(r.URL.Query().Get("tags"))

	resp, err := s.resolver.Resolve(r.Context(), configName, payload.Keys, tags)
	if err != nil {
		s.respondStoreError(w, err, "couldn't resolve execution config")
		return
	}
	s.respondOK(w, resp)
}

// handleGetMuxKeys serves the member keys of one mux config, in insertion
// order, to commit-boost style consumers.
func (s *Service) handleGetMuxKeys(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	keys, err := s.muxes.Keys(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err, "couldn't load mux keys")
		return
	}
	if keys == nil {
		keys = []types.PublicKey{}
	}
	s.respondOK(w, keys)
}

func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
