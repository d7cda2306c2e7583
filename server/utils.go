package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/types"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// DecodeJSON reads JSON from io.Reader and decodes it into a struct
func DecodeJSON(r io.Reader, dst any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Service) respondOK(w http.ResponseWriter, payload any) {
	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("couldn't write response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

// parsePagination reads limit/offset query parameters. Absent values fall
// back to the defaults; malformed or out-of-range values are an error.
func parsePagination(r *http.Request) (database.Pagination, error) {
	page := database.Pagination{Limit: defaultPageLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return page, fmt.Errorf("invalid limit %q", raw)
		}
		page.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			return page, fmt.Errorf("invalid offset %q", raw)
		}
		page.Offset = offset
	}
	return page, nil
}

func queryAddress(r *http.Request, param string) (*types.Address, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	addr, err := types.HexToAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", param, err)
	}
	return &addr, nil
}

func queryString(r *http.Request, param string) *string {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil
	}
	return &raw
}

func queryBool(r *http.Request, param string) (*bool, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", param, err)
	}
	return &val, nil
}

// Wire <-> entity conversions. Relay collections travel as URL-keyed maps
// on the wire and as flat child rows in the store.

func defaultRelaysFromWire(configName string, relays map[string]types.RelayConfig) []database.DefaultRelay {
	out := make([]database.DefaultRelay, 0, len(relays))
	for url, r := range relays {
		out = append(out, database.DefaultRelay{
			ConfigName:   configName,
			URL:          url,
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		})
	}
	return out
}

func defaultRelaysToWire(relays []database.DefaultRelay) map[string]types.RelayConfig {
	if len(relays) == 0 {
		return nil
	}
	out := make(map[string]types.RelayConfig, len(relays))
	for _, r := range relays {
		out[r.URL] = types.RelayConfig{
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		}
	}
	return out
}

func proposerRelaysFromWire(owner types.PublicKey, relays map[string]types.ProposerRelayConfig) []database.ProposerRelay {
	out := make([]database.ProposerRelay, 0, len(relays))
	for url, r := range relays {
		out = append(out, database.ProposerRelay{
			ProposerKey:  owner,
			URL:          url,
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
			Disabled:     r.Disabled,
		})
	}
	return out
}

func proposerRelaysToWire(relays []database.ProposerRelay) map[string]types.ProposerRelayConfig {
	if len(relays) == 0 {
		return nil
	}
	out := make(map[string]types.ProposerRelayConfig, len(relays))
	for _, r := range relays {
		out[r.URL] = types.ProposerRelayConfig{
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
			Disabled:     r.Disabled,
		}
	}
	return out
}

func patternRelaysFromWire(patternName string, relays map[string]types.RelayConfig) []database.PatternRelay {
	out := make([]database.PatternRelay, 0, len(relays))
	for url, r := range relays {
		out = append(out, database.PatternRelay{
			PatternName:  patternName,
			URL:          url,
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		})
	}
	return out
}

func patternRelaysToWire(relays []database.PatternRelay) map[string]types.RelayConfig {
	if len(relays) == 0 {
		return nil
	}
	out := make(map[string]types.RelayConfig, len(relays))
	for _, r := range relays {
		out[r.URL] = types.RelayConfig{
			PublicKey:    r.PublicKey,
			FeeRecipient: r.FeeRecipient,
			GasLimit:     r.GasLimit,
			MinValue:     r.MinValue,
		}
	}
	return out
}
