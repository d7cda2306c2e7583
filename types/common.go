// Package types holds the fixed-width identifiers and wire types shared by
// the storage layer and the HTTP API. Identifiers use one canonical form
// everywhere: "0x" + lowercase hex, both in Postgres and on the wire.
package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PublicKey is a BLS validator public key (48 bytes).
type PublicKey [48]byte

// Address is an execution-layer address (20 bytes).
type Address [20]byte

var (
	ErrMissingPrefix = errors.New("missing 0x prefix")
	ErrOddLength     = errors.New("odd number of hex digits")
	ErrSyntax        = errors.New("invalid hex digits")
	ErrLength        = errors.New("invalid length")
)

// decodeHex parses a 0x-prefixed hex string into exactly want bytes.
// Hex digits are accepted case-insensitively; anything malformed is an
// error, never a truncation or padding.
func decodeHex(input string, want int) ([]byte, error) {
	b, err := hexutil.Decode(input)
	switch {
	case err == nil:
	case errors.Is(err, hexutil.ErrMissingPrefix), errors.Is(err, hexutil.ErrEmptyString):
		return nil, ErrMissingPrefix
	case errors.Is(err, hexutil.ErrOddLength):
		return nil, ErrOddLength
	case errors.Is(err, hexutil.ErrSyntax):
		return nil, ErrSyntax
	default:
		return nil, err
	}
	if len(b) != want {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrLength, want, len(b))
	}
	return b, nil
}

func (p PublicKey) String() string {
	return hexutil.Encode(p[:])
}

func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PublicKey) UnmarshalText(input []byte) error {
	b, err := decodeHex(string(input), len(p))
	if err != nil {
		return err
	}
	copy(p[:], b)
	return nil
}

func (a Address) String() string {
	return hexutil.Encode(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(input []byte) error {
	b, err := decodeHex(string(input), len(a))
	if err != nil {
		return err
	}
	copy(a[:], b)
	return nil
}

// HexToPubkey parses a canonical public key string.
func HexToPubkey(s string) (ret PublicKey, err error) {
	err = ret.UnmarshalText([]byte(s))
	return ret, err
}

// HexToAddress parses a canonical address string.
func HexToAddress(s string) (ret Address, err error) {
	err = ret.UnmarshalText([]byte(s))
	return ret, err
}

// PubkeysToStrings converts keys to their canonical text form, preserving
// order. Used for bulk store lookups, which bind keys as text arrays.
func PubkeysToStrings(keys []PublicKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
