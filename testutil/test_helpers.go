// Package testutil provides random test fixtures for keys and addresses.
package testutil

import (
	"crypto/rand"
	"testing"

	"github.com/flashbots/go-boost-utils/bls"
	"github.com/stretchr/testify/require"

	"github.com/ethvouch/fee-manager/types"
)

// RandomBLSPublicKey returns the public key of a freshly generated BLS
// keypair, so fixtures are valid points on the curve.
func RandomBLSPublicKey(t *testing.T) types.PublicKey {
	t.Helper()

	_, blsPublicKey, err := bls.GenerateNewKeypair()
	require.NoError(t, err)

	var publicKey types.PublicKey
	copy(publicKey[:], bls.PublicKeyToBytes(blsPublicKey))

	return publicKey
}

// RandomAddress returns a random 20-byte execution address.
func RandomAddress(t *testing.T) types.Address {
	t.Helper()

	var addr types.Address
	_, err := rand.Read(addr[:])
	require.NoError(t, err)

	return addr
}
