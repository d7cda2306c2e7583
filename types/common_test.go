package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyJSONSerialization(t *testing.T) {
	a := PublicKey{0x0a}
	a[47] = 0xff

	b, err := json.Marshal(a)
	require.NoError(t, err)

	expectedHex := "0x0a" + strings.Repeat("00", 46) + "ff"
	expectedJSON := fmt.Sprintf(`"%s"`, expectedHex)
	require.JSONEq(t, expectedJSON, string(b))

	a2 := PublicKey{}
	err = json.Unmarshal([]byte(expectedJSON), &a2)
	require.NoError(t, err)
	require.Equal(t, a, a2)
}

func TestAddressJSONSerialization(t *testing.T) {
	a := Address{0xaa}
	a[19] = 0x01

	b, err := json.Marshal(a)
	require.NoError(t, err)

	expectedHex := "0xaa" + strings.Repeat("00", 18) + "01"
	expectedJSON := fmt.Sprintf(`"%s"`, expectedHex)
	require.JSONEq(t, expectedJSON, string(b))

	a2 := Address{}
	err = json.Unmarshal([]byte(expectedJSON), &a2)
	require.NoError(t, err)
	require.Equal(t, a, a2)
}

func TestRoundTrip(t *testing.T) {
	pubkeys := []PublicKey{
		{},
		{0x01},
		{0xde, 0xad, 0xbe, 0xef},
	}
	pubkeys[1][47] = 0x42

	for _, p := range pubkeys {
		got, err := HexToPubkey(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}

	addrs := []Address{
		{},
		{0xff},
		{0x00, 0x01, 0x02},
	}
	for _, a := range addrs {
		got, err := HexToAddress(a.String())
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
}

func TestDecodeIsCaseInsensitiveEncodeIsLowercase(t *testing.T) {
	mixed := "0xAaBbCcDdEeFf00112233445566778899aAbBcCdD"
	a, err := HexToAddress(mixed)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(mixed), a.String())
}

func TestDecodeRejections(t *testing.T) {
	pubkeyHex := strings.Repeat("00", 48)

	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"missing prefix", pubkeyHex, ErrMissingPrefix},
		{"empty string", "", ErrMissingPrefix},
		{"odd number of digits", "0x" + pubkeyHex[:95], ErrOddLength},
		{"non-hex characters", "0xzz" + pubkeyHex[4:], ErrSyntax},
		{"too short", "0x" + pubkeyHex[:94], ErrLength},
		{"too long", "0x" + pubkeyHex + "00", ErrLength},
		{"prefix only", "0x", ErrLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HexToPubkey(tt.input)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestAddressRejectsPubkeyLength(t *testing.T) {
	_, err := HexToAddress("0x" + strings.Repeat("00", 48))
	require.ErrorIs(t, err, ErrLength)
}

func TestPubkeysToStrings(t *testing.T) {
	keys := []PublicKey{{0x01}, {0x02}}
	got := PubkeysToStrings(keys)
	require.Equal(t, []string{keys[0].String(), keys[1].String()}, got)
}
