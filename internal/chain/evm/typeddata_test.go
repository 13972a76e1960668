package evm

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

const mailTypedData = `{
  "types": {
    "EIP712Domain": [
      {"name": "name", "type": "string"},
      {"name": "version", "type": "string"},
      {"name": "chainId", "type": "uint256"},
      {"name": "verifyingContract", "type": "address"}
    ],
    "Person": [
      {"name": "name", "type": "string"},
      {"name": "wallet", "type": "address"}
    ],
    "Mail": [
      {"name": "from", "type": "Person"},
      {"name": "to", "type": "Person"},
      {"name": "contents", "type": "string"}
    ]
  },
  "primaryType": "Mail",
  "domain": {
    "name": "Ether Mail",
    "version": "1",
    "chainId": 1,
    "verifyingContract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
  },
  "message": {
    "from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
    "to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
    "contents": "Hello, Bob!"
  }
}`

func TestTypedDataHash(t *testing.T) {
	t.Parallel()

	hash, err := TypedDataHash([]byte(mailTypedData))
	require.NoError(t, err)
	assert.Equal(t, "be609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2", hex.EncodeToString(hash))

	_, err = TypedDataHash([]byte(`{`))
	require.ErrorIs(t, err, cwerr.ErrInvalidInput)

	_, err = TypedDataHash([]byte(`{"types":{},"domain":{},"message":{}}`))
	require.ErrorIs(t, err, cwerr.ErrInvalidInput)
}

func TestLegacyTypedDataHash(t *testing.T) {
	t.Parallel()

	raw := `[
		{"type": "string", "name": "message", "value": "Hi, Alice!"},
		{"type": "uint32", "name": "value", "value": 42},
		{"type": "bool", "name": "ok", "value": true},
		{"type": "bytes2", "name": "tag", "value": "0xbeef"}
	]`
	hash, err := LegacyTypedDataHash([]byte(raw))
	require.NoError(t, err)

	schema := crypto.Keccak256([]byte("string message" + "uint32 value" + "bool ok" + "bytes2 tag"))
	values := append([]byte("Hi, Alice!"), 0, 0, 0, 42, 1, 0xbe, 0xef)
	assert.Equal(t, crypto.Keccak256(schema, crypto.Keccak256(values)), hash)
}

func TestLegacyTypedDataHash_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `nope`},
		{"empty", `[]`},
		{"missing name", `[{"type":"string","value":"x"}]`},
		{"unknown type", `[{"type":"tuple","name":"t","value":"x"}]`},
		{"uint overflow", `[{"type":"uint8","name":"n","value":256}]`},
		{"negative uint", `[{"type":"uint8","name":"n","value":-1}]`},
		{"bad address", `[{"type":"address","name":"a","value":"0x12"}]`},
		{"bytesN too long", `[{"type":"bytes1","name":"b","value":"0xbeef"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LegacyTypedDataHash([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestPackLegacyInt(t *testing.T) {
	t.Parallel()

	b, err := packLegacyInt("int16", []byte(`-1`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, b)

	b, err = packLegacyInt("uint", []byte(`"0x0100"`))
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, byte(0x01), b[30])
}
