package avax

import (
	"testing"

	"github.com/ava-labs/avalanchego/utils/cb58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

func TestParseID(t *testing.T) {
	t.Parallel()

	const avaxAsset = "FvwEAhmxKfeiG8SnEvq42hc6whRyY3EFYAvebMqDNDGCgxN5Z"

	id, err := ParseID(avaxAsset)
	require.NoError(t, err)
	assert.Equal(t, avaxAsset, id.String())

	empty, err := ParseID("11111111111111111111111111111111LpoYY")
	require.NoError(t, err)
	assert.Equal(t, EmptyID, empty)
}

func TestParseID_Errors(t *testing.T) {
	t.Parallel()

	short, err := cb58.Encode([]byte{1, 2, 3})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
	}{
		{"bad checksum", "FvwEAhmxKfeiG8SnEvq42hc6whRyY3EFYAvebMqDNDGCgxN5a"},
		{"wrong length", short},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseID(tc.in)
			require.ErrorIs(t, err, cwerr.ErrInvalidInput)
		})
	}
}

func TestParams(t *testing.T) {
	t.Parallel()

	main, ok := ParamsForHRP(HRPMainnet)
	require.True(t, ok)
	assert.Equal(t, NetworkIDMainnet, main.NetworkID)
	assert.Equal(t, "2oYMBNV4eNHyqk2fjjV5nVQLDbtmNJzq5s3qs3Lo6ftnC6FByM", main.XBlockchainID.String())

	pID, ok := main.BlockchainID(AliasP)
	require.True(t, ok)
	assert.Equal(t, EmptyID, pID)

	fuji, ok := ParamsForHRP(HRPFuji)
	require.True(t, ok)
	assert.Equal(t, NetworkIDFuji, fuji.NetworkID)

	_, ok = ParamsForHRP("nope")
	assert.False(t, ok)
	_, ok = main.BlockchainID("C")
	assert.False(t, ok)
}
