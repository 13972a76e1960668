package evm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/chain/evm"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		wantErr error
	}{
		{"valid checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", nil},
		{"valid lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil},
		{"valid uppercase body", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", nil},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", cwerr.ErrInvalidChecksum},
		{"too short", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA", cwerr.ErrInvalidAddress},
		{"no prefix", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", cwerr.ErrInvalidAddress},
		{"non hex", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeG", cwerr.ErrInvalidAddress},
		{"empty", "", cwerr.ErrInvalidAddress},
		{"x-chain address", "X-avax1qr4kys4ry5ywqfwkk2mqvrnmtwwq4v2v2ey3tv", cwerr.ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := evm.ValidateAddress(tt.address)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	got, err := evm.NormalizeAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)

	_, err = evm.NormalizeAddress("nope")
	require.Error(t, err)
}

func TestSameAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, evm.SameAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	assert.False(t, evm.SameAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"))
	assert.False(t, evm.SameAddress("", ""))
}
