package evm_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/corewallet/internal/chain/evm"
)

const recipient = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestERC20TransferData(t *testing.T) {
	t.Parallel()

	data := evm.ERC20TransferData(recipient, big.NewInt(1000000))
	assert.Len(t, data, 68)

	encoded := hex.EncodeToString(data)
	assert.Equal(t, "a9059cbb", encoded[:8])
	assert.Equal(t, "0000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed", encoded[8:72])
	assert.Equal(t, "00000000000000000000000000000000000000000000000000000000000f4240", encoded[72:])
}

func TestERC721TransferData(t *testing.T) {
	t.Parallel()

	from := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	data := evm.ERC721TransferData(from, recipient, big.NewInt(7))
	assert.Len(t, data, 100)
	assert.Equal(t, "42842e0e", hex.EncodeToString(data[:4]))
	assert.Equal(t, byte(7), data[99])
}

func TestERC1155TransferData(t *testing.T) {
	t.Parallel()

	from := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	data := evm.ERC1155TransferData(from, recipient, big.NewInt(3), big.NewInt(2))
	assert.Len(t, data, 4+32*6)
	assert.Equal(t, "f242432a", hex.EncodeToString(data[:4]))
	assert.Equal(t, byte(3), data[4+32*3-1])
	assert.Equal(t, byte(2), data[4+32*4-1])
	assert.Equal(t, byte(160), data[4+32*5-1])
}

func TestTransferData_NilAmount(t *testing.T) {
	t.Parallel()

	data := evm.ERC20TransferData(recipient, nil)
	assert.Equal(t, make([]byte, 32), data[36:])
}
