package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Function selectors, keccak256(signature)[0:4].
//
//nolint:gochecknoglobals // ABI constants
var (
	erc20TransferSelector       = []byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	erc721SafeTransferSelector  = []byte{0x42, 0x84, 0x2e, 0x0e} // safeTransferFrom(address,address,uint256)
	erc1155SafeTransferSelector = []byte{0xf2, 0x42, 0x43, 0x2a} // safeTransferFrom(address,address,uint256,uint256,bytes)
)

// Gas limits used when the node cannot estimate.
const (
	GasLimitNativeTransfer uint64 = 21000
	GasLimitERC20Transfer  uint64 = 65000
	GasLimitNFTTransfer    uint64 = 120000
)

// ERC20TransferData encodes transfer(to, amount).
func ERC20TransferData(to string, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32*2)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, math.U256Bytes(new(big.Int).Set(nonNil(amount)))...)
	return data
}

// ERC721TransferData encodes safeTransferFrom(from, to, tokenID).
func ERC721TransferData(from, to string, tokenID *big.Int) []byte {
	data := make([]byte, 0, 4+32*3)
	data = append(data, erc721SafeTransferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(from).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, math.U256Bytes(new(big.Int).Set(nonNil(tokenID)))...)
	return data
}

// ERC1155TransferData encodes safeTransferFrom(from, to, id, amount, "").
func ERC1155TransferData(from, to string, tokenID, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32*6)
	data = append(data, erc1155SafeTransferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(from).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, math.U256Bytes(new(big.Int).Set(nonNil(tokenID)))...)
	data = append(data, math.U256Bytes(new(big.Int).Set(nonNil(amount)))...)
	// dynamic bytes: offset (5 * 32) then zero length
	data = append(data, math.U256Bytes(big.NewInt(5*32))...)
	data = append(data, make([]byte, 32)...)
	return data
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
