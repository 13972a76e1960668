package signer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// BIP44 coin types.
const (
	CoinTypeEVM  uint32 = 60
	CoinTypeAVAX uint32 = 9000
)

// Path is a BIP32 derivation path.
type Path []uint32

// String renders the path in m/44'/... notation.
func (p Path) String() string {
	s := "m"
	for _, c := range p {
		if c >= bip32.FirstHardenedChild {
			s += fmt.Sprintf("/%d'", c-bip32.FirstHardenedChild)
		} else {
			s += fmt.Sprintf("/%d", c)
		}
	}
	return s
}

func hardened(i uint32) uint32 { return bip32.FirstHardenedChild + i }

// EVMPath is m/44'/60'/0'/0/index for the given account index.
func EVMPath(index uint32) Path {
	return Path{hardened(44), hardened(CoinTypeEVM), hardened(0), 0, index}
}

// XPPath is m/44'/9000'/0'/change/index. change is 0 for receive
// addresses and 1 for change addresses.
func XPPath(change, index uint32) Path {
	return Path{hardened(44), hardened(CoinTypeAVAX), hardened(0), change, index}
}

// DeriveKey walks path from the seed's master key.
func DeriveKey(seed []byte, path Path) (*ecdsa.PrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, cwerr.Wrap(err, "creating master key")
	}
	for _, child := range path {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, cwerr.Wrap(err, "deriving %s", path)
		}
	}
	raw := common.LeftPadBytes(key.Key, 32)
	priv, err := crypto.ToECDSA(raw)
	ZeroBytes(raw)
	ZeroBytes(key.Key)
	if err != nil {
		return nil, cwerr.Wrap(err, "decoding key at %s", path)
	}
	return priv, nil
}
