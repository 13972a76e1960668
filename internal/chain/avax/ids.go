// Package avax implements the X and P ledger primitives on top of the
// avalanchego libraries: ids, bech32 addresses, UTXOs, transfer building
// and the ledgers' wire codecs.
package avax

import (
	"github.com/ava-labs/avalanchego/ids"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// ID identifies a transaction, asset or blockchain.
type ID = ids.ID

// ShortID is the 20-byte hash behind an X/P address.
type ShortID = ids.ShortID

// EmptyID is the all-zero id (the P-chain blockchain id).
var EmptyID = ids.Empty

// ParseID decodes a cb58 id.
func ParseID(s string) (ID, error) {
	id, err := ids.FromString(s)
	if err != nil {
		return ID{}, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{
			"id":     s,
			"reason": err.Error(),
		})
	}
	return id, nil
}

// MustParseID is ParseID for package-level constants.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}
