package avax

import (
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/constants"
	"github.com/ava-labs/avalanchego/utils/formatting/address"
	"github.com/ava-labs/avalanchego/utils/hashing"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Chain aliases that prefix X/P addresses.
const (
	AliasX = "X"
	AliasP = "P"
)

// Known human readable parts.
const (
	HRPMainnet = constants.MainnetHRP
	HRPFuji    = constants.FujiHRP
	HRPLocal   = constants.LocalHRP
)

// FormatAddress renders "<alias>-<bech32(hrp, id)>", or the bare bech32
// form when alias is empty.
func FormatAddress(alias, hrp string, id ShortID) (string, error) {
	if alias == "" {
		addr, err := address.FormatBech32(hrp, id[:])
		if err != nil {
			return "", cwerr.Wrap(cwerr.ErrInvalidAddress, "encoding bech32: %v", err)
		}
		return addr, nil
	}
	addr, err := address.Format(alias, hrp, id[:])
	if err != nil {
		return "", cwerr.Wrap(cwerr.ErrInvalidAddress, "formatting %s address: %v", alias, err)
	}
	return addr, nil
}

// ParseAddress splits an X/P address into chain alias, hrp and hash.
// The alias is empty when the address carries no "X-"/"P-" prefix.
func ParseAddress(addr string) (alias, hrp string, id ShortID, err error) {
	body := addr
	if a, rest, ok := strings.Cut(addr, "-"); ok {
		alias, body = a, rest
	}

	hrp, raw, decErr := address.ParseBech32(body)
	if decErr != nil {
		return "", "", id, cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
			"address": addr,
			"reason":  decErr.Error(),
		})
	}
	id, convErr := ids.ToShortID(raw)
	if convErr != nil {
		return "", "", id, cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
			"address": addr,
			"reason":  "payload is not 20 bytes",
		})
	}
	return alias, hrp, id, nil
}

// ValidateAddress checks that addr is a well formed address for the given
// chain alias and hrp. A bare bech32 address without alias is accepted.
func ValidateAddress(addr, alias, hrp string) error {
	if addr == "" {
		return cwerr.ErrInvalidAddress
	}
	gotAlias, gotHRP, _, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	if gotAlias != "" && gotAlias != alias {
		return cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
			"address":  addr,
			"expected": alias,
			"got":      gotAlias,
		})
	}
	if hrp != "" && gotHRP != hrp {
		return cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
			"address":  addr,
			"expected": hrp,
			"got":      gotHRP,
		})
	}
	return nil
}

// IsValidAddress is the boolean form of ValidateAddress.
func IsValidAddress(addr, alias, hrp string) bool {
	return ValidateAddress(addr, alias, hrp) == nil
}

// ShortIDFromPublicKey hashes a compressed secp256k1 public key
// (ripemd160 of sha256).
func ShortIDFromPublicKey(compressed []byte) ShortID {
	return ShortID(hashing.ComputeHash160Array(hashing.ComputeHash256(compressed)))
}

// StripAlias removes a leading "X-" or "P-".
func StripAlias(addr string) string {
	if _, rest, ok := strings.Cut(addr, "-"); ok {
		return rest
	}
	return addr
}
