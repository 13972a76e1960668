package avax

import (
	"github.com/ava-labs/avalanchego/utils/constants"
)

// Network ids.
const (
	NetworkIDMainnet = constants.MainnetID
	NetworkIDFuji    = constants.FujiID
)

// Params identifies the X and P chains of one Avalanche network.
type Params struct {
	HRP           string
	NetworkID     uint32
	AVAXAssetID   ID
	XBlockchainID ID
	PBlockchainID ID
}

// BlockchainID returns the chain id for an alias.
func (p Params) BlockchainID(alias string) (ID, bool) {
	switch alias {
	case AliasX:
		return p.XBlockchainID, true
	case AliasP:
		return p.PBlockchainID, true
	default:
		return ID{}, false
	}
}

// MainnetParams returns the Avalanche mainnet ids.
func MainnetParams() Params {
	return Params{
		HRP:           HRPMainnet,
		NetworkID:     NetworkIDMainnet,
		AVAXAssetID:   MustParseID("FvwEAhmxKfeiG8SnEvq42hc6whRyY3EFYAvebMqDNDGCgxN5Z"),
		XBlockchainID: MustParseID("2oYMBNV4eNHyqk2fjjV5nVQLDbtmNJzq5s3qs3Lo6ftnC6FByM"),
		PBlockchainID: constants.PlatformChainID,
	}
}

// FujiParams returns the Fuji testnet ids.
func FujiParams() Params {
	return Params{
		HRP:           HRPFuji,
		NetworkID:     NetworkIDFuji,
		AVAXAssetID:   MustParseID("U8iRqJoiJm8xZHAacmvYyZVwqQx6uDNtQeP3CQ6fcgQk3JqnK"),
		XBlockchainID: MustParseID("2JVSBoinj9C2J33VntvzYtVJNZdN2NKiwwKjcumHUWEb5DbBrm"),
		PBlockchainID: constants.PlatformChainID,
	}
}

// ParamsForHRP picks mainnet or Fuji params by hrp.
func ParamsForHRP(hrp string) (Params, bool) {
	switch hrp {
	case HRPMainnet:
		return MainnetParams(), true
	case HRPFuji:
		return FujiParams(), true
	default:
		return Params{}, false
	}
}
