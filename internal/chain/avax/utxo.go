package avax

import (
	"sort"
)

// UTXO is a secp256k1 transfer output owned by one or more addresses.
type UTXO struct {
	TxID        ID
	OutputIndex uint32
	AssetID     ID
	Amount      uint64
	Locktime    uint64
	Threshold   uint32
	Addresses   []ShortID
}

// less orders UTXOs the way the ledger orders transaction inputs.
func (u UTXO) less(other UTXO) bool {
	if c := u.TxID.Compare(other.TxID); c != 0 {
		return c < 0
	}
	return u.OutputIndex < other.OutputIndex
}

// Owner returns the index of the first owner found in owned, or -1.
func (u UTXO) Owner(owned map[ShortID]bool) int {
	for i, a := range u.Addresses {
		if owned[a] {
			return i
		}
	}
	return -1
}

// Spendable reports whether a single key can spend the output now.
func (u UTXO) Spendable(now uint64) bool {
	return u.Threshold <= 1 && u.Locktime <= now
}

// SumUTXOs totals the amounts of UTXOs for one asset.
func SumUTXOs(utxos []UTXO, assetID ID) uint64 {
	var total uint64
	for _, u := range utxos {
		if u.AssetID == assetID {
			total += u.Amount
		}
	}
	return total
}

// sortLargestFirst sorts a copy of utxos by descending amount,
// breaking ties by input order so selection is deterministic.
func sortLargestFirst(utxos []UTXO) []UTXO {
	sorted := make([]UTXO, len(utxos))
	copy(sorted, utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Amount != sorted[j].Amount {
			return sorted[i].Amount > sorted[j].Amount
		}
		return sorted[i].less(sorted[j])
	})
	return sorted
}
