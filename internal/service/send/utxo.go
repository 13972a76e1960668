package send

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// UTXOConfig holds dependencies for the X and P send services.
type UTXOConfig struct {
	// BaseFee is the fee per gas unit in nAVAX. Zero selects avax.DefaultBaseTxFee.
	BaseFee uint64
	UTXOs   UTXOSource
	Builder TxBuilder
	Logger  LogWriter
	Now     func() time.Time
}

// utxoService is shared by the X and P services; they differ in chain
// alias and in how a missing address is reported.
type utxoService struct {
	ledger chain.LedgerType
	alias  string
	// addressRequired reports an empty address as ADDRESS_REQUIRED
	// instead of INVALID_ADDRESS.
	addressRequired bool

	baseFee uint64
	utxos   UTXOSource
	builder TxBuilder
	codec   avax.Codec
	logger  LogWriter
	now     func() time.Time
}

// AVMService validates and builds X-ledger sends.
type AVMService struct {
	utxoService
}

// PVMService validates and builds P-ledger sends.
type PVMService struct {
	utxoService
}

// NewAVMService creates the X-ledger send service.
func NewAVMService(cfg *UTXOConfig) *AVMService {
	return &AVMService{newUTXOService(chain.LedgerAVM, true, cfg)}
}

// NewPVMService creates the P-ledger send service.
func NewPVMService(cfg *UTXOConfig) *PVMService {
	return &PVMService{newUTXOService(chain.LedgerPVM, false, cfg)}
}

func newUTXOService(ledger chain.LedgerType, addressRequired bool, cfg *UTXOConfig) utxoService {
	if cfg == nil {
		cfg = &UTXOConfig{}
	}
	s := utxoService{
		ledger:          ledger,
		alias:           ledger.ChainAlias(),
		addressRequired: addressRequired,
		baseFee:         cfg.BaseFee,
		utxos:           cfg.UTXOs,
		builder:         cfg.Builder,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
	if s.baseFee == 0 {
		s.baseFee = avax.DefaultBaseTxFee
	}
	if s.builder == nil {
		s.builder = avax.NewBuilder()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Ledger returns the X or P ledger.
func (s *utxoService) Ledger() chain.LedgerType { return s.ledger }

func (s *utxoService) sealed() {}

// ValidateStateAndCalculateFees computes the fixed fee first so it is
// populated even when the address is missing or malformed.
func (s *utxoService) ValidateStateAndCalculateFees(_ context.Context, p ValidateParams) (*SendState, error) {
	st := resetDerived(p.State)
	if st.Token == nil {
		return st.fail(ReasonTokenRequired), nil
	}
	if p.Network == nil {
		return nil, errNetworkRequired
	}

	rate := st.DefaultMaxFeePerGas
	if rate == nil {
		rate = new(big.Int).SetUint64(s.baseFee)
	}
	st.DefaultMaxFeePerGas = rate
	st.GasLimit = avax.XPGasLimit
	st.SendFee = feeUnit(rate, avax.XPGasLimit, p.Network)
	st.MaxAmount = maxAmount(st.Token, st.SendFee)

	if st.Address == "" && s.addressRequired {
		return st.fail(ReasonAddressRequired), nil
	}
	if err := avax.ValidateAddress(st.Address, s.alias, p.Network.HRP); err != nil {
		return st.fail(ReasonInvalidAddress), nil
	}
	return checkAmounts(st, p.NativeTokenBalance), nil
}

// GetTransactionRequest fetches the account's UTXOs, builds and serializes
// the unsigned transfer, and reports which derived addresses must sign.
func (s *utxoService) GetTransactionRequest(ctx context.Context, p RequestParams) (LedgerSendRequest, error) {
	sender := p.Account.SenderFor(s.ledger)
	if sender == "" {
		return nil, missingSender(s.ledger)
	}
	if err := requireSubmittable(p.State, p.Network); err != nil {
		return nil, err
	}
	if s.utxos == nil {
		return nil, cwerr.WithDetails(cwerr.ErrInternal, map[string]string{"reason": "no UTXO source for " + s.alias})
	}

	params, ok := avax.ParamsForHRP(p.Network.HRP)
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"hrp": p.Network.HRP})
	}
	blockchainID, _ := params.BlockchainID(s.alias)

	owned, query, err := s.ownedAddresses(p.Account, sender)
	if err != nil {
		return nil, err
	}

	_, _, to, err := avax.ParseAddress(p.State.Address)
	if err != nil {
		return nil, err
	}
	amount, fee, err := utxoAmounts(p.State)
	if err != nil {
		return nil, err
	}

	utxos, err := s.utxos.GetUTXOs(ctx, query)
	if err != nil {
		return nil, cwerr.Wrap(err, "fetching %s UTXOs", s.alias)
	}
	s.debug("fetched %d %s UTXOs for %d addresses", len(utxos), s.alias, len(query))

	ownedIDs := make([]avax.ShortID, 0, len(owned))
	for id := range owned {
		ownedIDs = append(ownedIDs, id)
	}
	sort.Slice(ownedIDs, func(i, j int) bool { return ownedIDs[i].Compare(ownedIDs[j]) < 0 })

	tx, err := s.builder.BuildTransfer(avax.TransferParams{
		ChainAlias:    s.alias,
		NetworkID:     params.NetworkID,
		BlockchainID:  blockchainID,
		AssetID:       params.AVAXAssetID,
		To:            to,
		Amount:        amount,
		Fee:           fee,
		ChangeAddress: changeAddress(owned, sender),
		Owned:         ownedIDs,
		UTXOs:         utxos,
		Now:           uint64(s.now().Unix()), //nolint:gosec // unix time is positive
	})
	if err != nil {
		return nil, cwerr.Wrap(err, "building %s transfer", s.alias)
	}

	raw, err := s.codec.MarshalUnsignedTx(tx)
	if err != nil {
		return nil, err
	}

	req := &UTXOSendRequest{
		LedgerType: s.ledger,
		ChainAlias: s.alias,
		TxBytes:    raw,
		UTXOs:      tx.Consumed,
		AddressMaps: AddressMaps{
			External: map[string]uint32{},
			Internal: map[string]uint32{},
		},
	}
	for _, signer := range tx.Signers {
		xp := owned[signer]
		req.InputSigners = append(req.InputSigners, xp.Address)
		if xp.Internal {
			req.AddressMaps.Internal[xp.Address] = xp.Index
		} else {
			req.AddressMaps.External[xp.Address] = xp.Index
		}
	}
	req.ExternalIndices = sortedIndices(req.AddressMaps.External)
	req.InternalIndices = sortedIndices(req.AddressMaps.Internal)
	return req, nil
}

// ownedAddresses maps every derived address of the account (plus the
// sender) by hash and returns the alias-prefixed list to query.
func (s *utxoService) ownedAddresses(acct *Account, sender string) (map[avax.ShortID]XPAddress, []string, error) {
	owned := make(map[avax.ShortID]XPAddress, len(acct.XPAddresses)+1)
	var query []string

	add := func(xp XPAddress) error {
		_, _, id, err := avax.ParseAddress(xp.Address)
		if err != nil {
			return err
		}
		if _, dup := owned[id]; dup {
			return nil
		}
		owned[id] = xp
		query = append(query, s.alias+"-"+xp.Address)
		return nil
	}

	for _, xp := range acct.XPAddresses {
		xp.Address = avax.StripAlias(xp.Address)
		if err := add(xp); err != nil {
			return nil, nil, err
		}
	}
	if err := add(XPAddress{Address: avax.StripAlias(sender)}); err != nil {
		return nil, nil, err
	}
	return owned, query, nil
}

// changeAddress picks the lowest internal address, or the sender.
func changeAddress(owned map[avax.ShortID]XPAddress, sender string) avax.ShortID {
	var (
		best  avax.ShortID
		found bool
		index uint32
	)
	for id, xp := range owned {
		if !xp.Internal {
			continue
		}
		if !found || xp.Index < index {
			best, index, found = id, xp.Index, true
		}
	}
	if found {
		return best
	}
	_, _, id, _ := avax.ParseAddress(sender)
	return id
}

func utxoAmounts(st *SendState) (amount, fee uint64, err error) {
	a, f := st.Amount.Value(), st.SendFee.Value()
	if !a.IsUint64() || !f.IsUint64() {
		return 0, 0, cwerr.WithDetails(cwerr.ErrInvalidAmount, map[string]string{"reason": "exceeds uint64"})
	}
	return a.Uint64(), f.Uint64(), nil
}

func sortedIndices(m map[string]uint32) []uint32 {
	out := make([]uint32, 0, len(m))
	seen := make(map[uint32]bool, len(m))
	for _, idx := range m {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *utxoService) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
