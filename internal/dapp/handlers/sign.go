package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/corewallet/internal/chain/evm"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// signPayload is the decision data of a message signature.
type signPayload struct {
	Kind    dapp.MessageKind `json:"kind"`
	Address string           `json:"address"`
	Data    hexutil.Bytes    `json:"data"`
}

// SignMessage signs personal messages and typed data with the active
// account's C-chain key.
type SignMessage struct{}

// Methods implements dapp.Handler.
func (SignMessage) Methods() []string {
	return []string{
		string(dapp.MessagePersonal),
		string(dapp.MessageEthSign),
		string(dapp.MessageTypedDataV1),
		string(dapp.MessageTypedDataV3),
		string(dapp.MessageTypedDataV4),
	}
}

// Handle checks the address and message shape and prompts.
func (SignMessage) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	p, err := parseSignParams(dapp.MessageKind(req.Method), req.Params)
	if err != nil {
		return dapp.Response{}, err
	}
	acct, err := activeAccount(ctx, c)
	if err != nil {
		return dapp.Response{}, err
	}
	if err = checkSigner(acct, p.Address); err != nil {
		return dapp.Response{}, err
	}
	if err = checkMessage(p.Kind, p.Data); err != nil {
		return dapp.Response{}, dapp.InvalidParams("%v", err)
	}

	return dapp.Pending(req, "Sign message", messageSummary(p), p)
}

// Approve re-checks the payload and asks the signer.
func (SignMessage) Approve(ctx context.Context, a dapp.ApproveRequest, c *dapp.Context) (json.RawMessage, error) {
	var p signPayload
	if err := dapp.DecodePayload(a.Payload, &p); err != nil {
		return nil, err
	}
	if !knownMessageKind(p.Kind) || len(p.Data) == 0 || !evm.IsValidAddress(p.Address) {
		return nil, dapp.Internal("invalid sign payload")
	}
	if a.Request == nil || p.Kind != dapp.MessageKind(a.Request.Method) {
		return nil, dapp.Internal("sign payload kind %q does not match the request", p.Kind)
	}
	if err := checkMessage(p.Kind, p.Data); err != nil {
		return nil, dapp.Internal("invalid sign payload: %v", err)
	}
	acct, err := activeAccount(ctx, c)
	if err != nil {
		return nil, err
	}
	if err = checkSigner(acct, p.Address); err != nil {
		return nil, err
	}
	if c.Signer == nil {
		return nil, dapp.Internal("no signer")
	}

	sig, err := c.Signer.SignMessage(ctx, p.Kind, p.Address, p.Data)
	if err != nil {
		return nil, signerError(err)
	}
	return json.Marshal(hexutil.Encode(sig))
}

// parseSignParams maps each method's positional params to a payload.
func parseSignParams(kind dapp.MessageKind, raw json.RawMessage) (signPayload, error) {
	list, err := paramList(raw, 2)
	if err != nil {
		return signPayload{}, err
	}
	p := signPayload{Kind: kind}

	switch kind {
	case dapp.MessagePersonal:
		msg, msgErr := paramString(list[0], "message")
		if msgErr != nil {
			return p, msgErr
		}
		addr, addrErr := paramString(list[1], "address")
		if addrErr != nil {
			return p, addrErr
		}
		// Some dapps send [address, message].
		if evm.IsValidAddress(msg) && !evm.IsValidAddress(addr) {
			msg, addr = addr, msg
		}
		p.Address, p.Data = addr, messageBytes(msg)
	case dapp.MessageEthSign:
		addr, addrErr := paramString(list[0], "address")
		if addrErr != nil {
			return p, addrErr
		}
		data, dataErr := paramString(list[1], "data")
		if dataErr != nil {
			return p, dataErr
		}
		b, decErr := hexutil.Decode(data)
		if decErr != nil {
			return p, dapp.InvalidParams("data must be 0x-prefixed hex")
		}
		p.Address, p.Data = addr, b
	case dapp.MessageTypedDataV1:
		addr, addrErr := paramString(list[1], "address")
		if addrErr != nil {
			return p, addrErr
		}
		p.Address, p.Data = addr, typedDataJSON(list[0])
	case dapp.MessageTypedDataV3, dapp.MessageTypedDataV4:
		addr, addrErr := paramString(list[0], "address")
		if addrErr != nil {
			return p, addrErr
		}
		p.Address, p.Data = addr, typedDataJSON(list[1])
	default:
		return p, dapp.InvalidParams("unknown signing method %s", kind)
	}
	return p, nil
}

// messageBytes decodes 0x-hex messages and keeps anything else as text.
func messageBytes(msg string) []byte {
	if strings.HasPrefix(msg, "0x") {
		if b, err := hexutil.Decode(msg); err == nil {
			return b
		}
	}
	return []byte(msg)
}

// typedDataJSON accepts typed data as an object or as a JSON string.
func typedDataJSON(raw json.RawMessage) []byte {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return []byte(s)
	}
	return raw
}

func checkMessage(kind dapp.MessageKind, data []byte) error {
	if len(data) == 0 {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "empty message"})
	}
	switch kind {
	case dapp.MessageTypedDataV1:
		_, err := evm.LegacyTypedDataHash(data)
		return err
	case dapp.MessageTypedDataV3, dapp.MessageTypedDataV4:
		_, err := evm.TypedDataHash(data)
		return err
	case dapp.MessagePersonal, dapp.MessageEthSign:
		return nil
	default:
		return nil
	}
}

func checkSigner(acct *send.Account, address string) error {
	if !evm.SameAddress(acct.AddressC, address) {
		return dapp.InvalidParams("address %s is not the active account", address)
	}
	return nil
}

func knownMessageKind(k dapp.MessageKind) bool {
	switch k {
	case dapp.MessagePersonal, dapp.MessageEthSign, dapp.MessageTypedDataV1,
		dapp.MessageTypedDataV3, dapp.MessageTypedDataV4:
		return true
	default:
		return false
	}
}

func messageSummary(p signPayload) string {
	if p.Kind == dapp.MessagePersonal && utf8.Valid(p.Data) {
		return string(p.Data)
	}
	return string(p.Kind) + " as " + p.Address
}

// signerError keeps a rejection from a remote or hardware signer visible
// and hides everything else behind an internal error.
func signerError(err error) error {
	if cwerr.Is(err, cwerr.ErrUserRejected) {
		return dapp.Rejected()
	}
	return dapp.Internal("signing: %v", err)
}
