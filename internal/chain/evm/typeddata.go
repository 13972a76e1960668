package evm

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// TypedDataHash parses EIP-712 typed data (eth_signTypedData_v3/v4) and
// returns the digest to sign.
func TypedDataHash(raw []byte) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, typedDataError("malformed typed data: %v", err)
	}
	if td.PrimaryType == "" {
		return nil, typedDataError("primaryType is required")
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, typedDataError("hashing typed data: %v", err)
	}
	return hash, nil
}

// LegacyTypedField is one entry of the original eth_signTypedData format.
type LegacyTypedField struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// LegacyTypedDataHash hashes the original eth_signTypedData array:
// keccak(keccak(packed "type name" schema) || keccak(packed values)).
func LegacyTypedDataHash(raw []byte) ([]byte, error) {
	var fields []LegacyTypedField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, typedDataError("malformed legacy typed data: %v", err)
	}
	if len(fields) == 0 {
		return nil, typedDataError("legacy typed data is empty")
	}

	var schema, values []byte
	for _, f := range fields {
		if f.Name == "" || f.Type == "" {
			return nil, typedDataError("every field needs a type and a name")
		}
		schema = append(schema, f.Type+" "+f.Name...)
		packed, err := packLegacyValue(f.Type, f.Value)
		if err != nil {
			return nil, typedDataError("field %s: %v", f.Name, err)
		}
		values = append(values, packed...)
	}
	return crypto.Keccak256(crypto.Keccak256(schema), crypto.Keccak256(values)), nil
}

// packLegacyValue applies solidity tight packing to one value.
func packLegacyValue(typ string, raw json.RawMessage) ([]byte, error) {
	switch {
	case typ == "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	case typ == "bytes":
		return legacyBytes(raw)
	case typ == "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case typ == "address":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if !common.IsHexAddress(s) {
			return nil, cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{"address": s})
		}
		return common.HexToAddress(s).Bytes(), nil
	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		return packLegacyInt(typ, raw)
	case strings.HasPrefix(typ, "bytes"):
		size, err := strconv.Atoi(strings.TrimPrefix(typ, "bytes"))
		if err != nil || size < 1 || size > 32 {
			return nil, typedDataError("unsupported type %s", typ)
		}
		b, err := legacyBytes(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > size {
			return nil, typedDataError("value longer than %s", typ)
		}
		return common.RightPadBytes(b, size), nil
	default:
		return nil, typedDataError("unsupported type %s", typ)
	}
}

func packLegacyInt(typ string, raw json.RawMessage) ([]byte, error) {
	signed := strings.HasPrefix(typ, "int")
	bits := 256
	if suffix := strings.TrimLeft(typ, "uint"); suffix != "" {
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 8 || n > 256 || n%8 != 0 {
			return nil, typedDataError("unsupported type %s", typ)
		}
		bits = n
	}

	v, err := legacyNumber(raw)
	if err != nil {
		return nil, err
	}
	if !signed && v.Sign() < 0 {
		return nil, typedDataError("negative value for %s", typ)
	}
	if v.BitLen() > bits {
		return nil, typedDataError("value overflows %s", typ)
	}
	if signed {
		v = math.U256(new(big.Int).Set(v))
	}
	return math.PaddedBigBytes(v, 32)[32-bits/8:], nil
}

// legacyNumber accepts a JSON number, a decimal string or a 0x-hex string.
func legacyNumber(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err = json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		s = n.String()
	}
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, typedDataError("invalid number %q", s)
	}
	return v, nil
}

func legacyBytes(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if strings.HasPrefix(s, "0x") {
		return hexutil.Decode(s)
	}
	return []byte(s), nil
}

func typedDataError(format string, args ...any) error {
	return cwerr.Wrap(cwerr.ErrInvalidInput, format, args...)
}
