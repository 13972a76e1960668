package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// TokenUnit is an immutable fixed-point amount held in the asset's smallest
// unit. Arithmetic never leaves integer space; decimals and symbol only
// matter when converting to a display string.
type TokenUnit struct {
	value    *big.Int
	decimals uint8
	symbol   string
}

// NewTokenUnit creates a TokenUnit from a smallest-unit value.
// A nil value is treated as zero. The value is copied.
func NewTokenUnit(value *big.Int, decimals uint8, symbol string) *TokenUnit {
	v := new(big.Int)
	if value != nil {
		v.Set(value)
	}
	return &TokenUnit{value: v, decimals: decimals, symbol: symbol}
}

// NewTokenUnitFromUint64 creates a TokenUnit from a uint64 smallest-unit value.
func NewTokenUnitFromUint64(value uint64, decimals uint8, symbol string) *TokenUnit {
	return &TokenUnit{value: new(big.Int).SetUint64(value), decimals: decimals, symbol: symbol}
}

// TokenUnitFromDisplay parses a human decimal string ("1.5") into smallest
// units. Digits beyond the asset's precision are truncated.
func TokenUnitFromDisplay(amount string, decimals uint8, symbol string) (*TokenUnit, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidAmount, map[string]string{"amount": amount})
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidAmount, map[string]string{"amount": amount})
	}

	scaled := d.Shift(int32(decimals)).Truncate(0)
	return &TokenUnit{value: scaled.BigInt(), decimals: decimals, symbol: symbol}, nil
}

// Value returns a copy of the smallest-unit value.
func (t *TokenUnit) Value() *big.Int {
	if t == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.value)
}

// Decimals returns the asset precision.
func (t *TokenUnit) Decimals() uint8 { return t.decimals }

// Symbol returns the asset symbol.
func (t *TokenUnit) Symbol() string { return t.symbol }

// IsZero returns true if the amount is zero.
func (t *TokenUnit) IsZero() bool {
	return t == nil || t.value.Sign() == 0
}

// IsPositive returns true if the amount is strictly greater than zero.
func (t *TokenUnit) IsPositive() bool {
	return t != nil && t.value.Sign() > 0
}

// Cmp compares two amounts by smallest-unit value.
func (t *TokenUnit) Cmp(other *TokenUnit) int {
	return t.Value().Cmp(other.Value())
}

// Lt returns true if t < other.
func (t *TokenUnit) Lt(other *TokenUnit) bool { return t.Cmp(other) < 0 }

// Gt returns true if t > other.
func (t *TokenUnit) Gt(other *TokenUnit) bool { return t.Cmp(other) > 0 }

// Add returns t + other.
func (t *TokenUnit) Add(other *TokenUnit) *TokenUnit {
	return t.derive(new(big.Int).Add(t.Value(), other.Value()))
}

// Sub returns t - other. The result may be negative.
func (t *TokenUnit) Sub(other *TokenUnit) *TokenUnit {
	return t.derive(new(big.Int).Sub(t.Value(), other.Value()))
}

// SubFloor returns max(0, t - other).
func (t *TokenUnit) SubFloor(other *TokenUnit) *TokenUnit {
	out := new(big.Int).Sub(t.Value(), other.Value())
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return t.derive(out)
}

// MulUint64 returns t * n.
func (t *TokenUnit) MulUint64(n uint64) *TokenUnit {
	return t.derive(new(big.Int).Mul(t.Value(), new(big.Int).SetUint64(n)))
}

// Display returns the amount in display units without trailing zeros.
func (t *TokenUnit) Display() string {
	if t == nil {
		return "0"
	}
	return decimal.NewFromBigInt(t.value, -int32(t.decimals)).String()
}

// String returns the display amount followed by the symbol.
func (t *TokenUnit) String() string {
	if t == nil || t.symbol == "" {
		return t.Display()
	}
	return t.Display() + " " + t.symbol
}

func (t *TokenUnit) derive(v *big.Int) *TokenUnit {
	if t == nil {
		return &TokenUnit{value: v}
	}
	return &TokenUnit{value: v, decimals: t.decimals, symbol: t.symbol}
}
