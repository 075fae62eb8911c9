package utils

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
	"github.com/vitwit/x402pay/types"
)

var atomicAmountPattern = regexp.MustCompile(`^[0-9]+$`)

// ParseAtomicAmount parses a decimal string of atomic token units as a uint256.
// Signs, decimals points, whitespace and values above 2^256-1 are rejected.
func ParseAtomicAmount(amount string) (*big.Int, error) {
	if !atomicAmountPattern.MatchString(amount) {
		return nil, &types.X402Error{
			Code:    types.ErrMalformedAmount,
			Message: fmt.Sprintf("malformed amount %q: expected unsigned integer in atomic units", amount),
		}
	}

	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Cmp(math.MaxBig256) > 0 {
		return nil, &types.X402Error{
			Code:    types.ErrMalformedAmount,
			Message: fmt.Sprintf("malformed amount %q: out of uint256 range", amount),
		}
	}
	return value, nil
}

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// FormatAmountFromBigInt formats a big.Int amount to decimal string with specified decimals
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatAtomicAmount renders an atomic amount string in whole token units, e.g. "1000000" with
// 6 decimals as "1". Malformed input is returned unchanged.
func FormatAtomicAmount(amount string, decimals int) string {
	value, err := ParseAtomicAmount(amount)
	if err != nil {
		return amount
	}
	return FormatAmountFromBigInt(value, decimals)
}

// FormatUSD renders a balance the way approval prompts show it, e.g. "$0.00".
func FormatUSD(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Neg().StringFixed(2)
	}
	return "$" + amount.StringFixed(2)
}

// Helper function to check if a string is valid hexadecimal
func isHexString(s string) bool {
	match, _ := regexp.MatchString("^[0-9a-fA-F]+$", s)
	return match
}
