// Package clients declares the collaborators the payment engine depends on and
// ships minimal implementations of them.
package clients

import (
	"context"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
	x402types "github.com/vitwit/x402pay/types"
)

// TypedDataSigner is the wallet key-holder. It signs EIP-712 typed data and returns
// a 65-byte r||s||v signature. Key material never leaves the implementation.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)
}

// WalletConfig exposes the configured wallet address, if any.
type WalletConfig interface {
	WalletAddress() (string, bool)
}

// BalanceReader returns the last known prepaid balance snapshot. ok is false
// when the balance is unknown.
type BalanceReader interface {
	CachedBalance() (balance decimal.Decimal, ok bool)
}

// PrepaidBiller charges the prepaid credit ledger.
type PrepaidBiller interface {
	ChargePrepaid(ctx context.Context, amount string) (*x402types.Receipt, error)
}
