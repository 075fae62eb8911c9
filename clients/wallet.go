package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402pay/utils"
)

var (
	_ TypedDataSigner = (*PrivateKeyWallet)(nil)
	_ WalletConfig    = (*PrivateKeyWallet)(nil)
)

// PrivateKeyWallet signs with an imported 32-byte secp256k1 private key held in memory.
type PrivateKeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeyWallet imports a hex encoded private key, with or without 0x.
func NewPrivateKeyWallet(hexKey string) (*PrivateKeyWallet, error) {
	key, err := utils.PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to import private key: %w", err)
	}

	return &PrivateKeyWallet{
		key:     key,
		address: utils.AddressFromPrivateKey(key),
	}, nil
}

// Address returns the checksummed wallet address.
func (w *PrivateKeyWallet) Address() common.Address {
	return w.address
}

// WalletAddress implements WalletConfig.
func (w *PrivateKeyWallet) WalletAddress() (string, bool) {
	return w.address.Hex(), true
}

// SignTypedData implements TypedDataSigner.
func (w *PrivateKeyWallet) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	return utils.SignHash(hash, w.key)
}
