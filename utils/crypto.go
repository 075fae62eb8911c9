package utils

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402pay/types"
)

// VerifyEIP712Signature verifies an EIP-712 signature
func VerifyEIP712Signature(typedData apitypes.TypedData, signature string, expectedSigner common.Address) (bool, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return false, fmt.Errorf("failed to hash typed data: %w", err)
	}

	recovered, err := RecoverAddressFromSignature(hash, signature)
	if err != nil {
		return false, err
	}

	return recovered == expectedSigner, nil
}

// RecoverAddressFromSignature recovers the Ethereum address from a signature
func RecoverAddressFromSignature(hash []byte, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}

	// Ensure signature is the correct length
	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sigBytes))
	}

	// Adjust recovery ID for Ethereum
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	pubKey, err := crypto.SigToPub(hash, sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// PrivateKeyFromHex imports a 32-byte secp256k1 private key from hex, with or without 0x.
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if len(hexKey) != 64 || !isHexString(hexKey) {
		return nil, fmt.Errorf("private key must be 32 bytes of hex")
	}

	return crypto.HexToECDSA(hexKey)
}

// AddressFromPrivateKey derives the Ethereum address from a private key
func AddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// SignHash signs a 32-byte digest and returns the 65-byte r||s||v signature with v in {27, 28}.
func SignHash(hash []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	return NormalizeSignature(signature)
}

// NormalizeSignature returns a copy of a 65-byte signature with v moved to 27/28.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	out := make([]byte, 65)
	copy(out, sig)
	if out[64] < 27 {
		out[64] += 27
	}
	return out, nil
}

// ParseAddress parses a hex address, naming the offending field on failure.
func ParseAddress(field, address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, &types.X402Error{
			Code:    types.ErrInvalidAddress,
			Message: fmt.Sprintf("%s is not a valid address: %q", field, address),
		}
	}
	return common.HexToAddress(address), nil
}

// RandomNonce returns 32 bytes from the operating system CSPRNG.
func RandomNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// ParseNonce parses a 0x-prefixed 32-byte hex nonce (66 characters).
func ParseNonce(nonce string) ([32]byte, error) {
	var out [32]byte
	if len(nonce) != 66 || !strings.HasPrefix(nonce, "0x") || !isHexString(nonce[2:]) {
		return out, &types.X402Error{
			Code:    types.ErrInvalidNonce,
			Message: fmt.Sprintf("nonce must be 0x followed by 64 hex characters, got %q", nonce),
		}
	}
	b, err := hexutil.Decode(nonce)
	if err != nil {
		return out, &types.X402Error{Code: types.ErrInvalidNonce, Message: "invalid nonce", Cause: err}
	}
	copy(out[:], b)
	return out, nil
}
