// Package eip712 builds and hashes the EIP-712 typed data of an EIP-3009
// TransferWithAuthorization.
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vitwit/x402pay/types"
)

// PrimaryType is the EIP-712 primary type signed for every x402 "exact" EVM payment.
const PrimaryType = "TransferWithAuthorization"

const (
	domainType       = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	transferAuthType = "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
)

var (
	domainTypeHash       = crypto.Keccak256Hash([]byte(domainType))
	transferAuthTypeHash = crypto.Keccak256Hash([]byte(transferAuthType))
)

// Types returns the type set handed to the signing capability. A fresh map is
// returned on every call since apitypes.Types is mutable.
func Types() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		PrimaryType: {
			{Name: "from", Type: "address"},
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
			{Name: "nonce", Type: "bytes32"},
		},
	}
}

// TypedData renders an authorization as EIP-712 typed data.
func TypedData(auth *types.Authorization) apitypes.TypedData {
	d, m := auth.Domain, auth.Message
	return apitypes.TypedData{
		Types:       Types(),
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(d.ChainID)),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        m.From.Hex(),
			"to":          m.To.Hex(),
			"value":       m.Value.String(),
			"validAfter":  m.ValidAfter.String(),
			"validBefore": m.ValidBefore.String(),
			"nonce":       hexutil.Encode(m.Nonce[:]),
		},
	}
}

// Digest returns keccak256("\x19\x01" || domainSeparator || hashStruct(message)) of typed data.
func Digest(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	return hash, err
}

// DomainSeparator computes the domain separator directly, without the generic encoder.
func DomainSeparator(d types.AuthorizationDomain) common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		common.LeftPadBytes(d.ChainID.Bytes(), 32),
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	)
}

// HashTransferWithAuthorization computes keccak256(abi.encode(typehash, from, to, value,
// validAfter, validBefore, nonce)).
func HashTransferWithAuthorization(m types.AuthorizationMessage) common.Hash {
	return crypto.Keccak256Hash(
		transferAuthTypeHash.Bytes(),
		common.LeftPadBytes(m.From.Bytes(), 32),
		common.LeftPadBytes(m.To.Bytes(), 32),
		common.LeftPadBytes(m.Value.Bytes(), 32),
		common.LeftPadBytes(m.ValidAfter.Bytes(), 32),
		common.LeftPadBytes(m.ValidBefore.Bytes(), 32),
		m.Nonce[:],
	)
}

// AuthorizationDigest is the final digest of an authorization computed field by field.
// It must agree with Digest(TypedData(auth)).
func AuthorizationDigest(auth *types.Authorization) common.Hash {
	domainSep := DomainSeparator(auth.Domain)
	structHash := HashTransferWithAuthorization(auth.Message)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSep.Bytes(), structHash.Bytes())
}
