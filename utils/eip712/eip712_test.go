package eip712

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402pay/types"
)

func testAuthorization() *types.Authorization {
	var nonce [32]byte
	copy(nonce[:], crypto.Keccak256([]byte("test-nonce-12345")))

	return &types.Authorization{
		Domain: types.AuthorizationDomain{
			Name:              "USDC",
			Version:           "2",
			ChainID:           big.NewInt(84532),
			VerifyingContract: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
		},
		Message: types.AuthorizationMessage{
			From:        common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"),
			To:          common.HexToAddress("0x384Aa214be0B279cbf211e9b2C992d8633F77848"),
			Value:       big.NewInt(10000),
			ValidAfter:  big.NewInt(1763450282),
			ValidBefore: big.NewInt(1763451182),
			Nonce:       nonce,
		},
	}
}

func TestTypeHashes(t *testing.T) {
	// as published by the FiatToken contracts
	assert.Equal(t, "0x8b73c3c69bb8fe3d512ecc4cf759cc79239f7b179b0ffacaa9a75d522b39400f", domainTypeHash.Hex())
	assert.Equal(t, "0x7c7c6cdb67a18743f49ec6fa9b35f50d52ed05cbed4cc592e13b44501c1a2267", transferAuthTypeHash.Hex())
}

func TestTypedData(t *testing.T) {
	auth := testAuthorization()
	td := TypedData(auth)

	assert.Equal(t, PrimaryType, td.PrimaryType)
	assert.Equal(t, "USDC", td.Domain.Name)
	assert.Equal(t, "84532", (*big.Int)(td.Domain.ChainId).String())
	assert.Equal(t, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", td.Domain.VerifyingContract)
	assert.Equal(t, "10000", td.Message["value"])
	assert.Equal(t, "1763450282", td.Message["validAfter"])
	assert.Len(t, td.Message["nonce"], 66)

	// the typed data must not alias the authorization
	auth.Domain.ChainID.SetInt64(1)
	assert.Equal(t, "84532", (*big.Int)(td.Domain.ChainId).String())
}

func TestAuthorizationDigestMatchesTypedDataDigest(t *testing.T) {
	auth := testAuthorization()

	td := TypedData(auth)
	want, err := Digest(td)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(want), AuthorizationDigest(auth))

	domainSep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(domainSep), DomainSeparator(auth.Domain))
}

func TestAuthorizationDigestChangesWithEveryField(t *testing.T) {
	base := AuthorizationDigest(testAuthorization())

	mutations := map[string]func(a *types.Authorization){
		"name":    func(a *types.Authorization) { a.Domain.Name = "USD Coin" },
		"version": func(a *types.Authorization) { a.Domain.Version = "1" },
		"chainId": func(a *types.Authorization) { a.Domain.ChainID = big.NewInt(8453) },
		"contract": func(a *types.Authorization) {
			a.Domain.VerifyingContract = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
		},
		"to": func(a *types.Authorization) {
			a.Message.To = common.HexToAddress("0x1111111111111111111111111111111111111111")
		},
		"value":  func(a *types.Authorization) { a.Message.Value = big.NewInt(10001) },
		"before": func(a *types.Authorization) { a.Message.ValidBefore = big.NewInt(1763451183) },
		"nonce":  func(a *types.Authorization) { a.Message.Nonce[0] ^= 0xff },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			auth := testAuthorization()
			mutate(auth)

			got := AuthorizationDigest(auth)
			assert.NotEqual(t, base, got)

			want, err := Digest(TypedData(auth))
			require.NoError(t, err)
			assert.Equal(t, common.BytesToHash(want), got)
		})
	}
}
