package utils

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402pay/types"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := PrivateKeyFromHex(testKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, AddressFromPrivateKey(key).Hex())

	key, err = PrivateKeyFromHex(strings.TrimPrefix(testKey, "0x"))
	require.NoError(t, err)
	assert.Equal(t, testAddress, AddressFromPrivateKey(key).Hex())

	for _, bad := range []string{"", "0x1234", testKey + "00", "0x" + strings.Repeat("zz", 32)} {
		_, err := PrivateKeyFromHex(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignHashRecovers(t *testing.T) {
	key, err := PrivateKeyFromHex(testKey)
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("x402"))
	sig, err := SignHash(hash, key)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := RecoverAddressFromSignature(hash, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, testAddress, recovered.Hex())
}

func TestNormalizeSignature(t *testing.T) {
	sig := make([]byte, 65)
	sig[64] = 1

	out, err := NormalizeSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, byte(28), out[64])
	assert.Equal(t, byte(1), sig[64], "input must not be modified")

	sig[64] = 27
	out, err = NormalizeSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, byte(27), out[64])

	_, err = NormalizeSignature(make([]byte, 64))
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("payTo", strings.ToLower(testAddress))
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr.Hex())

	_, err = ParseAddress("payTo", "0xCAFE")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidAddress, types.CodeOf(err))
	assert.Contains(t, err.Error(), "payTo")
}

func TestRandomNonce(t *testing.T) {
	a, err := RandomNonce()
	require.NoError(t, err)
	b, err := RandomNonce()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseNonce(t *testing.T) {
	in := "0x" + strings.Repeat("0a", 32)
	n, err := ParseNonce(in)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0a), n[0])
	assert.Equal(t, byte(0x0a), n[31])

	for _, bad := range []string{"", "0x1234", strings.Repeat("0a", 33), "0x" + strings.Repeat("zz", 32), "0x" + strings.Repeat("0a", 33)} {
		_, err := ParseNonce(bad)
		require.Error(t, err, bad)
		assert.Equal(t, types.ErrInvalidNonce, types.CodeOf(err))
	}
}
