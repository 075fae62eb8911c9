package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402pay/rails"
	"github.com/vitwit/x402pay/signing"
	"github.com/vitwit/x402pay/types"
)

const (
	testKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	usdcBase = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	payTo    = "0xCAFE00000000000000000000000000000000CAFE"
)

var v1Body = `{"x402Version":1,"accepts":[{"scheme":"exact","network":"base","maxAmountRequired":"1000000",` +
	`"asset":"` + usdcBase + `","payTo":"` + payTo + `","resource":"https://x","description":"d","maxTimeoutSeconds":60}]}`

// run executes the CLI with an env file built from env and returns stdout.
func run(t *testing.T, env string, stdin string, args ...string) (string, error) {
	t.Helper()

	for _, k := range []string{
		"X402PAY_PREFERRED_RAIL",
		"X402PAY_FALLBACK_ENABLED",
		"X402PAY_LOG_LEVEL",
		"X402PAY_ENABLE_METRICS",
		"X402PAY_WALLET_PRIVATE_KEY",
		"X402PAY_PREPAID_BALANCE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(env), 0o600))

	var stdout, stderr bytes.Buffer
	root := RootCommand()
	root.SetArgs(append([]string{"--config", envFile}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", v1Body, "parse")
	require.NoError(t, err)

	var req types.PaymentRequirements
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, types.X402Version1, req.X402Version)
	require.Len(t, req.X402Options(), 1)
	assert.Equal(t, "1000000", req.X402Options()[0].Amount)
}

func TestParseCommand_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "402.json")
	require.NoError(t, os.WriteFile(path, []byte(v1Body), 0o600))

	out, err := run(t, "", "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"network": "base"`)
}

func TestParseCommand_Invalid(t *testing.T) {
	_, err := run(t, "", `{"x402Version":7}`, "parse", "-")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnsupportedVersion, types.CodeOf(err))
}

func TestChainCommand(t *testing.T) {
	out, err := run(t, "", "", "chain", "eip155:84532")
	require.NoError(t, err)

	var info chainInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "84532", info.ChainID)
	assert.Equal(t, "Base Sepolia", info.DisplayName)
	assert.True(t, info.Testnet)

	_, err = run(t, "", "", "chain", "solana")
	assert.Equal(t, types.ErrUnsupportedNetwork, types.CodeOf(err))
}

func TestRailsCommand(t *testing.T) {
	body := `{"x402Version":2,"accepts":[{"type":"prepaid","amount":"0.01"},` +
		`{"scheme":"exact","network":"base","amount":"10000","asset":"` + usdcBase + `","payTo":"` + payTo + `","maxTimeoutSeconds":60}]}`
	env := "X402PAY_WALLET_PRIVATE_KEY=" + testKey + "\nX402PAY_PREPAID_BALANCE=0\n"

	out, err := run(t, env, body, "rails")
	require.NoError(t, err)

	var d rails.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, rails.RailCrypto, d.SelectedRail)
	prepaid, _ := d.Rail(rails.RailPrepaid)
	assert.Equal(t, "$0.00", prepaid.BalanceDisplay)

	out, err = run(t, env, body, "rails", "--no-fallback")
	require.NoError(t, err)
	d = rails.Decision{}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, rails.RailID(""), d.SelectedRail)

	_, err = run(t, env, body, "rails", "--prefer", "card")
	assert.Error(t, err)
}

func TestSignCommand(t *testing.T) {
	env := "X402PAY_WALLET_PRIVATE_KEY=0x" + testKey + "\n"

	out, err := run(t, env, v1Body, "sign")
	require.NoError(t, err)

	name, value, ok := strings.Cut(strings.TrimSpace(out), ": ")
	require.True(t, ok)
	assert.Equal(t, "X-PAYMENT", name)

	var payload types.PaymentPayloadV1
	require.NoError(t, signing.DecodeHeaderValue(value, &payload))
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", payload.Payload.Authorization.From)
	assert.Equal(t, "1000000", payload.Payload.Authorization.Value)
}

func TestDecodeCommand(t *testing.T) {
	env := "X402PAY_WALLET_PRIVATE_KEY=" + testKey + "\n"
	line, err := run(t, env, v1Body, "sign")
	require.NoError(t, err)

	_, value, ok := strings.Cut(strings.TrimSpace(line), ": ")
	require.True(t, ok)

	for name, args := range map[string][]string{
		"argument": {"decode", value},
		"stdin":    {"decode"},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := run(t, "", line, args...)
			require.NoError(t, err)

			var payload types.PaymentPayloadV1
			require.NoError(t, json.Unmarshal([]byte(out), &payload))
			assert.Equal(t, 1, payload.X402Version)
			assert.Equal(t, "base", payload.Network)
			assert.Equal(t, "1000000", payload.Payload.Authorization.Value)
		})
	}

	_, err = run(t, "", "", "decode", "not base64!")
	assert.Error(t, err)
}

func TestSignCommand_JSON(t *testing.T) {
	env := "X402PAY_WALLET_PRIVATE_KEY=" + testKey + "\n"

	out, err := run(t, env, v1Body, "sign", "--json")
	require.NoError(t, err)

	var signed types.SignedPayment
	require.NoError(t, json.Unmarshal([]byte(out), &signed))
	assert.Equal(t, "X-PAYMENT", signed.HeaderName)
	assert.Equal(t, types.X402Version1, signed.X402Version)
}

func TestSignCommand_Errors(t *testing.T) {
	_, err := run(t, "", v1Body, "sign")
	assert.Equal(t, types.ErrWalletNotConfigured, types.CodeOf(err))

	env := "X402PAY_WALLET_PRIVATE_KEY=" + testKey + "\n"
	_, err = run(t, env, v1Body, "sign", "--option", "3")
	assert.Error(t, err)

	_, err = run(t, env, `{"minimumRequired":"1","currentBalance":"0"}`, "sign")
	assert.Equal(t, types.ErrPrepaidNotSupportedForSigning, types.CodeOf(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "PAYMENT-SIGNATURE")
}
