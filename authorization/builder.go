// Package authorization derives the EIP-712 domain and EIP-3009 message for a chosen
// payment option.
package authorization

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/x402pay/logger"
	"github.com/vitwit/x402pay/types"
	"github.com/vitwit/x402pay/utils"
)

// ValidAfterSkew backdates the default validAfter to tolerate clock drift between
// the payer and the facilitator.
const ValidAfterSkew = 60 * time.Second

type NowFunc func() time.Time

// NonceFunc returns a fresh 32-byte authorization nonce.
type NonceFunc func() ([32]byte, error)

// Builder turns a PaymentOption into an Authorization. It holds no per-payment
// state and is safe for concurrent use.
type Builder struct {
	now    NowFunc
	nonce  NonceFunc
	logger logger.Logger
}

type Option func(*Builder)

func WithNow(now NowFunc) Option {
	return func(b *Builder) {
		b.now = now
	}
}

func WithNonceSource(nonce NonceFunc) Option {
	return func(b *Builder) {
		b.nonce = nonce
	}
}

func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		b.logger = logger.OrNoop(l)
	}
}

// NewBuilder creates a Builder using the wall clock and crypto/rand nonces.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		now:    time.Now,
		nonce:  utils.RandomNonce,
		logger: logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build derives the domain and message for option, paid from the from address.
func (b *Builder) Build(option *types.PaymentOption, from string) (*types.Authorization, error) {
	if option == nil {
		return nil, &types.X402Error{
			Code:    types.ErrNoPaymentOption,
			Message: "no payment option selected",
		}
	}

	if from == "" {
		return nil, &types.X402Error{
			Code:    types.ErrWalletNotConfigured,
			Message: "wallet not configured",
		}
	}

	fromAddr, err := utils.ParseAddress("from", from)
	if err != nil {
		return nil, err
	}

	extra, err := types.DecodeExtra(option.Extra)
	if err != nil {
		return nil, err
	}

	chainID, err := types.Network(option.Network).ChainID()
	if err != nil {
		return nil, err
	}

	verifyingContract, err := resolveVerifyingContract(option.Asset, extra)
	if err != nil {
		return nil, err
	}

	to, err := utils.ParseAddress("payTo", option.PayTo)
	if err != nil {
		return nil, err
	}

	value, err := utils.ParseAtomicAmount(option.Amount)
	if err != nil {
		return nil, err
	}

	validAfter, validBefore, err := b.validityWindow(option, extra)
	if err != nil {
		return nil, err
	}

	nonce, err := b.resolveNonce(extra)
	if err != nil {
		return nil, err
	}

	return &types.Authorization{
		Domain: types.AuthorizationDomain{
			Name:              extra.DomainName(),
			Version:           extra.DomainVersion(),
			ChainID:           chainID,
			VerifyingContract: verifyingContract,
		},
		Message: types.AuthorizationMessage{
			From:        fromAddr,
			To:          to,
			Value:       value,
			ValidAfter:  validAfter,
			ValidBefore: validBefore,
			Nonce:       nonce,
		},
	}, nil
}

// resolveVerifyingContract returns the checksummed token contract. A server supplied
// verifyingContract must name the same contract as the option's asset.
func resolveVerifyingContract(asset string, extra *types.ExtraOverrides) (common.Address, error) {
	assetAddr, err := utils.ParseAddress("asset", asset)
	if err != nil {
		return common.Address{}, err
	}

	if override, ok := extra.VerifyingContract(); ok && !strings.EqualFold(override, asset) {
		return common.Address{}, &types.X402Error{
			Code:    types.ErrMismatchedVerifyingContract,
			Message: fmt.Sprintf("verifyingContract %s does not match asset %s", override, asset),
			Data: map[string]string{
				"asset":             asset,
				"verifyingContract": override,
			},
		}
	}

	return assetAddr, nil
}

func (b *Builder) validityWindow(option *types.PaymentOption, extra *types.ExtraOverrides) (*big.Int, *big.Int, error) {
	now := b.now().Unix()
	explicitAfter, explicitBefore := extra.ValidityWindow()

	validAfter := big.NewInt(now - int64(ValidAfterSkew/time.Second))
	if explicitAfter != nil {
		validAfter = big.NewInt(*explicitAfter)
	}

	validBefore := big.NewInt(now + option.MaxTimeoutSeconds)
	if explicitBefore != nil {
		validBefore = big.NewInt(*explicitBefore)
	}

	if explicitAfter != nil || explicitBefore != nil {
		b.logger.Warn("using server supplied validity window", map[string]any{
			"network":     option.Network,
			"validAfter":  validAfter.String(),
			"validBefore": validBefore.String(),
		})
	}

	if validAfter.Sign() < 0 || validBefore.Cmp(validAfter) <= 0 {
		return nil, nil, &types.X402Error{
			Code:    types.ErrInvalidValidityWindow,
			Message: fmt.Sprintf("invalid validity window: validAfter %s, validBefore %s", validAfter, validBefore),
		}
	}

	return validAfter, validBefore, nil
}

func (b *Builder) resolveNonce(extra *types.ExtraOverrides) ([32]byte, error) {
	if explicit, ok := extra.Nonce(); ok {
		return utils.ParseNonce(explicit)
	}
	return b.nonce()
}
