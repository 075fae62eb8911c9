// Package x402 is the client side of the x402 payment protocol: it parses
// 402 Payment Required bodies, decides between prepaid credit and an on-chain
// payment, and signs EIP-3009 transferWithAuthorization payments for EVM networks.
package x402

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitwit/x402pay/authorization"
	"github.com/vitwit/x402pay/clients"
	"github.com/vitwit/x402pay/config"
	"github.com/vitwit/x402pay/logger"
	"github.com/vitwit/x402pay/metrics"
	"github.com/vitwit/x402pay/rails"
	"github.com/vitwit/x402pay/signing"
	"github.com/vitwit/x402pay/types"
	"github.com/vitwit/x402pay/utils"
)

// X402 is the main struct that provides all x402 payer functionality
type X402 struct {
	config     *config.Config
	logger     logger.Logger
	metrics    metrics.Recorder
	registerer prometheus.Registerer

	signer   clients.TypedDataSigner
	wallet   clients.WalletConfig
	balances clients.BalanceReader
	biller   clients.PrepaidBiller
	builder  *authorization.Builder

	signing   *signing.SigningService
	evaluator *rails.Evaluator
}

var _ rails.Executor = (*X402)(nil)

// New creates a new X402 instance. A nil config uses config.Default().
func New(cfg *config.Config, opts ...Option) (*X402, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	x := &X402{config: cfg}
	for _, opt := range opts {
		opt(x)
	}

	if x.logger == nil {
		l, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		x.logger = l
	}

	if x.metrics == nil && cfg.EnableMetrics {
		reg := x.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		x.metrics = rec
	}
	x.metrics = metrics.OrNoop(x.metrics)

	// a signer that knows its own address doubles as the wallet config
	if x.wallet == nil {
		if w, ok := x.signer.(clients.WalletConfig); ok {
			x.wallet = w
		}
	}

	if x.builder == nil {
		x.builder = authorization.NewBuilder(authorization.WithLogger(x.logger))
	}

	x.signing = signing.NewSigningService(x.signer,
		signing.WithBuilder(x.builder),
		signing.WithLogger(x.logger),
		signing.WithMetrics(x.metrics),
	)
	// the crypto rail needs an address and a key holder
	var wallet clients.WalletConfig
	if x.signer != nil {
		wallet = x.wallet
	}
	x.evaluator = rails.NewEvaluator(wallet, x.balances)

	return x, nil
}

// ParseRequirements parses a 402 Payment Required body.
func (x *X402) ParseRequirements(data []byte) (*types.PaymentRequirements, error) {
	req, err := utils.ParseRequirements(data)
	if err != nil {
		x.metrics.IncCounter(metrics.EventRequirementsFailed, nil)
		x.logger.Warn("failed to parse payment requirements", map[string]any{
			"code":  types.CodeOf(err),
			"error": err,
		})
		return nil, err
	}

	x.metrics.IncCounter(metrics.EventRequirementsParsed, nil)
	x.logger.Debug("parsed payment requirements", map[string]any{
		"x402Version":  int(req.X402Version),
		"options":      len(req.X402Options()),
		"prepaid":      req.Prepaid() != nil,
		"insufficient": req.InsufficientCredit != nil,
	})
	return req, nil
}

// SignPayment signs option of req with the configured wallet. A nil option selects
// the first on-chain option.
func (x *X402) SignPayment(
	ctx context.Context,
	req *types.PaymentRequirements,
	option *types.PaymentOption,
) (*types.SignedPayment, error) {
	from, err := x.walletAddress()
	if err != nil {
		return nil, err
	}
	return x.signing.SignPayment(ctx, req, option, from)
}

// EvaluateRails computes rail availability for req and auto-selects a rail.
func (x *X402) EvaluateRails(req *types.PaymentRequirements, preference rails.RailID, fallback bool) *rails.Decision {
	return x.evaluator.EvaluateRails(req, preference, fallback)
}

// Preference returns the configured preferred rail and fallback flag.
func (x *X402) Preference() (rails.RailID, bool) {
	pref, _ := rails.ParseRailID(x.config.PreferredRail)
	return pref, x.config.FallbackEnabled
}

// NewPrompt creates a payment prompt for req and evaluates it with the configured
// preference. Approving the prompt pays through this instance.
func (x *X402) NewPrompt(req *types.PaymentRequirements, opts ...rails.PromptOption) (*rails.Prompt, error) {
	base := []rails.PromptOption{
		rails.WithLogger(x.logger),
		rails.WithMetrics(x.metrics),
	}
	p := rails.NewPrompt(req, x.evaluator, x, append(base, opts...)...)

	pref, fallback := x.Preference()
	if _, err := p.Evaluate(pref, fallback); err != nil {
		return nil, err
	}
	return p, nil
}

// PayCrypto implements rails.Executor.
func (x *X402) PayCrypto(ctx context.Context, req *types.PaymentRequirements, option *types.PaymentOption) (*types.SignedPayment, error) {
	return x.SignPayment(ctx, req, option)
}

// PayPrepaid implements rails.Executor.
func (x *X402) PayPrepaid(ctx context.Context, amount string) (*types.Receipt, error) {
	if x.biller == nil {
		return nil, &types.X402Error{
			Code:    types.ErrRailUnavailable,
			Message: "prepaid billing not configured",
		}
	}

	start := time.Now()
	receipt, err := x.biller.ChargePrepaid(ctx, amount)
	if err != nil {
		return nil, err
	}
	x.metrics.ObserveLatency(metrics.OperationCharge, time.Since(start), nil)
	return receipt, nil
}

// Close flushes buffered log entries.
func (x *X402) Close() {
	if s, ok := x.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

func (x *X402) walletAddress() (string, error) {
	if x.wallet != nil {
		if addr, ok := x.wallet.WalletAddress(); ok && addr != "" {
			return addr, nil
		}
	}
	return "", &types.X402Error{
		Code:    types.ErrWalletNotConfigured,
		Message: "wallet not configured",
	}
}

// Version information
const (
	Version = "0.1.0"
)

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version": Version,
		"protocol_versions": []int{
			int(types.X402Version1),
			int(types.X402Version2),
		},
		"payment_headers": []string{
			types.HeaderPaymentV1,
			types.HeaderPaymentV2,
		},
		"supported_schemes": []string{
			string(types.SchemeExact),
		},
		"supported_standards": []string{
			"eip3009",
		},
	}
}
