// Package signing signs x402 "exact" EVM payments and packages them into the
// version specific payment header.
package signing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vitwit/x402pay/authorization"
	"github.com/vitwit/x402pay/clients"
	"github.com/vitwit/x402pay/logger"
	"github.com/vitwit/x402pay/metrics"
	"github.com/vitwit/x402pay/types"
	"github.com/vitwit/x402pay/utils"
	"github.com/vitwit/x402pay/utils/eip712"
)

// SigningService builds, signs and encodes payment authorizations. It keeps no
// per-payment state; concurrent calls sign independently.
type SigningService struct {
	signer          clients.TypedDataSigner
	builder         *authorization.Builder
	logger          logger.Logger
	metrics         metrics.Recorder
	verifySignature bool
}

type Option func(*SigningService)

func WithBuilder(b *authorization.Builder) Option {
	return func(s *SigningService) {
		s.builder = b
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *SigningService) {
		s.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *SigningService) {
		s.metrics = metrics.OrNoop(r)
	}
}

// WithoutSignatureCheck skips recovering the signer from the returned signature.
// Needed for signers that are not plain EOAs.
func WithoutSignatureCheck() Option {
	return func(s *SigningService) {
		s.verifySignature = false
	}
}

// NewSigningService creates a signing service backed by signer.
func NewSigningService(signer clients.TypedDataSigner, opts ...Option) *SigningService {
	s := &SigningService{
		signer:          signer,
		builder:         authorization.NewBuilder(),
		logger:          logger.NoopLogger{},
		metrics:         metrics.NoopRecorder{},
		verifySignature: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignPayment signs option on behalf of from. A nil option selects the first
// on-chain option of req.
func (s *SigningService) SignPayment(
	ctx context.Context,
	req *types.PaymentRequirements,
	option *types.PaymentOption,
	from string,
) (*types.SignedPayment, error) {
	option, err := selectOption(req, option)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{"network": option.Network}
	start := time.Now()

	signed, err := s.sign(ctx, req, option, from)
	if err != nil {
		s.metrics.IncCounter(metrics.EventSigningFailed, labels)
		s.logger.Error("payment signing failed", map[string]any{
			"network": option.Network,
			"code":    types.CodeOf(err),
			"error":   err,
		})
		return nil, err
	}

	s.metrics.IncCounter(metrics.EventPaymentSigned, labels)
	s.metrics.ObserveLatency(metrics.OperationSign, time.Since(start), labels)
	s.logger.Info("payment signed", map[string]any{
		"network":     option.Network,
		"x402Version": int(signed.X402Version),
		"header":      signed.HeaderName,
		"from":        signed.Authorization.From,
		"to":          signed.Authorization.To,
		"value":       signed.Authorization.Value,
	})

	return signed, nil
}

func (s *SigningService) sign(
	ctx context.Context,
	req *types.PaymentRequirements,
	option *types.PaymentOption,
	from string,
) (*types.SignedPayment, error) {
	if !req.X402Version.IsSupported() {
		return nil, &types.X402Error{
			Code:    types.ErrUnsupportedVersion,
			Message: fmt.Sprintf("unsupported x402Version: %d", req.X402Version),
		}
	}

	if s.signer == nil {
		return nil, &types.X402Error{
			Code:    types.ErrWalletNotConfigured,
			Message: "no signer configured",
		}
	}

	auth, err := s.builder.Build(option, from)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("requesting typed data signature", map[string]any{
		"network":           option.Network,
		"chainId":           auth.Domain.ChainID.String(),
		"verifyingContract": auth.Domain.VerifyingContract.Hex(),
		"validAfter":        auth.Message.ValidAfter.String(),
		"validBefore":       auth.Message.ValidBefore.String(),
		"digest":            eip712.AuthorizationDigest(auth).Hex(),
	})

	typedData := eip712.TypedData(auth)
	sig, err := s.signer.SignTypedData(ctx, typedData)
	if err != nil {
		return nil, signingFailed(err, "signer rejected typed data")
	}

	sig, err = utils.NormalizeSignature(sig)
	if err != nil {
		return nil, signingFailed(err, "signer returned a malformed signature")
	}
	signature := hexutil.Encode(sig)

	if s.verifySignature {
		ok, err := utils.VerifyEIP712Signature(typedData, signature, auth.Message.From)
		if err != nil {
			return nil, signingFailed(err, "signature does not recover")
		}
		if !ok {
			return nil, signingFailed(nil, "signature was not made by %s", auth.Message.From.Hex())
		}
	}

	payload := types.EIP3009Payload{
		Signature:     signature,
		Authorization: WireAuthorization(auth.Message),
	}

	headerValue, err := EncodePayload(req, option, payload)
	if err != nil {
		return nil, err
	}

	return &types.SignedPayment{
		HeaderName:    req.X402Version.HeaderName(),
		HeaderValue:   headerValue,
		X402Version:   req.X402Version,
		Network:       option.Network,
		Signature:     signature,
		Authorization: payload.Authorization,
	}, nil
}

func selectOption(req *types.PaymentRequirements, option *types.PaymentOption) (*types.PaymentOption, error) {
	if req == nil {
		return nil, &types.X402Error{
			Code:    types.ErrNoPaymentOption,
			Message: "no payment requirements",
		}
	}

	if req.IsPrepaidOnly() {
		return nil, &types.X402Error{
			Code:    types.ErrPrepaidNotSupportedForSigning,
			Message: "prepaid requirements cannot be signed",
		}
	}

	options := req.X402Options()
	if len(options) == 0 {
		if req.Prepaid() != nil {
			return nil, &types.X402Error{
				Code:    types.ErrPrepaidNotSupportedForSigning,
				Message: "requirements only accept prepaid credit",
			}
		}
		return nil, &types.X402Error{
			Code:    types.ErrNoPaymentOption,
			Message: "payment requirements contain no payment option",
		}
	}

	if option == nil {
		return &options[0], nil
	}
	if option.Scheme == string(types.SchemePrepaid) {
		return nil, &types.X402Error{
			Code:    types.ErrPrepaidNotSupportedForSigning,
			Message: "prepaid option cannot be signed",
		}
	}
	return option, nil
}

// WireAuthorization converts a message to its JSON form with decimal string integers.
func WireAuthorization(m types.AuthorizationMessage) types.EIP3009Authorization {
	return types.EIP3009Authorization{
		From:        m.From.Hex(),
		To:          m.To.Hex(),
		Value:       m.Value.String(),
		ValidAfter:  m.ValidAfter.String(),
		ValidBefore: m.ValidBefore.String(),
		Nonce:       hexutil.Encode(m.Nonce[:]),
	}
}

// EncodePayload builds the version specific payment payload and returns it as
// base64(JSON).
func EncodePayload(req *types.PaymentRequirements, option *types.PaymentOption, payload types.EIP3009Payload) (string, error) {
	var body interface{}

	switch req.X402Version {
	case types.X402Version1:
		body = types.PaymentPayloadV1{
			X402Version: int(types.X402Version1),
			Scheme:      option.Scheme,
			Network:     option.Network,
			Payload:     payload,
		}
	case types.X402Version2:
		accepted := option.Raw()
		if accepted == nil {
			b, err := marshalJSON(option)
			if err != nil {
				return "", signingFailed(err, "failed to encode accepted option")
			}
			accepted = b
		}
		body = types.PaymentPayloadV2{
			X402Version: int(types.X402Version2),
			Resource:    req.Resource,
			Accepted:    accepted,
			Payload:     payload,
		}
	default:
		return "", &types.X402Error{
			Code:    types.ErrUnsupportedVersion,
			Message: fmt.Sprintf("unsupported x402Version: %d", req.X402Version),
		}
	}

	b, err := marshalJSON(body)
	if err != nil {
		return "", signingFailed(err, "failed to encode payment payload")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeHeaderValue reverses EncodePayload into v.
func DecodeHeaderValue(value string, v interface{}) error {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("invalid base64: %w", err)
	}
	return json.Unmarshal(b, v)
}

// marshalJSON encodes like JSON.stringify: no HTML escaping, no trailing newline.
func marshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func signingFailed(cause error, format string, args ...interface{}) error {
	return types.NewX402Error(types.ErrSigningFailed, cause, format, args...)
}
