package types

import (
	"github.com/mitchellh/mapstructure"
)

// Domain defaults for USDC-style EIP-3009 tokens.
const (
	DefaultTokenName    = "USD Coin"
	DefaultTokenVersion = "2"
)

// ExtraOverrides is the part of PaymentOption.Extra the engine understands.
// Everything else in the map is carried but ignored.
type ExtraOverrides struct {
	Name            string                    `mapstructure:"name"`
	Version         string                    `mapstructure:"version"`
	EIP712TypedData *EIP712TypedDataOverrides `mapstructure:"eip712TypedData"`
}

type EIP712TypedDataOverrides struct {
	Domain  *EIP712DomainOverrides  `mapstructure:"domain"`
	Message *EIP712MessageOverrides `mapstructure:"message"`
}

type EIP712DomainOverrides struct {
	Name              string `mapstructure:"name"`
	Version           string `mapstructure:"version"`
	VerifyingContract string `mapstructure:"verifyingContract"`
}

type EIP712MessageOverrides struct {
	ValidAfter  *int64 `mapstructure:"validAfter"`
	ValidBefore *int64 `mapstructure:"validBefore"`
	Nonce       string `mapstructure:"nonce"`
}

// DecodeExtra decodes the known override keys of an option's extra map.
func DecodeExtra(extra map[string]interface{}) (*ExtraOverrides, error) {
	out := &ExtraOverrides{}
	if len(extra) == 0 {
		return out, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(extra); err != nil {
		return nil, &X402Error{
			Code:    ErrInvalidRequirements,
			Message: "invalid extra",
			Cause:   err,
		}
	}
	return out, nil
}

func (e *ExtraOverrides) domain() *EIP712DomainOverrides {
	if e.EIP712TypedData == nil || e.EIP712TypedData.Domain == nil {
		return &EIP712DomainOverrides{}
	}
	return e.EIP712TypedData.Domain
}

func (e *ExtraOverrides) message() *EIP712MessageOverrides {
	if e.EIP712TypedData == nil || e.EIP712TypedData.Message == nil {
		return &EIP712MessageOverrides{}
	}
	return e.EIP712TypedData.Message
}

// DomainName resolves extra.name, then extra.eip712TypedData.domain.name, then the default.
func (e *ExtraOverrides) DomainName() string {
	return firstNonEmpty(e.Name, e.domain().Name, DefaultTokenName)
}

// DomainVersion resolves extra.version, then extra.eip712TypedData.domain.version, then the default.
func (e *ExtraOverrides) DomainVersion() string {
	return firstNonEmpty(e.Version, e.domain().Version, DefaultTokenVersion)
}

// VerifyingContract returns the server supplied verifying contract, if any.
func (e *ExtraOverrides) VerifyingContract() (string, bool) {
	vc := e.domain().VerifyingContract
	return vc, vc != ""
}

// ValidityWindow returns the explicit validAfter and validBefore, each nil when absent.
func (e *ExtraOverrides) ValidityWindow() (validAfter, validBefore *int64) {
	m := e.message()
	return m.ValidAfter, m.ValidBefore
}

// Nonce returns the server supplied nonce, if any.
func (e *ExtraOverrides) Nonce() (string, bool) {
	n := e.message().Nonce
	return n, n != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
