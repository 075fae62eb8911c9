package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
	X402Version2 X402Version = 2
)

// Header names used to carry the signed payment on the retried request.
const (
	HeaderPaymentV1 = "X-PAYMENT"
	HeaderPaymentV2 = "PAYMENT-SIGNATURE"
)

// HeaderName returns the request header a payment of this version travels in.
func (v X402Version) HeaderName() string {
	if v == X402Version1 {
		return HeaderPaymentV1
	}
	return HeaderPaymentV2
}

// IsSupported reports whether v is a protocol version this engine speaks.
func (v X402Version) IsSupported() bool {
	return v == X402Version1 || v == X402Version2
}

// PaymentScheme represents different payment schemes
type PaymentScheme string

const (
	SchemeExact   PaymentScheme = "exact"
	SchemePrepaid PaymentScheme = "prepaid"
)

// AcceptKind tags an entry of PaymentRequirements.Options.
type AcceptKind string

const (
	AcceptPrepaid AcceptKind = "prepaid"
	AcceptX402    AcceptKind = "x402"
)

// ResourceInfo describes the resource a payment unlocks.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PaymentOption is a single on-chain way of paying that the resource server accepts.
// Field names follow the v2 wire format; v1's maxAmountRequired is stored in Amount.
type PaymentOption struct {
	// Scheme of the payment protocol to use (e.g., "exact").
	Scheme string `json:"scheme" validate:"required"`

	// Network to send payment on, either a named network ("base") or CAIP-2 ("eip155:8453").
	Network string `json:"network" validate:"required"`

	// Address of the EIP-3009 compliant ERC20 contract.
	Asset string `json:"asset"`

	// Amount required in atomic units of the asset, as a decimal string.
	Amount string `json:"amount"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo"`

	// Maximum time in seconds for the resource server to respond.
	MaxTimeoutSeconds int64 `json:"maxTimeoutSeconds"`

	// v1 only: per-entry resource metadata.
	Resource    string `json:"resource,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`

	// Extra information about payment details specific to the scheme.
	Extra map[string]interface{} `json:"extra,omitempty"`

	raw json.RawMessage
}

// Raw returns the server's original JSON for this option, if it was parsed from a response.
func (o *PaymentOption) Raw() json.RawMessage {
	if len(o.raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(o.raw))
	copy(out, o.raw)
	return out
}

// WithRaw returns a copy of o that remembers the JSON it was parsed from.
func (o PaymentOption) WithRaw(raw json.RawMessage) PaymentOption {
	o.raw = append(json.RawMessage(nil), raw...)
	return o
}

// PrepaidOption is a server offer to charge the prepaid credit ledger instead of signing.
type PrepaidOption struct {
	Amount string `json:"amount,omitempty"`
}

// Accept is one entry of the parsed option list: either a prepaid offer or an x402 option.
type Accept struct {
	Kind    AcceptKind     `json:"type"`
	Option  *PaymentOption `json:"option,omitempty"`
	Prepaid *PrepaidOption `json:"prepaid,omitempty"`
}

// InsufficientCredit is returned instead of x402 options when the prepaid balance is too low.
type InsufficientCredit struct {
	MinimumRequired decimal.Decimal `json:"minimumRequired"`
	CurrentBalance  decimal.Decimal `json:"currentBalance"`
}

// PaymentRequirements is the normalized form of a 402 response body.
type PaymentRequirements struct {
	X402Version X402Version `json:"x402Version,omitempty"`

	Resource *ResourceInfo `json:"resource,omitempty"`

	Options []Accept `json:"options"`

	InsufficientCredit *InsufficientCredit `json:"insufficientCredit,omitempty"`

	// Message from the resource server indicating any processing error.
	Error string `json:"error,omitempty"`

	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// IsPrepaidOnly reports whether the requirements describe the insufficient-credit shape.
func (r *PaymentRequirements) IsPrepaidOnly() bool {
	return r.InsufficientCredit != nil
}

// X402Options returns copies of the on-chain options in server order.
func (r *PaymentRequirements) X402Options() []PaymentOption {
	out := make([]PaymentOption, 0, len(r.Options))
	for _, a := range r.Options {
		if a.Kind == AcceptX402 && a.Option != nil {
			out = append(out, *a.Option)
		}
	}
	return out
}

// Prepaid returns the first prepaid offer, or nil when the server made none.
func (r *PaymentRequirements) Prepaid() *PrepaidOption {
	for _, a := range r.Options {
		if a.Kind == AcceptPrepaid {
			if a.Prepaid == nil {
				return &PrepaidOption{}
			}
			p := *a.Prepaid
			return &p
		}
	}
	return nil
}

// AuthorizationDomain is the EIP-712 domain a TransferWithAuthorization is scoped to.
type AuthorizationDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// AuthorizationMessage is the EIP-3009 TransferWithAuthorization message.
type AuthorizationMessage struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       [32]byte
}

// Authorization is a domain and message ready for typed-data signing.
type Authorization struct {
	Domain  AuthorizationDomain
	Message AuthorizationMessage
}

// EIP3009Authorization is the wire form of AuthorizationMessage. Numeric fields are
// decimal strings so they survive a JSON round trip without precision loss.
type EIP3009Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`       // uint256
	ValidAfter  string `json:"validAfter"`  // uint256 timestamp
	ValidBefore string `json:"validBefore"` // uint256 timestamp
	Nonce       string `json:"nonce"`       // bytes32
}

type EIP3009Payload struct {
	Signature     string               `json:"signature"` // The 65-byte ECDSA signature (r,s,v)
	Authorization EIP3009Authorization `json:"authorization"`
}

// PaymentPayloadV1 is the JSON carried (base64 encoded) in the X-PAYMENT header.
type PaymentPayloadV1 struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Payload     EIP3009Payload `json:"payload"`
}

// PaymentPayloadV2 is the JSON carried (base64 encoded) in the PAYMENT-SIGNATURE header.
type PaymentPayloadV2 struct {
	X402Version int             `json:"x402Version"`
	Resource    *ResourceInfo   `json:"resource,omitempty"`
	Accepted    json.RawMessage `json:"accepted"`
	Payload     EIP3009Payload  `json:"payload"`
}

// SignedPayment is the header to attach when retrying the original request.
type SignedPayment struct {
	HeaderName    string               `json:"headerName"`
	HeaderValue   string               `json:"headerValue"`
	X402Version   X402Version          `json:"x402Version"`
	Network       string               `json:"network"`
	Signature     string               `json:"signature"`
	Authorization EIP3009Authorization `json:"authorization"`
}

// Receipt is what the billing collaborator returns after charging the prepaid ledger.
type Receipt struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}
