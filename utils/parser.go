package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vitwit/x402pay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the shared validator over a struct with `validate` tags.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// paymentRequiredBody is the union of every 402 body shape the engine understands.
type paymentRequiredBody struct {
	X402Version json.RawMessage `json:"x402Version"`
	Accepts     json.RawMessage `json:"accepts"`
	Resource    json.RawMessage `json:"resource"`
	Error       json.RawMessage `json:"error"`
	Extensions  map[string]any  `json:"extensions"`

	// insufficient prepaid credit shape
	MinimumRequired json.RawMessage `json:"minimumRequired"`
	CurrentBalance  json.RawMessage `json:"currentBalance"`
}

// acceptEntry is one element of `accepts` in either protocol version.
type acceptEntry struct {
	Type              string                 `json:"type"`
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	Asset             string                 `json:"asset"`
	Amount            string                 `json:"amount"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int64                  `json:"maxTimeoutSeconds"`
	Resource          string                 `json:"resource"`
	Description       string                 `json:"description"`
	MimeType          string                 `json:"mimeType"`
	Extra             map[string]interface{} `json:"extra"`
}

func (a *acceptEntry) isPrepaid() bool {
	return a.Type == string(types.AcceptPrepaid) || a.Scheme == string(types.SchemePrepaid)
}

// ParseRequirements normalizes a 402 response body into PaymentRequirements.
func ParseRequirements(data []byte) (*types.PaymentRequirements, error) {
	var body paymentRequiredBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, invalidRequirements(err, "failed to parse payment requirements")
	}

	if present(body.MinimumRequired) && present(body.CurrentBalance) {
		return parseInsufficientCredit(&body)
	}

	version, err := parseVersion(body.X402Version)
	if err != nil {
		return nil, err
	}

	entries, raws, err := parseAccepts(body.Accepts)
	if err != nil {
		return nil, err
	}

	req := &types.PaymentRequirements{
		X402Version: version,
		Options:     make([]types.Accept, 0, len(entries)),
		Error:       stringOrEmpty(body.Error),
		Extensions:  body.Extensions,
	}

	switch version {
	case types.X402Version1:
		if len(entries) > 0 && entries[0].Resource != "" {
			req.Resource = &types.ResourceInfo{
				URL:         entries[0].Resource,
				Description: entries[0].Description,
				MimeType:    entries[0].MimeType,
			}
		}
	case types.X402Version2:
		req.Resource, err = parseResource(body.Resource)
		if err != nil {
			return nil, err
		}
	}

	for i := range entries {
		accept, err := toAccept(version, &entries[i], raws[i])
		if err != nil {
			return nil, err
		}
		req.Options = append(req.Options, accept)
	}

	return req, nil
}

func parseInsufficientCredit(body *paymentRequiredBody) (*types.PaymentRequirements, error) {
	var minimum, balance decimal.Decimal
	if err := json.Unmarshal(body.MinimumRequired, &minimum); err != nil {
		return nil, invalidRequirements(err, "invalid minimumRequired")
	}
	if err := json.Unmarshal(body.CurrentBalance, &balance); err != nil {
		return nil, invalidRequirements(err, "invalid currentBalance")
	}

	return &types.PaymentRequirements{
		Options: []types.Accept{{
			Kind:    types.AcceptPrepaid,
			Prepaid: &types.PrepaidOption{Amount: minimum.String()},
		}},
		InsufficientCredit: &types.InsufficientCredit{
			MinimumRequired: minimum,
			CurrentBalance:  balance,
		},
		Error: stringOrEmpty(body.Error),
	}, nil
}

func parseVersion(raw json.RawMessage) (types.X402Version, error) {
	if !present(raw) {
		return 0, &types.X402Error{
			Code:    types.ErrMissingVersion,
			Message: "payment requirements are missing x402Version",
		}
	}

	// json.Number also accepts quoted numerals; the version must be a JSON number
	var n json.Number
	if raw = bytes.TrimSpace(raw); raw[0] != '"' && json.Unmarshal(raw, &n) == nil {
		if v, err := n.Int64(); err == nil && types.X402Version(v).IsSupported() {
			return types.X402Version(v), nil
		}
	}

	return 0, &types.X402Error{
		Code:    types.ErrUnsupportedVersion,
		Message: fmt.Sprintf("unsupported x402Version: %s", string(raw)),
		Data:    string(raw),
	}
}

func parseAccepts(raw json.RawMessage) ([]acceptEntry, []json.RawMessage, error) {
	if !present(raw) {
		return nil, nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, nil, invalidRequirements(err, "accepts must be an array")
	}

	entries := make([]acceptEntry, len(raws))
	for i, r := range raws {
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		if err := dec.Decode(&entries[i]); err != nil {
			return nil, nil, invalidRequirements(err, "invalid accepts[%d]", i)
		}
	}
	return entries, raws, nil
}

func parseResource(raw json.RawMessage) (*types.ResourceInfo, error) {
	if !present(raw) {
		return nil, nil
	}

	var url string
	if err := json.Unmarshal(raw, &url); err == nil {
		return &types.ResourceInfo{URL: url}, nil
	}

	var info types.ResourceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, invalidRequirements(err, "invalid resource")
	}
	return &info, nil
}

func toAccept(version types.X402Version, e *acceptEntry, raw json.RawMessage) (types.Accept, error) {
	if e.isPrepaid() {
		return types.Accept{
			Kind:    types.AcceptPrepaid,
			Prepaid: &types.PrepaidOption{Amount: firstNonEmpty(e.Amount, e.MaxAmountRequired)},
		}, nil
	}

	amount := e.Amount
	if version == types.X402Version1 {
		amount = firstNonEmpty(e.MaxAmountRequired, e.Amount)
	}

	option := types.PaymentOption{
		Scheme:            e.Scheme,
		Network:           e.Network,
		Asset:             e.Asset,
		Amount:            amount,
		PayTo:             e.PayTo,
		MaxTimeoutSeconds: e.MaxTimeoutSeconds,
		Resource:          e.Resource,
		Description:       e.Description,
		MimeType:          e.MimeType,
		Extra:             e.Extra,
	}.WithRaw(raw)

	if err := validate.Struct(&option); err != nil {
		return types.Accept{}, invalidRequirements(err, "validation failed")
	}

	return types.Accept{Kind: types.AcceptX402, Option: &option}, nil
}

func invalidRequirements(cause error, format string, args ...interface{}) error {
	return types.NewX402Error(types.ErrInvalidRequirements, cause, format, args...)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringOrEmpty(raw json.RawMessage) string {
	var s string
	if present(raw) && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
