// Package rails decides how a payment prompt is paid: from the prepaid credit
// ledger or by signing an on-chain authorization.
package rails

import (
	"github.com/shopspring/decimal"
	"github.com/vitwit/x402pay/clients"
	"github.com/vitwit/x402pay/types"
	"github.com/vitwit/x402pay/utils"
)

type RailID string

const (
	RailPrepaid RailID = "prepaid"
	RailCrypto  RailID = "crypto"
)

// Order is the order rails are listed in, and the fallback order.
var Order = []RailID{RailPrepaid, RailCrypto}

// ParseRailID returns the rail named s, or false for anything else.
func ParseRailID(s string) (RailID, bool) {
	switch RailID(s) {
	case RailPrepaid, RailCrypto:
		return RailID(s), true
	}
	return "", false
}

// Reasons shown next to an unavailable rail.
const (
	ReasonInsufficientBalance = "Insufficient balance"
	ReasonBalanceUnavailable  = "Balance unavailable"
	ReasonPrepaidNotAccepted  = "Prepaid not accepted"
	ReasonNoChargeAmount      = "Charge amount unknown"
	ReasonWalletNotConfigured = "Wallet not configured"
	ReasonNoOnChainOption     = "No on-chain payment option"
)

type Rail struct {
	ID             RailID `json:"id"`
	Available      bool   `json:"available"`
	BalanceDisplay string `json:"balanceDisplay,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Decision is the rail state of one payment prompt.
type Decision struct {
	AvailableRails []Rail `json:"availableRails"`
	SelectedRail   RailID `json:"selectedRail,omitempty"`
}

// Rail returns the entry for id.
func (d *Decision) Rail(id RailID) (Rail, bool) {
	for _, r := range d.AvailableRails {
		if r.ID == id {
			return r, true
		}
	}
	return Rail{}, false
}

// IsAvailable reports whether id is listed and available.
func (d *Decision) IsAvailable(id RailID) bool {
	r, ok := d.Rail(id)
	return ok && r.Available
}

func (d *Decision) clone() *Decision {
	if d == nil {
		return nil
	}
	out := &Decision{
		AvailableRails: make([]Rail, len(d.AvailableRails)),
		SelectedRail:   d.SelectedRail,
	}
	copy(out.AvailableRails, d.AvailableRails)
	return out
}

// Evaluator computes rail availability from read-only snapshots of the wallet
// configuration and the prepaid balance.
type Evaluator struct {
	wallet   clients.WalletConfig
	balances clients.BalanceReader
}

// NewEvaluator creates an Evaluator. Either collaborator may be nil, which marks
// the corresponding rail unavailable.
func NewEvaluator(wallet clients.WalletConfig, balances clients.BalanceReader) *Evaluator {
	return &Evaluator{wallet: wallet, balances: balances}
}

// EvaluateRails lists both rails for req and auto-selects one: the preferred rail
// when available, else the first available rail when fallback is enabled.
func (e *Evaluator) EvaluateRails(req *types.PaymentRequirements, preference RailID, fallback bool) *Decision {
	d := &Decision{
		AvailableRails: []Rail{e.prepaidRail(req), e.cryptoRail(req)},
	}
	d.SelectedRail = autoSelect(d, preference, fallback)
	return d
}

func (e *Evaluator) prepaidRail(req *types.PaymentRequirements) Rail {
	rail := Rail{ID: RailPrepaid}

	balance, known := e.cachedBalance()
	if known {
		rail.BalanceDisplay = utils.FormatUSD(balance)
	} else if req != nil && req.InsufficientCredit != nil {
		rail.BalanceDisplay = utils.FormatUSD(req.InsufficientCredit.CurrentBalance)
	}

	switch {
	case req == nil || req.Prepaid() == nil:
		rail.Reason = ReasonPrepaidNotAccepted
	case req.InsufficientCredit != nil:
		rail.Reason = ReasonInsufficientBalance
	case !validCharge(req.Prepaid().Amount):
		rail.Reason = ReasonNoChargeAmount
	case !known:
		rail.Reason = ReasonBalanceUnavailable
	case !balance.IsPositive():
		rail.Reason = ReasonInsufficientBalance
	default:
		rail.Available = true
	}
	return rail
}

func (e *Evaluator) cryptoRail(req *types.PaymentRequirements) Rail {
	rail := Rail{ID: RailCrypto}

	switch {
	case !e.walletConfigured():
		rail.Reason = ReasonWalletNotConfigured
	case req == nil || req.IsPrepaidOnly() || len(req.X402Options()) == 0:
		rail.Reason = ReasonNoOnChainOption
	default:
		rail.Available = true
	}
	return rail
}

// validCharge reports whether amount can be handed to the billing backend.
func validCharge(amount string) bool {
	_, err := utils.ValidateAmount(amount)
	return err == nil
}

func (e *Evaluator) cachedBalance() (decimal.Decimal, bool) {
	if e.balances == nil {
		return decimal.Zero, false
	}
	return e.balances.CachedBalance()
}

func (e *Evaluator) walletConfigured() bool {
	if e.wallet == nil {
		return false
	}
	addr, ok := e.wallet.WalletAddress()
	return ok && addr != ""
}

func autoSelect(d *Decision, preference RailID, fallback bool) RailID {
	if preference != "" && d.IsAvailable(preference) {
		return preference
	}
	if fallback {
		for _, r := range d.AvailableRails {
			if r.Available {
				return r.ID
			}
		}
	}
	return ""
}
