package rails

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/vitwit/x402pay/logger"
	"github.com/vitwit/x402pay/metrics"
	"github.com/vitwit/x402pay/types"
)

type State string

const (
	StateIdle               State = "idle"
	StateEvaluating         State = "evaluating"
	StateAwaitingUserChoice State = "awaitingUserChoice"
	StateApproved           State = "approved"
	StateDeclined           State = "declined"
)

func (s State) resolved() bool {
	return s == StateApproved || s == StateDeclined
}

// ErrPromptCanceled is the Outcome error of a prompt abandoned with Cancel.
var ErrPromptCanceled = errors.New("payment prompt canceled")

// Executor performs the side effect of an approved rail.
type Executor interface {
	// PayCrypto signs option of req. A nil option means the first on-chain option.
	PayCrypto(ctx context.Context, req *types.PaymentRequirements, option *types.PaymentOption) (*types.SignedPayment, error)
	PayPrepaid(ctx context.Context, amount string) (*types.Receipt, error)
}

// Outcome is the final result of a prompt.
type Outcome struct {
	State   State
	Rail    RailID
	Payment *types.SignedPayment
	Receipt *types.Receipt
	Err     error
}

// Prompt is one pending payment. It evaluates the rails once the user is asked,
// lets the user pick a rail and resolves exactly once.
type Prompt struct {
	id        string
	req       *types.PaymentRequirements
	option    *types.PaymentOption
	evaluator *Evaluator
	executor  Executor
	logger    logger.Logger
	metrics   metrics.Recorder

	mu       sync.Mutex
	state    State
	decision *Decision
	// rail the user picked, kept across re-evaluation while it stays available
	userSelected RailID

	result *resultCell
}

type PromptOption func(*Prompt)

func WithLogger(l logger.Logger) PromptOption {
	return func(p *Prompt) {
		p.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) PromptOption {
	return func(p *Prompt) {
		p.metrics = metrics.OrNoop(r)
	}
}

// WithPaymentOption pins the on-chain option signed when the crypto rail is approved.
func WithPaymentOption(option *types.PaymentOption) PromptOption {
	return func(p *Prompt) {
		p.option = option
	}
}

// NewPrompt creates an idle prompt for req.
func NewPrompt(req *types.PaymentRequirements, evaluator *Evaluator, executor Executor, opts ...PromptOption) *Prompt {
	p := &Prompt{
		id:        uuid.Must(uuid.NewV4()).String(),
		req:       req,
		evaluator: evaluator,
		executor:  executor,
		logger:    logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		state:     StateIdle,
		result:    newResultCell(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.evaluator == nil {
		p.evaluator = NewEvaluator(nil, nil)
	}
	return p
}

func (p *Prompt) ID() string {
	return p.id
}

func (p *Prompt) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Decision returns a copy of the current decision, or nil before evaluation.
func (p *Prompt) Decision() *Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decision.clone()
}

// Evaluate computes rail availability and auto-selects a rail. It may be called
// again while awaiting a choice, e.g. after the balance was refreshed.
func (p *Prompt) Evaluate(preference RailID, fallback bool) (*Decision, error) {
	p.mu.Lock()
	if p.state.resolved() {
		p.mu.Unlock()
		return nil, p.resolvedErr()
	}
	p.state = StateEvaluating
	p.mu.Unlock()

	d := p.evaluator.EvaluateRails(p.req, preference, fallback)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.resolved() {
		return nil, p.resolvedErr()
	}
	if p.userSelected != "" && d.IsAvailable(p.userSelected) {
		d.SelectedRail = p.userSelected
	}
	p.decision = d
	p.state = StateAwaitingUserChoice

	event := metrics.EventRailSelected
	if d.SelectedRail == "" {
		event = metrics.EventRailUnselected
	}
	p.metrics.IncCounter(event, map[string]string{"rail": string(d.SelectedRail)})
	p.logger.Info("payment rails evaluated", map[string]any{
		"promptId":     p.id,
		"preference":   string(preference),
		"fallback":     fallback,
		"selectedRail": string(d.SelectedRail),
		"prepaid":      railSummary(d, RailPrepaid),
		"crypto":       railSummary(d, RailCrypto),
	})

	return d.clone(), nil
}

// Select records the user's rail choice without paying.
func (p *Prompt) Select(rail RailID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkAwaiting(); err != nil {
		return err
	}
	if err := p.checkAvailable(rail); err != nil {
		return err
	}
	p.decision.SelectedRail = rail
	p.userSelected = rail
	return nil
}

// Approve pays with rail, or with the selected rail when rail is empty. Only the
// first approval of a prompt runs; later calls fail with PROMPT_RESOLVED.
func (p *Prompt) Approve(ctx context.Context, rail RailID) (*Outcome, error) {
	p.mu.Lock()
	if err := p.checkAwaiting(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if rail == "" {
		rail = p.decision.SelectedRail
	}
	if err := p.checkAvailable(rail); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.decision.SelectedRail = rail
	p.state = StateApproved
	p.mu.Unlock()

	p.logger.Info("payment prompt approved", map[string]any{
		"promptId": p.id,
		"rail":     string(rail),
	})
	p.metrics.IncCounter(metrics.EventPromptApproved, map[string]string{"rail": string(rail)})

	outcome := p.execute(ctx, rail)
	p.result.resolve(outcome)

	return &outcome, outcome.Err
}

// Decline resolves the prompt without paying.
func (p *Prompt) Decline() error {
	return p.decline(nil)
}

// Cancel abandons a pending prompt. Waiters see ErrPromptCanceled. Canceling a
// resolved prompt is a no-op.
func (p *Prompt) Cancel() {
	_ = p.decline(ErrPromptCanceled)
}

func (p *Prompt) decline(reason error) error {
	p.mu.Lock()
	if p.state.resolved() {
		p.mu.Unlock()
		return p.resolvedErr()
	}
	p.state = StateDeclined
	p.decision = nil
	p.mu.Unlock()

	p.logger.Info("payment prompt declined", map[string]any{
		"promptId": p.id,
		"canceled": reason != nil,
	})
	p.metrics.IncCounter(metrics.EventPromptDeclined, nil)

	p.result.resolve(Outcome{State: StateDeclined, Err: reason})
	return nil
}

// Wait blocks until the prompt resolves or ctx is done.
func (p *Prompt) Wait(ctx context.Context) (Outcome, error) {
	return p.result.wait(ctx)
}

// Done is closed once the prompt resolves.
func (p *Prompt) Done() <-chan struct{} {
	return p.result.done
}

// OnResolve registers fn to run once with the outcome. If the prompt already
// resolved fn runs immediately. The returned func unregisters fn.
func (p *Prompt) OnResolve(fn func(Outcome)) (unsubscribe func()) {
	return p.result.subscribe(fn)
}

func (p *Prompt) execute(ctx context.Context, rail RailID) Outcome {
	outcome := Outcome{State: StateApproved, Rail: rail}

	if p.executor == nil {
		outcome.Err = fmt.Errorf("no payment executor configured")
		return outcome
	}

	switch rail {
	case RailCrypto:
		outcome.Payment, outcome.Err = p.executor.PayCrypto(ctx, p.req, p.option)
	case RailPrepaid:
		amount := ""
		if prepaid := p.req.Prepaid(); prepaid != nil {
			amount = prepaid.Amount
		}
		outcome.Receipt, outcome.Err = p.executor.PayPrepaid(ctx, amount)
	}

	if outcome.Err != nil {
		p.logger.Error("approved payment failed", map[string]any{
			"promptId": p.id,
			"rail":     string(rail),
			"code":     types.CodeOf(outcome.Err),
			"error":    outcome.Err,
		})
	}
	return outcome
}

// checkAwaiting must be called with p.mu held.
func (p *Prompt) checkAwaiting() error {
	if p.state.resolved() {
		return p.resolvedErr()
	}
	if p.state != StateAwaitingUserChoice {
		return &types.X402Error{
			Code:    types.ErrPromptNotReady,
			Message: fmt.Sprintf("payment prompt is %s, rails not evaluated", p.state),
		}
	}
	return nil
}

// checkAvailable must be called with p.mu held and a decision present.
func (p *Prompt) checkAvailable(rail RailID) error {
	if rail == "" {
		return &types.X402Error{
			Code:    types.ErrRailUnavailable,
			Message: "no payment rail selected",
		}
	}
	r, ok := p.decision.Rail(rail)
	if !ok {
		return &types.X402Error{
			Code:    types.ErrRailUnavailable,
			Message: fmt.Sprintf("unknown payment rail %q", rail),
		}
	}
	if !r.Available {
		return &types.X402Error{
			Code:    types.ErrRailUnavailable,
			Message: fmt.Sprintf("payment rail %s is unavailable: %s", rail, r.Reason),
			Data:    r,
		}
	}
	return nil
}

func (p *Prompt) resolvedErr() error {
	return &types.X402Error{
		Code:    types.ErrPromptResolved,
		Message: fmt.Sprintf("payment prompt %s already resolved", p.id),
	}
}

func railSummary(d *Decision, id RailID) string {
	r, ok := d.Rail(id)
	switch {
	case !ok:
		return "missing"
	case r.Available:
		return "available"
	default:
		return r.Reason
	}
}

// resultCell is a single-assignment outcome with listeners. Listeners are
// dropped on resolution so nothing outlives the prompt.
type resultCell struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	outcome   Outcome
	listeners map[int]func(Outcome)
	nextID    int
}

func newResultCell() *resultCell {
	return &resultCell{
		done:      make(chan struct{}),
		listeners: make(map[int]func(Outcome)),
	}
}

func (c *resultCell) resolve(o Outcome) bool {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return false
	}
	c.resolved = true
	c.outcome = o
	listeners := c.listeners
	c.listeners = nil
	close(c.done)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(o)
	}
	return true
}

func (c *resultCell) subscribe(fn func(Outcome)) func() {
	c.mu.Lock()
	if c.resolved {
		o := c.outcome
		c.mu.Unlock()
		fn(o)
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *resultCell) wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
