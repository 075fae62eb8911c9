// Package metrics records payment engine events.
package metrics

import "time"

// Event names recorded by the engine.
const (
	EventRequirementsParsed = "requirements_parsed"
	EventRequirementsFailed = "requirements_failed"
	EventPaymentSigned      = "payment_signed"
	EventSigningFailed      = "signing_failed"
	EventRailSelected       = "rail_selected"
	EventRailUnselected     = "rail_unselected"
	EventPromptApproved     = "prompt_approved"
	EventPromptDeclined     = "prompt_declined"

	OperationSign   = "sign"
	OperationCharge = "charge"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
