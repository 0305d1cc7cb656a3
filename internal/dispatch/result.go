package dispatch

import (
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
)

// Outcome tags a Result. Expected failures are outcomes, never Go
// errors: Invoke has no error return.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeThrottled   Outcome = "throttled"
	OutcomeUnavailable Outcome = "provider_unavailable"
	OutcomeRetryable   Outcome = "retryable"
	OutcomeFatal       Outcome = "fatal"
)

// Result is the outcome of one Invoke. Exactly one payload field is
// set on success: Text for generation, analysis and transcription,
// Image for image generation.
type Result struct {
	Outcome   Outcome
	Text      string
	Image     *ai.Image
	Reason    string
	Binding   ai.Binding
	RequestID string
	Duration  time.Duration
}

func (r Result) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

func (r Result) IsThrottled() bool {
	return r.Outcome == OutcomeThrottled
}

func (r Result) IsUnavailable() bool {
	return r.Outcome == OutcomeUnavailable
}

// IsRetryable reports whether the caller may retry with backoff.
// The dispatcher itself never retries.
func (r Result) IsRetryable() bool {
	return r.Outcome == OutcomeRetryable
}

func (r Result) IsFatal() bool {
	return r.Outcome == OutcomeFatal
}
