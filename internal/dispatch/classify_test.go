package dispatch

import (
	"errors"
	"testing"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Outcome
	}{
		{"rate limit", "Rate limit exceeded, slow down", OutcomeRetryable},
		{"quota", "You exceeded your current quota", OutcomeRetryable},
		{"connection", "connection refused", OutcomeRetryable},
		{"timeout", "context deadline exceeded: request timeout", OutcomeRetryable},
		{"invalid api key", "Invalid API key provided", OutcomeFatal},
		{"invalid key", "the key is invalid", OutcomeFatal},
		{"invalid api", "invalid api version", OutcomeFatal},
		{"malformed payload", "400: messages must not be empty", OutcomeFatal},
		{"unknown error", "something unexpected happened", OutcomeFatal},
		{"mixed case", "RATE LIMIT reached", OutcomeRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(errors.New(tt.message)); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != OutcomeSuccess {
		t.Errorf("Classify(nil) = %v, want success", got)
	}
}

func TestClassifyProviderError(t *testing.T) {
	err := &ai.ProviderError{
		Provider:   "gemini",
		StatusCode: 429,
		Message:    "rate limit exceeded: resource exhausted",
	}
	if got := Classify(err); got != OutcomeRetryable {
		t.Errorf("Classify(429) = %v, want retryable", got)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// "timeout" appears before the invalid-key words match, but rule
	// order decides: retryable rules precede fatal ones.
	err := errors.New("timeout while validating invalid api key")
	if got := Classify(err); got != OutcomeRetryable {
		t.Errorf("Classify = %v, want retryable", got)
	}
}
