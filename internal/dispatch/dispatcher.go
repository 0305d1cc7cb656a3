// Package dispatch is the single entry point between the Telegram
// surface and the AI backends. One Invoke call admits the user through
// the rate limiter, resolves a provider for the requested capability,
// threads conversation history into text generation and classifies
// provider failures. Expected failures come back as Result outcomes;
// Invoke itself never returns a Go error.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/history"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/ratelimit"
)

// Request is one inbound user action.
type Request struct {
	User       int64
	Capability ai.Capability
	// Provider is the user's preferred provider id; empty means
	// first available in priority order.
	Provider string
	Prompt   string
	// Payload carries image bytes for analysis or audio bytes for
	// transcription. Unused for text and image generation.
	Payload []byte
	// Format is the audio container (ogg, mp3), transcription only.
	Format string
}

type Dispatcher struct {
	limiter  *ratelimit.Limiter
	history  *history.Buffer
	registry *ai.ProviderRegistry
	timeout  time.Duration
	logger   logger.Logger
	clock    func() time.Time
}

func New(
	limiter *ratelimit.Limiter,
	buffer *history.Buffer,
	registry *ai.ProviderRegistry,
	timeout time.Duration,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		limiter:  limiter,
		history:  buffer,
		registry: registry,
		timeout:  timeout,
		logger:   log,
		clock:    time.Now,
	}
}

// Invoke runs one request end to end: admit, resolve, call, classify.
// At most one provider call happens per Invoke; retry on a retryable
// outcome is the caller's decision. Conversation history is read and
// written for text generation only, and a failed exchange never
// touches it.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) Result {
	switch req.Capability {
	case ai.TextGeneration, ai.ImageGeneration, ai.ImageAnalysis, ai.AudioTranscription:
	default:
		// Capability values come from our own routing code, never
		// from user input. Reaching here is a bug.
		panic(fmt.Sprintf("dispatch: unknown capability %q", req.Capability))
	}

	requestID := uuid.NewString()
	log := d.logger.WithFields(logger.Fields{
		"request_id": requestID,
		"user_id":    req.User,
		"capability": req.Capability.String(),
	})

	if !d.limiter.Admit(req.User, d.clock()) {
		log.WithField("count", d.limiter.Count(req.User, d.clock())).
			Info("Request throttled")
		return Result{Outcome: OutcomeThrottled, RequestID: requestID}
	}

	binding, provider, err := d.registry.Resolve(req.Capability, req.Provider)
	if err != nil {
		log.WithField("preferred", req.Provider).Warn("No provider available")
		return Result{Outcome: OutcomeUnavailable, RequestID: requestID}
	}
	log = log.WithField("provider", binding.Provider)

	// Snapshot before the current turn is recorded: the history fed
	// to the provider must reflect the conversation as it stood
	// before this prompt.
	var turns []ai.Turn
	if req.Capability == ai.TextGeneration {
		turns = d.history.Snapshot(req.User)
	}

	start := d.clock()
	text, image, callErr := d.call(ctx, provider, req, turns)
	duration := time.Since(start)

	if callErr != nil {
		outcome := Classify(callErr)
		log.WithError(callErr).WithFields(logger.Fields{
			"outcome":  string(outcome),
			"duration": duration.String(),
		}).Error("Provider call failed")
		return Result{
			Outcome:   outcome,
			Reason:    callErr.Error(),
			Binding:   binding,
			RequestID: requestID,
			Duration:  duration,
		}
	}

	if req.Capability == ai.TextGeneration {
		now := d.clock()
		d.history.Append(req.User, ai.Turn{
			Role:      ai.RoleUser,
			Content:   req.Prompt,
			Timestamp: now.Unix(),
		})
		d.history.Append(req.User, ai.Turn{
			Role:      ai.RoleAssistant,
			Content:   text,
			Timestamp: now.Unix(),
		})
	}

	log.WithField("duration", duration.String()).Info("Request dispatched")
	return Result{
		Outcome:   OutcomeSuccess,
		Text:      text,
		Image:     image,
		Binding:   binding,
		RequestID: requestID,
		Duration:  duration,
	}
}

// call performs the single provider invocation. No locks are held
// here; this is the only segment of Invoke that blocks on the
// network.
func (d *Dispatcher) call(ctx context.Context, provider ai.Provider, req Request, turns []ai.Turn) (string, *ai.Image, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	switch req.Capability {
	case ai.TextGeneration:
		text, err := provider.Generate(ctx, req.Prompt, turns)
		return text, nil, err
	case ai.ImageGeneration:
		image, err := provider.GenerateImage(ctx, req.Prompt)
		return "", image, err
	case ai.ImageAnalysis:
		text, err := provider.AnalyzeImage(ctx, req.Payload, req.Prompt)
		return text, nil, err
	case ai.AudioTranscription:
		text, err := provider.Transcribe(ctx, req.Payload, req.Format)
		return text, nil, err
	}
	panic(fmt.Sprintf("dispatch: unknown capability %q", req.Capability))
}

// ClearHistory drops the user's conversation window (session reset).
func (d *Dispatcher) ClearHistory(user int64) {
	d.history.Clear(user)
}

// HistoryLen reports the user's current window length, for the /clear
// acknowledgement.
func (d *Dispatcher) HistoryLen(user int64) int {
	return d.history.Len(user)
}

// RemainingQuota reports how many requests the user has left in the
// current window.
func (d *Dispatcher) RemainingQuota(user int64) int {
	remaining := d.limiter.Max() - d.limiter.Count(user, d.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}
