// Package adapters wraps the external scoring and generation services the
// workflow depends on: intent/risk classification, reply drafting, and
// independent draft verification. The verifier deliberately runs as a
// separate call with its own model so one model's blind spots do not both
// produce and approve a reply.
//
// All adapter calls honor a hard per-call deadline and report failures
// through a small taxonomy the orchestrator understands: ErrUnavailable and
// ErrTimeout are retryable; ErrRefused is not and routes the message to the
// blocked state.
package adapters

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
)

// Failure taxonomy for adapter calls.
var (
	// ErrUnavailable indicates a transport or quota failure. Retryable.
	ErrUnavailable = errors.New("adapter unavailable")
	// ErrTimeout indicates the call exceeded its configured deadline. Retryable.
	ErrTimeout = errors.New("adapter timeout")
	// ErrRefused indicates the model declined to produce a reply. Not
	// retried; treated as an automatic escalation signal.
	ErrRefused = errors.New("generation refused")
)

// Retryable reports whether the orchestrator should retry the failed call.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

// Request carries the message fields adapters need. Adapters are stateless;
// everything they see arrives through this value.
type Request struct {
	MessageID string
	Platform  string
	Content   string
	Language  string
}

// Classifier scores a message for intent and risk.
type Classifier interface {
	Classify(ctx context.Context, req Request) (classifications.Output, error)
	Model() string
}

// Drafter produces a candidate reply informed by the classification, so
// generation is intent-aware.
type Drafter interface {
	Draft(ctx context.Context, req Request, c classifications.Output) (drafts.Output, error)
	Model() string
}

// Verifier checks a draft against policy independently of the model that
// produced it.
type Verifier interface {
	Verify(ctx context.Context, req Request, d drafts.Output, c classifications.Output) (drafts.VerificationOutput, error)
	Model() string
}

// Set bundles the three adapters the orchestrator consumes. It is injected
// explicitly; there is no package-level client state.
type Set struct {
	Classifier Classifier
	Drafter    Drafter
	Verifier   Verifier
}

// Settings configures the OpenAI-backed adapter set.
type Settings struct {
	Token           string
	BaseURL         string
	ClassifierModel string
	DrafterModel    string
	VerifierModel   string
	RequestTimeout  time.Duration
	MaxTokens       int
}

// NewSet builds the adapter set from settings. Without a token it falls
// back to the deterministic static adapters so the service runs locally
// without external credentials.
func NewSet(settings Settings, logger *slog.Logger) *Set {
	if settings.Token == "" {
		logger.Warn("no adapter token configured, using static adapters")
		return &Set{
			Classifier: StaticClassifier{},
			Drafter:    StaticDrafter{},
			Verifier:   StaticVerifier{},
		}
	}

	return &Set{
		Classifier: NewOpenAIClassifier(settings, logger),
		Drafter:    NewOpenAIDrafter(settings, logger),
		Verifier:   NewOpenAIVerifier(settings, logger),
	}
}
