// Package workflow drives a message through the moderation pipeline:
// classify, draft, verify, then the triage gate deciding between autopilot
// dispatch, human approval, and block. Failed adapter calls are retried
// with exponential backoff; exhausted retries fail open to human review
// with the message marked degraded.
package workflow

import (
	"log/slog"
	"time"

	"github.com/parleyhq/parley/internal/adapters"
	"github.com/parleyhq/parley/internal/approvals"
	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/dispatch"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/internal/triage"
	"github.com/parleyhq/parley/pkg/events"

	"github.com/parleyhq/parley/internal/drafts"
)

// Settings tunes the orchestrator and its worker pool.
type Settings struct {
	// Workers is the size of the background worker pool.
	Workers int
	// PollInterval is how often idle workers look for claimable messages.
	PollInterval time.Duration
	// ClaimBatch caps how many messages one poll claims.
	ClaimBatch int
	// MaxAttempts bounds retries per message before failing open.
	MaxAttempts int
	// BackoffBase is the first retry delay; each retry doubles it.
	BackoffBase time.Duration
}

// Normalize fills unset settings with workable defaults.
func (s *Settings) Normalize() {
	if s.Workers < 1 {
		s.Workers = 4
	}
	if s.PollInterval <= 0 {
		s.PollInterval = 2 * time.Second
	}
	if s.ClaimBatch < 1 {
		s.ClaimBatch = 10
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 3
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = time.Second
	}
}

// Runtime bundles the systems the orchestrator coordinates. It is
// constructed by composition code from infrastructure and domain systems.
type Runtime struct {
	Messages        messages.System
	Classifications classifications.System
	Drafts          drafts.System
	Approvals       approvals.System
	Dispatch        dispatch.System
	Adapters        *adapters.Set
	Policy          triage.Policy
	Feed            *events.Broadcaster
	Settings        Settings
	Logger          *slog.Logger
}

// publish fans a transition out to event subscribers. Publishing never
// blocks the pipeline.
func (rt *Runtime) publish(msg *messages.Message, from, to messages.Status) {
	if rt.Feed == nil {
		return
	}

	rt.Feed.Publish(events.StateChange{
		MessageID: msg.ID,
		From:      string(from),
		To:        string(to),
		At:        time.Now(),
	})
}
