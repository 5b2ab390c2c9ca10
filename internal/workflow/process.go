package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/approvals"
	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/internal/triage"
)

// ProcessedMessage is the synchronous-processing projection: the message
// alongside the latest pipeline artifacts and the derived gate flags.
// RequiresHITL is never stored; it is recomputed from status on every read.
type ProcessedMessage struct {
	Message        *messages.Message               `json:"message"`
	Classification *classifications.Classification `json:"classification"`
	Draft          *drafts.Draft                   `json:"draft"`
	Verification   *drafts.Verification            `json:"verification"`
	RequiresHITL   bool                            `json:"requires_hitl"`
	CanAutopilot   bool                            `json:"can_autopilot"`
}

// MessageDetail is the full read model for one message: every draft the
// message accumulated, the decision history, and the latest artifacts.
type MessageDetail struct {
	Message        *messages.Message               `json:"message"`
	Classification *classifications.Classification `json:"classification"`
	ActiveDraft    *drafts.Draft                   `json:"active_draft"`
	Drafts         []drafts.Draft                  `json:"drafts"`
	Verification   *drafts.Verification            `json:"verification"`
	Approvals      []approvals.Approval            `json:"approvals"`
	RequiresHITL   bool                            `json:"requires_hitl"`
}

// Process submits a message and drives the pipeline inline, returning the
// full projection once the message reaches a resting state. The worker pool
// is bypassed; everything else behaves identically to asynchronous intake.
func (rt *Runtime) Process(ctx context.Context, cmd messages.SubmitCommand) (*ProcessedMessage, error) {
	msg, err := rt.Messages.Submit(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if err := rt.transition(ctx, msg, messages.StatusReceived, messages.StatusClassifying); err != nil {
		return nil, err
	}

	if err := rt.Run(ctx, msg, StageClassify); err != nil && !errors.Is(err, messages.ErrStateConflict) {
		return nil, err
	}

	return rt.Projection(ctx, msg.ID)
}

// Projection assembles the processed view of a message from its stored
// artifacts.
func (rt *Runtime) Projection(ctx context.Context, id uuid.UUID) (*ProcessedMessage, error) {
	msg, err := rt.Messages.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &ProcessedMessage{
		Message:      msg,
		RequiresHITL: msg.PendingApproval(),
	}

	c, err := rt.Classifications.Latest(ctx, id)
	if err != nil && !errors.Is(err, classifications.ErrNotFound) {
		return nil, err
	}
	p.Classification = c

	d, err := rt.Drafts.Active(ctx, id)
	if err != nil && !errors.Is(err, drafts.ErrNoActiveDraft) {
		return nil, err
	}
	p.Draft = d

	var vOut *drafts.VerificationOutput
	if d != nil && d.Source == drafts.SourceGenerated {
		v, err := rt.Drafts.VerificationFor(ctx, d.ID)
		if err != nil && !errors.Is(err, drafts.ErrNotFound) {
			return nil, err
		}
		if v != nil {
			p.Verification = v
			out := drafts.VerificationOutput{
				Verdict:       v.Verdict,
				Issues:        v.Issues,
				RewrittenText: v.RewrittenText,
				Reasoning:     v.Reasoning,
			}
			vOut = &out
		}
	}

	if c != nil {
		p.CanAutopilot = rt.Policy.Decide(c.Output(), vOut) == triage.Autopilot
	}

	return p, nil
}

// Detail assembles the full message history view backing the inbox detail
// endpoint.
func (rt *Runtime) Detail(ctx context.Context, id uuid.UUID) (*MessageDetail, error) {
	p, err := rt.Projection(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := rt.Drafts.History(ctx, id)
	if err != nil {
		return nil, err
	}

	decisions, err := rt.Approvals.ForMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	return &MessageDetail{
		Message:        p.Message,
		Classification: p.Classification,
		ActiveDraft:    p.Draft,
		Drafts:         history,
		Verification:   p.Verification,
		Approvals:      decisions,
		RequiresHITL:   p.RequiresHITL,
	}, nil
}
