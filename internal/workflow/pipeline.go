package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/adapters"
	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/dispatch"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/internal/triage"
)

// Pipeline stages, recorded as retry_stage when a message parks for backoff.
const (
	StageClassify = "classify"
	StageDraft    = "draft"
	StageVerify   = "verify"
	StageDispatch = "dispatch"
)

// stageStatus maps a stage to the status a message holds while running it.
func stageStatus(stage string) (messages.Status, error) {
	switch stage {
	case StageClassify:
		return messages.StatusClassifying, nil
	case StageDraft:
		return messages.StatusDrafting, nil
	case StageVerify:
		return messages.StatusVerifying, nil
	case StageDispatch:
		return messages.StatusDispatching, nil
	default:
		return "", fmt.Errorf("unknown pipeline stage %q", stage)
	}
}

// Run executes the pipeline for a message starting at the given stage. The
// message must already hold the stage's status; claim and resume paths
// arrange that before calling. Errors other than store conflicts are fully
// absorbed into message state, so a non-nil return means another worker owns
// the message and this one must abandon it.
func (rt *Runtime) Run(ctx context.Context, msg *messages.Message, stage string) error {
	for stage != "" {
		next, err := rt.step(ctx, msg, stage)
		if err != nil {
			if errors.Is(err, messages.ErrStateConflict) {
				rt.Logger.Info("abandoning message claimed elsewhere", "message_id", msg.ID)
			}
			return err
		}
		stage = next
	}
	return nil
}

// step runs one stage and returns the next, or "" when the message reached
// a resting state.
func (rt *Runtime) step(ctx context.Context, msg *messages.Message, stage string) (string, error) {
	switch stage {
	case StageClassify:
		return rt.classify(ctx, msg)
	case StageDraft:
		return rt.draft(ctx, msg)
	case StageVerify:
		return rt.verify(ctx, msg)
	case StageDispatch:
		return rt.dispatchReply(ctx, msg)
	default:
		return "", fmt.Errorf("unknown pipeline stage %q", stage)
	}
}

func (rt *Runtime) classify(ctx context.Context, msg *messages.Message) (string, error) {
	out, err := rt.Adapters.Classifier.Classify(ctx, rt.request(msg, nil))
	if err != nil {
		return "", rt.fail(ctx, msg, StageClassify, err)
	}

	// Risk is monotonic across attempts: a retried classification may raise
	// the assessment but never lower it.
	if prev, findErr := rt.Classifications.Latest(ctx, msg.ID); findErr == nil {
		out.RiskLevel = classifications.MaxRisk(prev.RiskLevel, out.RiskLevel)
	}

	if _, err := rt.Classifications.Create(ctx, msg.ID, msg.Attempts+1, out, rt.Adapters.Classifier.Model()); err != nil {
		return "", rt.fail(ctx, msg, StageClassify, err)
	}

	if err := rt.transition(ctx, msg, messages.StatusClassifying, messages.StatusDrafting); err != nil {
		return "", err
	}

	return StageDraft, nil
}

func (rt *Runtime) draft(ctx context.Context, msg *messages.Message) (string, error) {
	c, err := rt.Classifications.Latest(ctx, msg.ID)
	if err != nil {
		return "", rt.fail(ctx, msg, StageDraft, err)
	}
	cOut := c.Output()

	out, err := rt.Adapters.Drafter.Draft(ctx, rt.request(msg, c), cOut)
	if err != nil {
		if errors.Is(err, adapters.ErrRefused) {
			rt.Logger.Warn("generation refused, blocking message",
				"message_id", msg.ID, "error", err)
			return "", rt.transition(ctx, msg, messages.StatusDrafting, messages.StatusBlocked)
		}
		return "", rt.fail(ctx, msg, StageDraft, err)
	}

	if _, err := rt.Drafts.CreateGenerated(ctx, msg.ID, out, rt.Adapters.Drafter.Model()); err != nil {
		return "", rt.fail(ctx, msg, StageDraft, err)
	}

	if err := rt.transition(ctx, msg, messages.StatusDrafting, messages.StatusVerifying); err != nil {
		return "", err
	}

	return StageVerify, nil
}

func (rt *Runtime) verify(ctx context.Context, msg *messages.Message) (string, error) {
	c, err := rt.Classifications.Latest(ctx, msg.ID)
	if err != nil {
		return "", rt.fail(ctx, msg, StageVerify, err)
	}
	cOut := c.Output()

	d, err := rt.Drafts.Active(ctx, msg.ID)
	if err != nil {
		return "", rt.fail(ctx, msg, StageVerify, err)
	}

	vOut, err := rt.Adapters.Verifier.Verify(ctx, rt.request(msg, c), d.Output(), cOut)
	if err != nil {
		return "", rt.fail(ctx, msg, StageVerify, err)
	}

	if _, err := rt.Drafts.Verify(ctx, d.ID, vOut, rt.Adapters.Verifier.Model()); err != nil {
		// A duplicate verification on resume is fine; the judgment already
		// exists and triage proceeds with it.
		if !errors.Is(err, drafts.ErrAlreadyVerified) {
			return "", rt.fail(ctx, msg, StageVerify, err)
		}
	}

	if vOut.Verdict == drafts.VerdictRewrite && vOut.RewrittenText != nil {
		if _, err := rt.Drafts.PromoteRewrite(ctx, d.ID, *vOut.RewrittenText); err != nil {
			return "", rt.fail(ctx, msg, StageVerify, err)
		}
	}

	outcome := rt.Policy.Decide(cOut, &vOut)
	rt.Logger.Info("triage decision",
		"message_id", msg.ID,
		"intent", cOut.Intent,
		"risk", cOut.RiskLevel,
		"verdict", vOut.Verdict,
		"outcome", outcome,
	)

	switch outcome {
	case triage.Autopilot:
		if err := rt.transition(ctx, msg, messages.StatusVerifying, messages.StatusDispatching); err != nil {
			return "", err
		}
		return StageDispatch, nil
	case triage.Block:
		return "", rt.transition(ctx, msg, messages.StatusVerifying, messages.StatusBlocked)
	default:
		return "", rt.transition(ctx, msg, messages.StatusVerifying, messages.StatusAwaitingApproval)
	}
}

func (rt *Runtime) dispatchReply(ctx context.Context, msg *messages.Message) (string, error) {
	d, err := rt.Drafts.Active(ctx, msg.ID)
	if err != nil {
		return "", rt.fail(ctx, msg, StageDispatch, err)
	}

	reply := dispatch.Reply{
		MessageID:   msg.ID,
		DraftID:     d.ID,
		Platform:    msg.Platform,
		ThreadID:    msg.ThreadID,
		CommentRef:  msg.CommentRef,
		RecipientID: msg.SenderID,
		Text:        d.ReplyText,
	}

	if err := rt.Dispatch.Deliver(ctx, reply); err != nil {
		return "", rt.retry(ctx, msg, StageDispatch, err)
	}

	return "", rt.transition(ctx, msg, messages.StatusDispatching, messages.StatusSent)
}

// fail handles a stage failure: retryable errors park the message with
// backoff, everything else fails open to human review with the degraded
// flag set. Refusals never reach here.
func (rt *Runtime) fail(ctx context.Context, msg *messages.Message, stage string, cause error) error {
	if adapters.Retryable(cause) {
		return rt.retry(ctx, msg, stage, cause)
	}
	return rt.failOpen(ctx, msg, stage, cause)
}

// retry parks the message in retry_pending, or fails open once attempts are
// exhausted.
func (rt *Runtime) retry(ctx context.Context, msg *messages.Message, stage string, cause error) error {
	attempts := msg.Attempts + 1
	if attempts >= rt.Settings.MaxAttempts {
		return rt.failOpen(ctx, msg, stage, cause)
	}

	from, err := stageStatus(stage)
	if err != nil {
		return err
	}

	delay := rt.Settings.BackoffBase << (attempts - 1)
	rt.Logger.Warn("stage failed, scheduling retry",
		"message_id", msg.ID,
		"stage", stage,
		"attempt", attempts,
		"delay", delay,
		"error", cause,
	)

	if err := rt.Messages.SetRetry(ctx, msg.ID, from, stage, attempts, time.Now().Add(delay)); err != nil {
		return err
	}

	rt.publish(msg, from, messages.StatusRetryPending)
	return nil
}

// failOpen routes an unprocessable message to human review rather than
// dropping it. The degraded flag tells operators the pipeline gave up.
func (rt *Runtime) failOpen(ctx context.Context, msg *messages.Message, stage string, cause error) error {
	rt.Logger.Error("stage failed terminally, failing open to review",
		"message_id", msg.ID,
		"stage", stage,
		"error", cause,
	)

	from, err := stageStatus(stage)
	if err != nil {
		return err
	}

	if err := rt.Messages.MarkDegraded(ctx, msg.ID); err != nil {
		rt.Logger.Error("mark degraded failed", "message_id", msg.ID, "error", err)
	}

	return rt.transition(ctx, msg, from, messages.StatusAwaitingApproval)
}

// transition advances the message through the store CAS and broadcasts the
// change. An ErrStateConflict return means another worker owns the message.
func (rt *Runtime) transition(ctx context.Context, msg *messages.Message, from, to messages.Status) error {
	updated, err := rt.Messages.Transition(ctx, msg.ID, from, to)
	if err != nil {
		return err
	}

	*msg = *updated
	rt.publish(msg, from, to)
	return nil
}

// request assembles the adapter request from the stored message, carrying
// the detected language once a classification exists.
func (rt *Runtime) request(msg *messages.Message, c *classifications.Classification) adapters.Request {
	req := adapters.Request{
		MessageID: msg.ID.String(),
		Platform:  msg.Platform,
		Content:   msg.Content,
	}
	if c != nil {
		req.Language = c.Language
	}
	return req
}
