package workflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parleyhq/parley/internal/messages"
)

// Pool runs the background workers that drive asynchronous orchestration.
// Workers poll for newly received messages and for parked retries whose
// backoff window elapsed; the store's claim semantics keep each message on
// exactly one worker.
type Pool struct {
	rt *Runtime
}

// NewPool creates a worker pool over the runtime.
func NewPool(rt *Runtime) *Pool {
	rt.Settings.Normalize()
	return &Pool{rt: rt}
}

// Start runs the pool until ctx is cancelled. Cancellation is a clean stop:
// mid-step messages fail their adapter call and park in retry_pending, so a
// restarted pool resumes them.
func (p *Pool) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.rt.Settings.Workers; i++ {
		worker := i
		g.Go(func() error {
			p.work(ctx, worker)
			return nil
		})
	}

	p.rt.Logger.Info("worker pool started",
		"workers", p.rt.Settings.Workers,
		"poll_interval", p.rt.Settings.PollInterval,
	)

	return g.Wait()
}

func (p *Pool) work(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.rt.Settings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.rt.Logger.Info("worker stopping", "worker", worker)
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// drain claims one batch of new messages and one batch of due retries and
// runs them to a resting state.
func (p *Pool) drain(ctx context.Context) {
	claimed, err := p.rt.Messages.ClaimReceived(ctx, p.rt.Settings.ClaimBatch)
	if err != nil {
		p.rt.Logger.Error("claim received failed", "error", err)
	}

	for i := range claimed {
		msg := claimed[i]
		p.rt.publish(&msg, messages.StatusReceived, messages.StatusClassifying)
		if err := p.rt.Run(ctx, &msg, StageClassify); err != nil && !errors.Is(err, messages.ErrStateConflict) {
			p.rt.Logger.Error("pipeline run failed", "message_id", msg.ID, "error", err)
		}
	}

	due, err := p.rt.Messages.ListDueRetries(ctx, p.rt.Settings.ClaimBatch)
	if err != nil {
		p.rt.Logger.Error("list due retries failed", "error", err)
	}

	for i := range due {
		p.resume(ctx, &due[i])
	}
}

// resume moves a due retry back into its recorded stage. The transition is
// the claim: a competing worker loses the CAS and abandons.
func (p *Pool) resume(ctx context.Context, msg *messages.Message) {
	stage := StageClassify
	if msg.RetryStage != nil {
		stage = *msg.RetryStage
	}

	to, err := stageStatus(stage)
	if err != nil {
		p.rt.Logger.Error("unresumable retry", "message_id", msg.ID, "stage", stage)
		return
	}

	if err := p.rt.transition(ctx, msg, messages.StatusRetryPending, to); err != nil {
		return
	}

	if err := p.rt.Run(ctx, msg, stage); err != nil && !errors.Is(err, messages.ErrStateConflict) {
		p.rt.Logger.Error("retry run failed", "message_id", msg.ID, "error", err)
	}
}
