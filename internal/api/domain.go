package api

import (
	"github.com/parleyhq/parley/internal/adapters"
	"github.com/parleyhq/parley/internal/approvals"
	"github.com/parleyhq/parley/internal/classifications"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/dispatch"
	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/internal/triage"
	"github.com/parleyhq/parley/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Messages        messages.System
	Classifications classifications.System
	Drafts          drafts.System
	Dispatch        dispatch.System
	Approvals       approvals.System
	Workflow        *workflow.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config
	db := runtime.Database.Connection()

	messagesSystem := messages.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		cfg.API.MaxContentSizeBytes(),
	)

	classificationsSystem := classifications.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	draftsSystem := drafts.New(db, runtime.Logger)

	dispatchSystem := dispatch.New(
		db,
		newSender(cfg, runtime),
		runtime.Logger,
	)

	approvalsSystem := approvals.New(
		db,
		messagesSystem,
		draftsSystem,
		dispatchSystem,
		runtime.Logger,
	)

	adapterSet := adapters.NewSet(adapters.Settings{
		Token:           cfg.Adapters.Token,
		BaseURL:         cfg.Adapters.BaseURL,
		ClassifierModel: cfg.Adapters.ClassifierModel,
		DrafterModel:    cfg.Adapters.DrafterModel,
		VerifierModel:   cfg.Adapters.VerifierModel,
		RequestTimeout:  cfg.Adapters.RequestTimeoutDuration(),
		MaxTokens:       cfg.Adapters.MaxTokens,
	}, runtime.Logger)

	workflowRuntime := &workflow.Runtime{
		Messages:        messagesSystem,
		Classifications: classificationsSystem,
		Drafts:          draftsSystem,
		Approvals:       approvalsSystem,
		Dispatch:        dispatchSystem,
		Adapters:        adapterSet,
		Policy:          newPolicy(cfg),
		Feed:            runtime.Feed,
		Settings: workflow.Settings{
			Workers:      cfg.Engine.Workers,
			PollInterval: cfg.Engine.PollIntervalDuration(),
			ClaimBatch:   cfg.Engine.ClaimBatch,
			MaxAttempts:  cfg.Engine.MaxAttempts,
			BackoffBase:  cfg.Engine.BackoffBaseDuration(),
		},
		Logger: runtime.Logger.With("system", "workflow"),
	}

	return &Domain{
		Messages:        messagesSystem,
		Classifications: classificationsSystem,
		Drafts:          draftsSystem,
		Dispatch:        dispatchSystem,
		Approvals:       approvalsSystem,
		Workflow:        workflowRuntime,
	}
}

// newSender selects the platform gateway transport. Without an endpoint
// replies are logged rather than delivered, which keeps local development
// free of platform credentials.
func newSender(cfg *config.Config, runtime *Runtime) dispatch.Sender {
	if cfg.Engine.DispatchEndpoint == "" {
		return &dispatch.LogSender{Logger: runtime.Logger.With("system", "dispatch")}
	}

	return dispatch.NewHTTPSender(
		cfg.Engine.DispatchEndpoint,
		cfg.Engine.DispatchToken,
		cfg.Adapters.RequestTimeoutDuration(),
		runtime.Logger,
	)
}

// newPolicy builds the triage policy from configuration, falling back to
// package defaults for unset values.
func newPolicy(cfg *config.Config) triage.Policy {
	policy := triage.DefaultPolicy()

	if cfg.Engine.ConfidenceThreshold > 0 {
		policy.ConfidenceThreshold = cfg.Engine.ConfidenceThreshold
	}
	if len(cfg.Engine.SafeIntents) > 0 {
		intents := make([]classifications.Intent, 0, len(cfg.Engine.SafeIntents))
		for _, intent := range cfg.Engine.SafeIntents {
			intents = append(intents, classifications.Intent(intent))
		}
		policy.SafeIntents = intents
	}
	if len(cfg.Engine.CriticalFlags) > 0 {
		policy.CriticalFlags = cfg.Engine.CriticalFlags
	}
	policy.ForceHITL = cfg.Engine.ForceHITL

	return policy
}
