package wizard

import (
	"context"
	"errors"
	"log/slog"

	"twaforge/internal/analyzer"
	"twaforge/internal/domain"
	"twaforge/internal/events"
	"twaforge/internal/generator"
	"twaforge/internal/history"
	"twaforge/internal/metrics"
)

// Controller runs wizard actions against the analyzer, the generator and the
// history cache. Wizard state lives with the caller.
type Controller struct {
	Analyzer  analyzer.Analyzer
	Generator generator.Generator
	History   *history.Cache
	Events    events.Writer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Defaults seeds new and restarted wizards.
	Defaults domain.AppConfig
	// HasCredential is consulted by Resume.
	HasCredential func() bool
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// New returns a fresh wizard.
func (c *Controller) New() State {
	return New(c.Defaults)
}

func (c *Controller) Start(ctx context.Context, sessionID string, s State) (State, error) {
	next, err := Start(s)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardStarted, sessionID, nil)
	return next, nil
}

func (c *Controller) SetURL(ctx context.Context, sessionID string, s State, url string) (State, error) {
	next, err := SetURL(s, url)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardURLSet, sessionID, events.EventPayload{"url": url})
	return next, nil
}

// Checkpoint receives the busy state before a model call starts so it can be
// published while the call runs.
type Checkpoint func(State) error

// SubmitURL analyzes the current URL and advances to the form on success.
// Analysis failures end up in the returned state, not in the error.
func (c *Controller) SubmitURL(ctx context.Context, sessionID string, s State) (State, error) {
	return c.SubmitURLWith(ctx, sessionID, s, nil)
}

// SubmitURLWith is SubmitURL with a checkpoint called once the analysis is
// about to start.
func (c *Controller) SubmitURLWith(ctx context.Context, sessionID string, s State, cp Checkpoint) (State, error) {
	next, err := BeginAnalysis(s)
	if err != nil {
		return s, err
	}
	if !next.Busy {
		return next, nil
	}
	if cp != nil {
		if err := cp(next); err != nil {
			return s, err
		}
	}
	c.record(ctx, events.WizardAnalysisStarted, sessionID, events.EventPayload{"url": next.URL})
	meta, callErr := c.Analyzer.Analyze(ctx, next.URL)
	out, err := CompleteAnalysis(next, meta, callErr)
	if err != nil {
		return s, err
	}
	switch {
	case out.Guidance:
		c.record(ctx, events.WizardCredentialMissing, sessionID, events.EventPayload{"during": string(ActionAnalyze)})
	case callErr != nil:
		c.record(ctx, events.WizardAnalysisFailed, sessionID, events.EventPayload{"url": next.URL, "error": callErr.Error()})
	case !meta.IsValid:
		c.record(ctx, events.WizardAnalysisRejected, sessionID, events.EventPayload{"url": next.URL})
	default:
		c.record(ctx, events.WizardAnalysisCompleted, sessionID, events.EventPayload{
			"url": next.URL, "name": meta.Name, "package_name": out.Config.PackageName,
		})
	}
	return out, nil
}

func (c *Controller) UpdateConfig(ctx context.Context, sessionID string, s State, patch ConfigPatch) (State, error) {
	next, err := UpdateConfig(s, patch)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardConfigUpdated, sessionID, events.EventPayload{"config": next.Config})
	return next, nil
}

func (c *Controller) Next(ctx context.Context, sessionID string, s State) (State, error) {
	next, err := Next(s)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardNext, sessionID, events.EventPayload{"step": string(next.Step)})
	return next, nil
}

func (c *Controller) Back(ctx context.Context, sessionID string, s State) (State, error) {
	next, err := Back(s)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardBack, sessionID, events.EventPayload{"from": string(s.Step), "to": string(next.Step)})
	return next, nil
}

// Build generates the project and stores the result in the history. A
// history write failure is logged and does not undo the build.
func (c *Controller) Build(ctx context.Context, sessionID string, s State) (State, error) {
	return c.BuildWith(ctx, sessionID, s, nil)
}

// BuildWith is Build with a checkpoint called in the Building step.
func (c *Controller) BuildWith(ctx context.Context, sessionID string, s State, cp Checkpoint) (State, error) {
	next, err := BeginBuild(s)
	if err != nil {
		return s, err
	}
	if cp != nil {
		if err := cp(next); err != nil {
			return s, err
		}
	}
	c.record(ctx, events.WizardBuildStarted, sessionID, events.EventPayload{"package_name": next.Config.PackageName})
	res, callErr := c.Generator.Generate(ctx, next.Config, *next.Metadata)
	out, err := CompleteBuild(next, res, callErr)
	if err != nil {
		return s, err
	}
	switch {
	case errors.Is(callErr, domain.ErrMissingCredential):
		c.Metrics.ObserveBuild("missing_credential")
		c.record(ctx, events.WizardCredentialMissing, sessionID, events.EventPayload{"during": string(ActionBuild)})
	case callErr != nil:
		c.Metrics.ObserveBuild("failure")
		c.record(ctx, events.WizardBuildFailed, sessionID, events.EventPayload{"error": callErr.Error()})
	default:
		c.Metrics.ObserveBuild("success")
		c.record(ctx, events.WizardBuildCompleted, sessionID, events.EventPayload{"apk_id": res.ApkID, "aab_id": res.AabID})
		if c.History != nil {
			list, herr := c.History.Insert(ctx, res)
			if herr != nil {
				c.logger().Error("persist build history", "apk_id", res.ApkID, "error", herr)
			} else {
				c.Metrics.SetHistorySize(len(list))
			}
		}
	}
	return out, nil
}

func (c *Controller) Restart(ctx context.Context, sessionID string, s State) (State, error) {
	next, err := Restart(s, c.Defaults)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardRestart, sessionID, nil)
	return next, nil
}

func (c *Controller) Resume(ctx context.Context, sessionID string, s State) (State, error) {
	have := c.HasCredential != nil && c.HasCredential()
	next, err := Resume(s, have)
	if err != nil {
		return s, err
	}
	c.record(ctx, events.WizardResumed, sessionID, events.EventPayload{"step": string(next.Step)})
	return next, nil
}

// HistoryList returns the current build history, newest first.
func (c *Controller) HistoryList() []domain.BuildResult {
	if c.History == nil {
		return nil
	}
	return c.History.List()
}

// SessionCreated logs the creation of a server session.
func (c *Controller) SessionCreated(ctx context.Context, sessionID, subject string) {
	payload := events.EventPayload{}
	if subject != "" {
		payload["subject"] = subject
	}
	c.record(ctx, events.SessionCreated, sessionID, payload)
}

// ClearHistory forgets every past build.
func (c *Controller) ClearHistory(ctx context.Context) error {
	if c.History == nil {
		return nil
	}
	if err := c.History.Clear(ctx); err != nil {
		return err
	}
	c.Metrics.SetHistorySize(0)
	c.record(ctx, events.HistoryCleared, "", nil)
	return nil
}

func (c *Controller) record(ctx context.Context, evtType, sessionID string, payload events.EventPayload) {
	if err := c.Events.Append(ctx, evtType, sessionID, payload); err != nil {
		c.logger().Warn("append event", "type", evtType, "error", err)
	}
}
