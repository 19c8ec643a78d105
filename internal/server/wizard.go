package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"twaforge/internal/domain"
	"twaforge/internal/repo"
	"twaforge/internal/session"
	"twaforge/internal/view"
	"twaforge/internal/wizard"
)

type handlers struct {
	ctl      *wizard.Controller
	sessions *session.Store
	repo     repo.Repo
}

type sessionPath struct {
	ID string `path:"id" doc:"Session id"`
}

type sessionOutput struct {
	Body SessionResponse `json:"body"`
}

func (h handlers) respond(id string, st wizard.State) *sessionOutput {
	return &sessionOutput{Body: sessionResponse(id, st, h.ctl.HistoryList())}
}

type stagedAction func(context.Context, string, wizard.State, wizard.Checkpoint) (wizard.State, error)

// plain adapts an action that never waits on a model call.
func plain(act func(context.Context, string, wizard.State) (wizard.State, error)) stagedAction {
	return func(ctx context.Context, id string, st wizard.State, _ wizard.Checkpoint) (wizard.State, error) {
		return act(ctx, id, st)
	}
}

// run applies one controller action to a stored session. Long actions store
// their busy state through the checkpoint so readers see it while they run.
func (h handlers) run(ctx context.Context, id string, act stagedAction) (*sessionOutput, error) {
	st, err := h.sessions.DoStaged(ctx, id, func(st wizard.State, cp wizard.Checkpoint) (wizard.State, error) {
		return act(ctx, id, st, cp)
	})
	if err != nil {
		return nil, handleError(err)
	}
	return h.respond(id, st), nil
}

func registerSessions(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Start a new wizard session",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, _ *struct{}) (*sessionOutput, error) {
		st := h.ctl.New()
		id, err := h.sessions.Create(ctx, st)
		if err != nil {
			return nil, handleError(err)
		}
		subject := ""
		if p, ok := PrincipalFromContext(ctx); ok {
			subject = p.Subject
		}
		h.ctl.SessionCreated(ctx, id, subject)
		return h.respond(id, st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Get the current view of a session",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		st, err := h.sessions.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return h.respond(input.ID, st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{id}",
		Summary:       "Discard a session",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct{}, error) {
		if err := h.sessions.Delete(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActions(api huma.API, h handlers) {
	simple := []struct {
		action  wizard.Action
		summary string
		run     stagedAction
	}{
		{wizard.ActionStart, "Leave the welcome screen", plain(h.ctl.Start)},
		{wizard.ActionAnalyze, "Analyze the entered URL", h.ctl.SubmitURLWith},
		{wizard.ActionNext, "Continue to the compliance checklist", plain(h.ctl.Next)},
		{wizard.ActionBack, "Go back one step", plain(h.ctl.Back)},
		{wizard.ActionBuild, "Generate the Android project", h.ctl.BuildWith},
		{wizard.ActionRestart, "Start over from the welcome screen", plain(h.ctl.Restart)},
		{wizard.ActionResume, "Retry after configuring a credential", plain(h.ctl.Resume)},
	}
	for _, a := range simple {
		huma.Register(api, huma.Operation{
			OperationID: "session-" + string(a.action),
			Method:      http.MethodPost,
			Path:        "/sessions/{id}/" + string(a.action),
			Summary:     a.summary,
			Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusPreconditionRequired},
		}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
			return h.run(ctx, input.ID, a.run)
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "session-url",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/url",
		Summary:     "Set the PWA URL",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusPreconditionRequired},
	}, func(ctx context.Context, input *struct {
		ID   string     `path:"id"`
		Body URLRequest `json:"body"`
	}) (*sessionOutput, error) {
		return h.run(ctx, input.ID, plain(func(ctx context.Context, id string, st wizard.State) (wizard.State, error) {
			return h.ctl.SetURL(ctx, id, st, input.Body.URL)
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-config",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/config",
		Summary:     "Edit the app details form",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusPreconditionRequired},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body ConfigRequest `json:"body"`
	}) (*sessionOutput, error) {
		patch, err := input.Body.patch()
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		return h.run(ctx, input.ID, plain(func(ctx context.Context, id string, st wizard.State) (wizard.State, error) {
			return h.ctl.UpdateConfig(ctx, id, st, patch)
		}))
	})
}

func registerArtifacts(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "get-artifact",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/artifacts/{name}",
		Summary:     "Download a generated project file",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Name string `path:"name" enum:"manifest,gradle,assetlinks"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		st, err := h.sessions.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if st.Result == nil {
			return nil, newAPIError(http.StatusConflict, "invalid_transition", "no build result for this session", map[string]any{"step": st.Step})
		}
		a, ok := view.Find(*st.Result, input.Name)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "unknown artifact "+input.Name, nil)
		}
		ct := "text/plain; charset=utf-8"
		switch {
		case strings.HasSuffix(a.Filename, ".xml"):
			ct = "application/xml"
		case strings.HasSuffix(a.Filename, ".json"):
			ct = "application/json"
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        ct,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", a.Filename),
			Body:               []byte(a.Content),
		}, nil
	})
}

func registerHistory(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "List recent builds, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		items := h.ctl.HistoryList()
		if items == nil {
			items = []domain.BuildResult{}
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-history",
		Method:        http.MethodDelete,
		Path:          "/history",
		Summary:       "Forget all past builds",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if err := h.ctl.ClearHistory(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEvents(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent wizard events",
	}, func(ctx context.Context, input *struct {
		Type      string `query:"type"`
		SessionID string `query:"session_id"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		items, err := h.repo.LatestEvents(ctx, repo.EventFilters{
			Limit:     normalizeLimit(input.Limit),
			Type:      input.Type,
			SessionID: input.SessionID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := EventsResponse{Items: []EventResponse{}}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: resp}, nil
	})
}
