package server

import (
	"encoding/json"

	"twaforge/internal/domain"
	"twaforge/internal/view"
	"twaforge/internal/wizard"
)

// Request payloads

type URLRequest struct {
	URL string `json:"url" doc:"Address of the PWA"`
}

// ConfigRequest edits the app details form. Omitted fields are unchanged.
type ConfigRequest struct {
	AppName     *string `json:"appName,omitempty"`
	PackageName *string `json:"packageName,omitempty"`
	VersionName *string `json:"versionName,omitempty"`
	VersionCode *int    `json:"versionCode,omitempty"`
	Orientation *string `json:"orientation,omitempty" enum:"portrait,landscape,any"`
	MinSdk      *int    `json:"minSdk,omitempty"`
	IconURL     *string `json:"iconUrl,omitempty"`
	SplashColor *string `json:"splashColor,omitempty"`
}

func (r ConfigRequest) patch() (wizard.ConfigPatch, error) {
	p := wizard.ConfigPatch{
		AppName:     r.AppName,
		PackageName: r.PackageName,
		VersionName: r.VersionName,
		VersionCode: r.VersionCode,
		MinSdk:      r.MinSdk,
		IconURL:     r.IconURL,
		SplashColor: r.SplashColor,
	}
	if r.Orientation != nil {
		o, err := domain.ParseOrientation(*r.Orientation)
		if err != nil {
			return wizard.ConfigPatch{}, err
		}
		p.Orientation = &o
	}
	return p, nil
}

// Response payloads

type SessionResponse struct {
	ID    string       `json:"id"`
	View  view.View    `json:"view"`
	State wizard.State `json:"state"`
}

type HistoryResponse struct {
	Items []domain.BuildResult `json:"items"`
}

type EventResponse struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts" format:"date-time"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

type EventsResponse struct {
	Items []EventResponse `json:"items"`
}

// Conversion helpers

func sessionResponse(id string, st wizard.State, hist []domain.BuildResult) SessionResponse {
	return SessionResponse{ID: id, View: view.Render(st, hist), State: st}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		TS:        e.TS,
		Type:      e.Type,
		SessionID: e.SessionID,
		Payload:   decodeJSONMap(e.PayloadJSON),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}
