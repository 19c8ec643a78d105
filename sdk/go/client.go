package twasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal twaforge HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. Model calls can be slow, so the
// timeout is generous.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  3 * time.Minute,
	}
}

type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type AppConfig struct {
	AppName     string `json:"appName"`
	PackageName string `json:"packageName"`
	VersionName string `json:"versionName"`
	VersionCode int    `json:"versionCode"`
	Orientation string `json:"orientation"`
	MinSdk      int    `json:"minSdk"`
	IconURL     string `json:"iconUrl"`
	SplashColor string `json:"splashColor"`
}

type BuildResult struct {
	ApkID          string `json:"apkId"`
	AabID          string `json:"aabId"`
	ManifestXML    string `json:"manifestXml"`
	GradleConfig   string `json:"gradleConfig"`
	AssetLinksJSON string `json:"assetLinksJson"`
	Timestamp      string `json:"timestamp"`
}

// State is the wizard state (partial).
type State struct {
	Step     string       `json:"step"`
	URL      string       `json:"url"`
	Config   AppConfig    `json:"config"`
	Result   *BuildResult `json:"result,omitempty"`
	Notice   *Notice      `json:"notice,omitempty"`
	Guidance bool         `json:"guidance"`
	Busy     bool         `json:"busy"`
}

type Action struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// View is what a front end renders (partial).
type View struct {
	Step     string  `json:"step"`
	Title    string  `json:"title"`
	Banner   *Notice `json:"banner,omitempty"`
	Busy     bool    `json:"busy"`
	Guidance *struct {
		Title   string   `json:"title"`
		EnvVars []string `json:"env_vars"`
	} `json:"guidance,omitempty"`
	Actions []Action `json:"actions"`
}

type Session struct {
	ID    string `json:"id"`
	View  View   `json:"view"`
	State State  `json:"state"`
}

// Event represents a log entry.
type Event struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Code extracts the error code from the response envelope.
func (e *APIError) Code() string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal([]byte(e.Body), &env)
	return env.Error.Code
}

// NewSession starts a wizard session.
func (c *Client) NewSession(ctx context.Context) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.path("sessions"), nil, &resp)
	return resp, err
}

func (c *Client) Session(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, c.sessionPath(id, ""), nil, &resp)
	return resp, err
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(id, ""), nil, nil)
}

func (c *Client) Start(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "start", nil)
}

func (c *Client) SetURL(ctx context.Context, id, pwaURL string) (Session, error) {
	return c.action(ctx, id, "url", map[string]any{"url": pwaURL})
}

// Analyze runs the analyzer on the URL already set on the session.
func (c *Client) Analyze(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "analyze", nil)
}

// UpdateConfig sends only the given form fields, keyed by their JSON names.
func (c *Client) UpdateConfig(ctx context.Context, id string, fields map[string]any) (Session, error) {
	return c.action(ctx, id, "config", fields)
}

func (c *Client) Next(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "next", nil)
}

func (c *Client) Back(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "back", nil)
}

func (c *Client) Build(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "build", nil)
}

func (c *Client) Restart(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "restart", nil)
}

func (c *Client) Resume(ctx context.Context, id string) (Session, error) {
	return c.action(ctx, id, "resume", nil)
}

// Artifact downloads one generated file: manifest, gradle or assetlinks.
func (c *Client) Artifact(ctx context.Context, id, name string) (string, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, c.sessionPath(id, "artifacts/"+url.PathEscape(name)), nil, &buf)
	return buf.String(), err
}

// History returns recent builds, newest first.
func (c *Client) History(ctx context.Context) ([]BuildResult, error) {
	var resp struct {
		Items []BuildResult `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.path("history"), nil, &resp)
	return resp.Items, err
}

// Events returns recent events, optionally for one session.
func (c *Client) Events(ctx context.Context, limit int, sessionID string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	endpoint := c.path("events")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) action(ctx context.Context, id, name string, body any) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, name), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	switch o := out.(type) {
	case nil:
		return nil
	case io.Writer:
		_, err := io.Copy(o, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) path(p string) string {
	return strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) sessionPath(id, action string) string {
	p := c.path("sessions/" + url.PathEscape(id))
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
