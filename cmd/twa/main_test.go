package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twaforge/internal/app"
	"twaforge/internal/config"
	"twaforge/internal/domain"
	"twaforge/internal/llm"
	"twaforge/internal/wizard"
)

type cannedModel struct {
	analyze string
	err     error
}

func (m cannedModel) GenerateJSON(_ context.Context, req llm.Request, out any) error {
	if m.err != nil {
		return m.err
	}
	body := `{"manifestXml":"<manifest/>","gradleConfig":"android {}","assetLinksJson":"[]"}`
	if req.Call == "analyze" {
		body = m.analyze
	}
	return json.Unmarshal([]byte(body), out)
}

const validPWA = `{"name":"Demo App","shortName":"Demo","themeColor":"#112233","isValid":true}`

func openTestApp(t *testing.T, model llm.Model) *app.App {
	t.Helper()
	a, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir(), Model: model})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestReplFullRun(t *testing.T) {
	a := openTestApp(t, cannedModel{analyze: validPWA})
	var copied string
	var out bytes.Buffer
	dir := filepath.Join(t.TempDir(), "out")
	script := strings.Join([]string{
		"start",
		"analyze",
		"url https://demo.app",
		"analyze",
		"set versionCode 3",
		"set orientation sideways",
		"next",
		"build",
		"copy gradle",
		"save " + dir,
		"quit",
	}, "\n")
	r := &repl{ctl: a.Controller, in: strings.NewReader(script), out: &out, copy: func(s string) error {
		copied = s
		return nil
	}}
	require.NoError(t, r.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Please enter a valid URL")
	assert.Contains(t, text, "invalid orientation")
	assert.Contains(t, text, "Your app is ready")
	assert.Equal(t, wizard.StepExport, r.state.Step)
	assert.Equal(t, 3, r.state.Config.VersionCode)
	assert.Equal(t, "android {}", copied)
	assert.FileExists(t, filepath.Join(dir, "AndroidManifest.xml"))
	assert.Len(t, a.History.List(), 1)
}

func TestReplReportsInvalidTransition(t *testing.T) {
	a := openTestApp(t, cannedModel{analyze: validPWA})
	var out bytes.Buffer
	r := &repl{ctl: a.Controller, in: strings.NewReader("build\nfly\ncopy manifest\n"), out: &out}
	require.NoError(t, r.run(context.Background()))
	text := out.String()
	assert.Contains(t, text, "invalid wizard transition")
	assert.Contains(t, text, `unknown command "fly"`)
	assert.Contains(t, text, "nothing built yet")
}

func TestBuildURLAppliesFlags(t *testing.T) {
	a := openTestApp(t, cannedModel{analyze: validPWA})
	name := "Renamed"
	s, err := buildURL(context.Background(), a.Controller, "https://demo.app", wizard.ConfigPatch{AppName: &name})
	require.NoError(t, err)
	require.NotNil(t, s.Result)
	assert.Equal(t, "Renamed", s.Config.AppName)
	assert.Equal(t, "<manifest/>", s.Result.ManifestXML)
}

func TestAnalyzeURLReportsRejection(t *testing.T) {
	a := openTestApp(t, cannedModel{analyze: `{"name":"x","shortName":"x","themeColor":"#000","isValid":false}`})
	_, err := analyzeURL(context.Background(), a.Controller, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, "Not a valid PWA", err.Error())
}

func TestAnalyzeURLMissingCredential(t *testing.T) {
	a := openTestApp(t, cannedModel{err: domain.ErrMissingCredential})
	_, err := analyzeURL(context.Background(), a.Controller, "https://demo.app")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestParsePatch(t *testing.T) {
	p, err := parsePatch("minSdk", "26")
	require.NoError(t, err)
	require.NotNil(t, p.MinSdk)
	assert.Equal(t, 26, *p.MinSdk)

	p, err = parsePatch("orientation", "Landscape")
	require.NoError(t, err)
	assert.Equal(t, domain.OrientationLandscape, *p.Orientation)

	_, err = parsePatch("versionCode", "two")
	assert.Error(t, err)
	_, err = parsePatch("color", "red")
	assert.Error(t, err)
}

func TestSaveArtifacts(t *testing.T) {
	dir := t.TempDir()
	paths, err := saveArtifacts(dir, domain.BuildResult{ManifestXML: "<m/>", GradleConfig: "g", AssetLinksJSON: "[]"})
	require.NoError(t, err)
	require.Len(t, paths, 3)
	data, err := os.ReadFile(filepath.Join(dir, "assetlinks.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteJSONOrTable(t *testing.T) {
	items := []domain.BuildResult{{ApkID: "build-1-apk", AabID: "build-1-aab", Timestamp: "2026-01-01T00:00:00Z"}}
	render := func(w io.Writer) { renderHistory(w, items) }

	var buf bytes.Buffer
	require.NoError(t, writeJSONOrTable(&buf, true, items, render))
	var decoded []domain.BuildResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, items, decoded)

	buf.Reset()
	require.NoError(t, writeJSONOrTable(&buf, false, items, render))
	assert.Contains(t, buf.String(), "APK")
	assert.Contains(t, buf.String(), "build-1-aab")
	assert.NotContains(t, buf.String(), `"apkId"`)

	buf.Reset()
	renderHistory(&buf, nil)
	assert.Equal(t, "no builds yet\n", buf.String())
}

func TestRenderConfig(t *testing.T) {
	var buf bytes.Buffer
	renderConfig(&buf, config.Default(), false)
	out := buf.String()
	assert.Contains(t, out, "model.analyze")
	assert.Contains(t, out, config.Default().Model.Analyze)
	assert.Contains(t, out, "not set")
}

func TestRenderEvents(t *testing.T) {
	var buf bytes.Buffer
	renderEvents(&buf, []domain.Event{{ID: 7, Type: "wizard.started", SessionID: "s1", PayloadJSON: "{}"}})
	assert.Contains(t, buf.String(), "wizard.started")
	assert.Contains(t, buf.String(), "s1")
}
