package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twaforge/internal/config"
	"twaforge/internal/llm"
	"twaforge/internal/wizard"
)

type cannedModel map[string]string

func (m cannedModel) GenerateJSON(_ context.Context, req llm.Request, out any) error {
	return json.Unmarshal([]byte(m[req.Call]), out)
}

var canned = cannedModel{
	"analyze":  `{"name":"Demo App","shortName":"Demo","themeColor":"#112233","isValid":true}`,
	"generate": `{"manifestXml":"<manifest/>","gradleConfig":"android {}","assetLinksJson":"[]"}`,
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TWA_API_KEY", "API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestOpenRunsWizardAndKeepsHistory(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	a, err := Open(ctx, Options{Workspace: ws, Model: canned})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(ws, ".twaforge", "twaforge.db"))
	assert.Equal(t, config.Default().Model.Analyze, a.Config.Model.Analyze)

	ctl := a.Controller
	s := ctl.New()
	steps := []func(wizard.State) (wizard.State, error){
		func(s wizard.State) (wizard.State, error) { return ctl.Start(ctx, "", s) },
		func(s wizard.State) (wizard.State, error) { return ctl.SetURL(ctx, "", s, "https://demo.app") },
		func(s wizard.State) (wizard.State, error) { return ctl.SubmitURL(ctx, "", s) },
		func(s wizard.State) (wizard.State, error) { return ctl.Next(ctx, "", s) },
		func(s wizard.State) (wizard.State, error) { return ctl.Build(ctx, "", s) },
	}
	for _, step := range steps {
		s, err = step(s)
		require.NoError(t, err)
	}
	assert.Equal(t, wizard.StepExport, s.Step)
	require.NoError(t, a.Close())

	again, err := Open(ctx, Options{Workspace: ws, Model: canned})
	require.NoError(t, err)
	defer again.Close()
	hist := again.History.List()
	require.Len(t, hist, 1)
	assert.Equal(t, "<manifest/>", hist[0].ManifestXML)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(ws), []byte("defaults:\n  orientation: sideways\n"), 0o644))
	_, err := Open(context.Background(), Options{Workspace: ws, Model: canned})
	require.Error(t, err)
}

func TestCredentialSourceOrder(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()
	override := ""
	cred := CredentialSource(ws, func() string { return override })
	assert.Equal(t, "", cred())

	require.NoError(t, SetEnvValue(ws, "GEMINI_API_KEY", "from-dotenv"))
	assert.Equal(t, "from-dotenv", cred())

	t.Setenv("API_KEY", "from-env")
	assert.Equal(t, "from-env", cred())

	override = "from-flag"
	assert.Equal(t, "from-flag", cred())
}

func TestSetEnvValueKeepsOtherKeys(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, EnvFile), []byte("OTHER=1\n"), 0o600))
	require.NoError(t, SetEnvValue(ws, "TWA_API_KEY", "k"))
	data, err := os.ReadFile(filepath.Join(ws, EnvFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `OTHER=1`)
	assert.Contains(t, string(data), `TWA_API_KEY="k"`)
}

func TestHasCredentialFollowsDotenv(t *testing.T) {
	clearCredentialEnv(t)
	ws := t.TempDir()
	a, err := Open(context.Background(), Options{Workspace: ws, Model: canned})
	require.NoError(t, err)
	defer a.Close()
	assert.False(t, a.Controller.HasCredential())
	require.NoError(t, SetEnvValue(ws, "TWA_API_KEY", "k"))
	assert.True(t, a.Controller.HasCredential())
}
