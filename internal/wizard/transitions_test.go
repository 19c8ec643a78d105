package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twaforge/internal/domain"
)

func demoMeta() domain.PwaMetadata {
	return domain.PwaMetadata{
		URL:        "https://demo.app",
		Name:       "Demo App",
		ShortName:  "Demo",
		ThemeColor: "#112233",
		Icons:      []domain.Icon{{Src: "https://demo.app/icon.png", Sizes: "512x512", Type: "image/png"}},
		IsValid:    true,
	}
}

// atConfig walks a fresh wizard to the AppConfig step.
func atConfig(t *testing.T) State {
	t.Helper()
	s, err := Start(New(domain.DefaultAppConfig()))
	require.NoError(t, err)
	s, err = SetURL(s, "https://demo.app")
	require.NoError(t, err)
	s, err = BeginAnalysis(s)
	require.NoError(t, err)
	require.True(t, s.Busy)
	s, err = CompleteAnalysis(s, demoMeta(), nil)
	require.NoError(t, err)
	require.Equal(t, StepAppConfig, s.Step)
	return s
}

func TestStartFromWelcomeOnly(t *testing.T) {
	s := New(domain.DefaultAppConfig())
	next, err := Start(s)
	require.NoError(t, err)
	assert.Equal(t, StepURLInput, next.Step)

	_, err = Start(next)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEmptyURLIsValidationNotice(t *testing.T) {
	s, _ := Start(New(domain.DefaultAppConfig()))
	s, _ = SetURL(s, "   ")
	next, err := BeginAnalysis(s)
	require.NoError(t, err)
	assert.False(t, next.Busy)
	assert.Equal(t, StepURLInput, next.Step)
	require.NotNil(t, next.Notice)
	assert.Equal(t, NoticeValidation, next.Notice.Kind)
	assert.Equal(t, "Please enter a valid URL", next.Notice.Message)

	next, err = SetURL(next, "https://demo.app")
	require.NoError(t, err)
	assert.Nil(t, next.Notice)
}

func TestAnalysisSuccessSeedsConfig(t *testing.T) {
	s := atConfig(t)
	require.NotNil(t, s.Metadata)
	assert.Equal(t, "Demo App", s.Config.AppName)
	assert.Equal(t, "com.pwa.demo", s.Config.PackageName)
	assert.Equal(t, "https://demo.app/icon.png", s.Config.IconURL)
	assert.Equal(t, "#112233", s.Config.SplashColor)
	assert.Equal(t, "1.0.0", s.Config.VersionName)
	assert.Equal(t, 1, s.Config.VersionCode)
	assert.Equal(t, domain.OrientationPortrait, s.Config.Orientation)
	assert.False(t, s.Busy)
}

func TestAnalysisOutcomesStayOnURLInput(t *testing.T) {
	s, _ := Start(New(domain.DefaultAppConfig()))
	s, _ = SetURL(s, "https://example.com")
	busy, err := BeginAnalysis(s)
	require.NoError(t, err)

	t.Run("rejected", func(t *testing.T) {
		meta := demoMeta()
		meta.IsValid = false
		out, err := CompleteAnalysis(busy, meta, nil)
		require.NoError(t, err)
		assert.Equal(t, StepURLInput, out.Step)
		assert.Equal(t, NoticeRejected, out.Notice.Kind)
		assert.Nil(t, out.Metadata)
		assert.False(t, out.Busy)
		assert.True(t, Allowed(out, ActionAnalyze))
	})
	t.Run("service", func(t *testing.T) {
		out, err := CompleteAnalysis(busy, domain.PwaMetadata{}, domain.NewServiceError("analyze", errors.New("bad json")))
		require.NoError(t, err)
		assert.Equal(t, StepURLInput, out.Step)
		assert.Equal(t, NoticeService, out.Notice.Kind)
		assert.Equal(t, "Something went wrong", out.Notice.Message)
	})
	t.Run("credential", func(t *testing.T) {
		out, err := CompleteAnalysis(busy, domain.PwaMetadata{}, domain.ErrMissingCredential)
		require.NoError(t, err)
		assert.True(t, out.Guidance)
		assert.Nil(t, out.Notice)
		_, err = SetURL(out, "https://other.app")
		assert.ErrorIs(t, err, ErrCredentialRequired)
		_, err = BeginAnalysis(out)
		assert.ErrorIs(t, err, ErrCredentialRequired)
	})
}

func TestBusyRefusesActions(t *testing.T) {
	s, _ := Start(New(domain.DefaultAppConfig()))
	s, _ = SetURL(s, "https://demo.app")
	busy, _ := BeginAnalysis(s)
	_, err := BeginAnalysis(busy)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = SetURL(busy, "x")
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, Allowed(busy, ActionAnalyze))
}

func TestBackPreservesEnteredData(t *testing.T) {
	s := atConfig(t)
	name := "Renamed"
	s, err := UpdateConfig(s, ConfigPatch{AppName: &name})
	require.NoError(t, err)

	back, err := Back(s)
	require.NoError(t, err)
	assert.Equal(t, StepURLInput, back.Step)
	assert.Equal(t, "https://demo.app", back.URL)
	assert.NotNil(t, back.Metadata)
	assert.Equal(t, "Renamed", back.Config.AppName)

	s, _ = Next(s)
	back, err = Back(s)
	require.NoError(t, err)
	assert.Equal(t, StepAppConfig, back.Step)
	assert.Equal(t, "Renamed", back.Config.AppName)

	_, err = Back(New(domain.DefaultAppConfig()))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateConfigAcceptsAnyValues(t *testing.T) {
	s := atConfig(t)
	code := -3
	sdk := 1
	o := domain.OrientationAny
	s, err := UpdateConfig(s, ConfigPatch{VersionCode: &code, MinSdk: &sdk, Orientation: &o})
	require.NoError(t, err)
	assert.Equal(t, -3, s.Config.VersionCode)
	assert.Equal(t, 1, s.Config.MinSdk)
	assert.Equal(t, domain.OrientationAny, s.Config.Orientation)
	assert.Equal(t, "Demo App", s.Config.AppName)

	next, err := Next(s)
	require.NoError(t, err)
	assert.Equal(t, StepCompliance, next.Step)
}

func TestBuildOutcomes(t *testing.T) {
	s := atConfig(t)
	s, _ = Next(s)
	building, err := BeginBuild(s)
	require.NoError(t, err)
	assert.Equal(t, StepBuilding, building.Step)
	assert.True(t, building.Busy)
	_, err = Back(building)
	assert.ErrorIs(t, err, ErrBusy)

	res := domain.BuildResult{ApkID: "build-1-apk", AabID: "build-1-aab"}
	done, err := CompleteBuild(building, res, nil)
	require.NoError(t, err)
	assert.Equal(t, StepExport, done.Step)
	assert.Equal(t, &res, done.Result)

	failed, err := CompleteBuild(building, domain.BuildResult{}, errors.New("timeout"))
	require.NoError(t, err)
	assert.Equal(t, StepAppConfig, failed.Step)
	assert.Equal(t, NoticeBuild, failed.Notice.Kind)
	assert.Equal(t, "Build process failed", failed.Notice.Message)
	assert.Equal(t, s.Config, failed.Config)
	assert.Nil(t, failed.Result)

	guided, err := CompleteBuild(building, domain.BuildResult{}, domain.ErrMissingCredential)
	require.NoError(t, err)
	assert.Equal(t, StepAppConfig, guided.Step)
	assert.True(t, guided.Guidance)
}

func TestBuildRequiresMetadata(t *testing.T) {
	s := State{Step: StepCompliance, Config: domain.DefaultAppConfig()}
	_, err := BeginBuild(s)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, Allowed(s, ActionBuild))
}

func TestRestartResetsWizard(t *testing.T) {
	s := atConfig(t)
	s, _ = Next(s)
	s, _ = BeginBuild(s)
	s, _ = CompleteBuild(s, domain.BuildResult{ApkID: "a"}, nil)

	defaults := domain.DefaultAppConfig()
	out, err := Restart(s, defaults)
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, out.Step)
	assert.Empty(t, out.URL)
	assert.Nil(t, out.Metadata)
	assert.Nil(t, out.Result)
	assert.Equal(t, defaults, out.Config)

	_, err = Restart(out, defaults)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResume(t *testing.T) {
	s := State{Step: StepURLInput, URL: "https://demo.app", Guidance: true, Config: domain.DefaultAppConfig()}
	_, err := Resume(s, false)
	assert.ErrorIs(t, err, ErrCredentialRequired)

	out, err := Resume(s, true)
	require.NoError(t, err)
	assert.False(t, out.Guidance)
	assert.Equal(t, StepURLInput, out.Step)
	assert.Equal(t, "https://demo.app", out.URL)

	_, err = Resume(out, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	s := New(domain.DefaultAppConfig())
	out, err := Next(s)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, s, out)
}

func TestAllowedMatchesTransitions(t *testing.T) {
	s := atConfig(t)
	for _, a := range []Action{ActionStart, ActionSetURL, ActionAnalyze, ActionBuild, ActionRestart, ActionResume} {
		assert.False(t, Allowed(s, a), a)
	}
	for _, a := range []Action{ActionConfig, ActionNext, ActionBack} {
		assert.True(t, Allowed(s, a), a)
	}
}

func TestAbandon(t *testing.T) {
	s := State{Step: StepBuilding, Busy: true}
	assert.Equal(t, State{Step: StepCompliance}, Abandon(s))
	s = State{Step: StepURLInput, URL: "https://demo.app", Busy: true}
	assert.Equal(t, State{Step: StepURLInput, URL: "https://demo.app"}, Abandon(s))
	idle := State{Step: StepAppConfig}
	assert.Equal(t, idle, Abandon(idle))
}
