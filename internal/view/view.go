// Package view projects wizard state into what a front end displays.
package view

import (
	"strconv"

	"twaforge/internal/domain"
	"twaforge/internal/wizard"
)

type Crumb struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type Guidance struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	EnvVars []string `json:"env_vars"`
}

type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Value   string   `json:"value"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

type ChecklistItem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type Artifact struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type BuildSummary struct {
	ApkID     string `json:"apk_id"`
	AabID     string `json:"aab_id"`
	Timestamp string `json:"timestamp"`
}

type ActionView struct {
	Name    wizard.Action `json:"name"`
	Label   string        `json:"label"`
	Enabled bool          `json:"enabled"`
}

type View struct {
	Step        wizard.Step     `json:"step"`
	Title       string          `json:"title"`
	Breadcrumb  []Crumb         `json:"breadcrumb"`
	Banner      *wizard.Notice  `json:"banner,omitempty"`
	Guidance    *Guidance       `json:"guidance,omitempty"`
	Busy        bool            `json:"busy"`
	URL         string          `json:"url,omitempty"`
	Form        []Field         `json:"form,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
	SigningNote string          `json:"signing_note,omitempty"`
	Build       *BuildSummary   `json:"build,omitempty"`
	Artifacts   []Artifact      `json:"artifacts,omitempty"`
	History     []BuildSummary  `json:"history,omitempty"`
	Actions     []ActionView    `json:"actions"`
}

var titles = map[wizard.Step]string{
	wizard.StepWelcome:    "PWA to Android converter",
	wizard.StepURLInput:   "Enter your PWA URL",
	wizard.StepAppConfig:  "App details",
	wizard.StepCompliance: "Play Store readiness",
	wizard.StepBuilding:   "Building your app",
	wizard.StepExport:     "Your app is ready",
}

var crumbs = []struct {
	key, label string
	step       wizard.Step
}{
	{"link", "1. Link", wizard.StepURLInput},
	{"details", "2. Details", wizard.StepAppConfig},
	{"compliance", "3. Compliance", wizard.StepCompliance},
	{"download", "4. Download", wizard.StepExport},
}

var checklist = []ChecklistItem{
	{Title: "No default ads", Detail: "No embedded trackers or hidden ads."},
	{Title: "Data privacy", Detail: "Clear privacy policy required on PWA."},
	{Title: "No background data use", Detail: "No unauthorized background services."},
	{Title: "Correct icon sizes", Detail: "Adaptive icons will be generated."},
}

const signingNote = "Publishing requires your own keystore (signing key)."

var actionLabels = []struct {
	action wizard.Action
	label  string
}{
	{wizard.ActionStart, "Create new app"},
	{wizard.ActionSetURL, "Edit URL"},
	{wizard.ActionAnalyze, "Analyze"},
	{wizard.ActionConfig, "Edit details"},
	{wizard.ActionBack, "Back"},
	{wizard.ActionNext, "Next"},
	{wizard.ActionBuild, "Build"},
	{wizard.ActionRestart, "Build another app"},
	{wizard.ActionResume, "Retry"},
}

// actionsByStep lists the actions a step shows, disabled or not.
var actionsByStep = map[wizard.Step][]wizard.Action{
	wizard.StepWelcome:    {wizard.ActionStart},
	wizard.StepURLInput:   {wizard.ActionSetURL, wizard.ActionAnalyze},
	wizard.StepAppConfig:  {wizard.ActionConfig, wizard.ActionBack, wizard.ActionNext},
	wizard.StepCompliance: {wizard.ActionBack, wizard.ActionBuild},
	wizard.StepBuilding:   nil,
	wizard.StepExport:     {wizard.ActionRestart},
}

// Render is pure: the same state and history always give the same view.
func Render(s wizard.State, hist []domain.BuildResult) View {
	v := View{
		Step:       s.Step,
		Title:      titles[s.Step],
		Breadcrumb: breadcrumb(s.Step),
		Busy:       s.Busy,
	}
	if s.Guidance {
		v.Title = "Setup required"
		v.Guidance = &Guidance{
			Title:   "Model service API key is not configured",
			Message: "Set one of the environment variables below (or add it to .env in the workspace), then retry.",
			EnvVars: append([]string(nil), domain.CredentialEnvVars...),
		}
		v.Actions = actions(s, []wizard.Action{wizard.ActionResume})
		return v
	}
	if s.Notice != nil {
		n := *s.Notice
		v.Banner = &n
	}
	switch s.Step {
	case wizard.StepWelcome:
		for _, r := range hist {
			v.History = append(v.History, summary(r))
		}
	case wizard.StepURLInput:
		v.URL = s.URL
	case wizard.StepAppConfig:
		v.URL = s.URL
		v.Form = form(s.Config)
	case wizard.StepCompliance:
		v.Checklist = append([]ChecklistItem(nil), checklist...)
		v.SigningNote = signingNote
	case wizard.StepExport:
		if s.Result != nil {
			b := summary(*s.Result)
			v.Build = &b
			v.Artifacts = Artifacts(*s.Result)
		}
	}
	v.Actions = actions(s, actionsByStep[s.Step])
	return v
}

func breadcrumb(step wizard.Step) []Crumb {
	out := make([]Crumb, 0, len(crumbs))
	for _, c := range crumbs {
		out = append(out, Crumb{Key: c.key, Label: c.label, Active: c.step == step})
	}
	return out
}

func form(c domain.AppConfig) []Field {
	return []Field{
		{Name: "appName", Label: "App name", Value: c.AppName, Kind: "text"},
		{Name: "packageName", Label: "Package name", Value: c.PackageName, Kind: "text"},
		{Name: "versionCode", Label: "Version code", Value: strconv.Itoa(c.VersionCode), Kind: "number"},
		{Name: "versionName", Label: "Version name", Value: c.VersionName, Kind: "text"},
		{Name: "iconUrl", Label: "App icon", Value: c.IconURL, Kind: "image"},
		{Name: "orientation", Label: "Screen orientation", Value: string(c.Orientation), Kind: "select",
			Options: []string{string(domain.OrientationPortrait), string(domain.OrientationLandscape), string(domain.OrientationAny)}},
		{Name: "minSdk", Label: "Minimum SDK", Value: strconv.Itoa(c.MinSdk), Kind: "number"},
		{Name: "splashColor", Label: "Splash color", Value: c.SplashColor, Kind: "color"},
	}
}

func actions(s wizard.State, names []wizard.Action) []ActionView {
	out := []ActionView{}
	for _, a := range actionLabels {
		for _, n := range names {
			if a.action == n {
				out = append(out, ActionView{Name: n, Label: a.label, Enabled: wizard.Allowed(s, n)})
			}
		}
	}
	return out
}

func summary(r domain.BuildResult) BuildSummary {
	return BuildSummary{ApkID: r.ApkID, AabID: r.AabID, Timestamp: r.Timestamp}
}

// Artifact names accepted by Find.
const (
	ArtifactManifest   = "manifest"
	ArtifactGradle     = "gradle"
	ArtifactAssetLinks = "assetlinks"
)

// Artifacts lists the generated project files in display order.
func Artifacts(r domain.BuildResult) []Artifact {
	return []Artifact{
		{Name: ArtifactManifest, Filename: "AndroidManifest.xml", Content: r.ManifestXML},
		{Name: ArtifactGradle, Filename: "build.gradle", Content: r.GradleConfig},
		{Name: ArtifactAssetLinks, Filename: "assetlinks.json", Content: r.AssetLinksJSON},
	}
}

// Find returns the artifact with the given name or filename.
func Find(r domain.BuildResult, name string) (Artifact, bool) {
	for _, a := range Artifacts(r) {
		if a.Name == name || a.Filename == name {
			return a, true
		}
	}
	return Artifact{}, false
}
