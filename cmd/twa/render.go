package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"twaforge/internal/config"
	"twaforge/internal/domain"
	"twaforge/internal/view"
	"twaforge/internal/wizard"
)

var noticeColors = map[wizard.NoticeKind]text.Colors{
	wizard.NoticeValidation: {text.FgYellow},
	wizard.NoticeRejected:   {text.FgYellow},
	wizard.NoticeService:    {text.FgRed},
	wizard.NoticeBuild:      {text.FgRed},
}

func renderView(w io.Writer, v view.View) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, text.Bold.Sprint(v.Title))
	var crumbs []string
	for _, c := range v.Breadcrumb {
		if c.Active {
			crumbs = append(crumbs, "["+c.Label+"]")
		} else {
			crumbs = append(crumbs, c.Label)
		}
	}
	if len(crumbs) > 0 {
		fmt.Fprintln(w, strings.Join(crumbs, "  "))
	}
	if v.Banner != nil {
		fmt.Fprintln(w, noticeColors[v.Banner.Kind].Sprint("! "+v.Banner.Message))
	}
	if g := v.Guidance; g != nil {
		fmt.Fprintln(w, text.FgRed.Sprint(g.Title))
		fmt.Fprintln(w, g.Message)
		for _, k := range g.EnvVars {
			fmt.Fprintf(w, "  %s\n", k)
		}
		fmt.Fprintln(w, "Use `twa config set-key <key>` in another terminal, then type `resume`.")
	}
	if v.Busy {
		fmt.Fprintln(w, "working...")
	}
	if v.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", v.URL)
	}
	if len(v.Form) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Field", "Label", "Value"})
		for _, f := range v.Form {
			val := f.Value
			if len(f.Options) > 0 {
				val += " (" + strings.Join(f.Options, "|") + ")"
			}
			tw.AppendRow(table.Row{f.Name, f.Label, val})
		}
		tw.Render()
	}
	if len(v.Checklist) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Check", "Detail"})
		for _, c := range v.Checklist {
			tw.AppendRow(table.Row{c.Title, c.Detail})
		}
		tw.Render()
		fmt.Fprintln(w, v.SigningNote)
	}
	if v.Build != nil {
		fmt.Fprintf(w, "APK %s  AAB %s  (%s)\n", v.Build.ApkID, v.Build.AabID, v.Build.Timestamp)
	}
	if len(v.Artifacts) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Name", "File", "Size"})
		for _, a := range v.Artifacts {
			tw.AppendRow(table.Row{a.Name, a.Filename, len(a.Content)})
		}
		tw.Render()
	}
	if len(v.History) > 0 {
		fmt.Fprintln(w, "Recent builds:")
		renderSummaries(w, v.History)
	}
	var acts []string
	for _, a := range v.Actions {
		label := fmt.Sprintf("%s (%s)", a.Name, a.Label)
		if !a.Enabled {
			label = text.Faint.Sprint(label)
		}
		acts = append(acts, label)
	}
	if len(acts) > 0 {
		fmt.Fprintln(w, "Actions: "+strings.Join(acts, ", "))
	}
}

func renderSummaries(w io.Writer, items []view.BuildSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "APK", "AAB", "Timestamp"})
	for i, s := range items {
		tw.AppendRow(table.Row{i + 1, s.ApkID, s.AabID, s.Timestamp})
	}
	tw.Render()
}

func renderHistory(w io.Writer, items []domain.BuildResult) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no builds yet")
		return
	}
	out := make([]view.BuildSummary, 0, len(items))
	for _, r := range items {
		out = append(out, view.BuildSummary{ApkID: r.ApkID, AabID: r.AabID, Timestamp: r.Timestamp})
	}
	renderSummaries(w, out)
}

func renderMetadata(w io.Writer, m domain.PwaMetadata) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"URL", m.URL},
		{"Name", m.Name},
		{"Short name", m.ShortName},
		{"Theme color", m.ThemeColor},
		{"Manifest", m.ManifestURL},
		{"Icons", len(m.Icons)},
		{"Valid PWA", m.IsValid},
	})
	tw.Render()
}

func renderEvents(w io.Writer, items []domain.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Time", "Type", "Session", "Payload"})
	for _, e := range items {
		tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.SessionID, e.PayloadJSON})
	}
	tw.Render()
}

func renderArtifacts(w io.Writer, r domain.BuildResult) {
	for _, a := range view.Artifacts(r) {
		fmt.Fprintf(w, "==> %s <==\n%s\n\n", a.Filename, a.Content)
	}
}

func renderConfig(w io.Writer, cfg *config.Config, keySet bool) {
	key := "not set"
	if keySet {
		key = "set"
	}
	baseURL := cfg.Model.BaseURL
	if baseURL == "" {
		baseURL = "(default)"
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	tw.AppendRows([]table.Row{
		{"model.analyze", cfg.Model.Analyze},
		{"model.generate", cfg.Model.Generate},
		{"model.base_url", baseURL},
		{"model.timeout_seconds", cfg.Model.TimeoutSeconds},
		{"defaults.version_name", cfg.Defaults.VersionName},
		{"defaults.version_code", cfg.Defaults.VersionCode},
		{"defaults.orientation", cfg.Defaults.Orientation},
		{"defaults.min_sdk", cfg.Defaults.MinSdk},
		{"defaults.splash_color", cfg.Defaults.SplashColor},
		{"server.addr", cfg.Server.Addr},
		{"server.base_path", cfg.Server.BasePath},
		{"api key", key},
	})
	tw.Render()
}
