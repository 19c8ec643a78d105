// Package generator asks the model service for the files of a TWA project.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"twaforge/internal/domain"
	"twaforge/internal/llm"
)

const call = "generate"

type Generator interface {
	Generate(ctx context.Context, cfg domain.AppConfig, meta domain.PwaMetadata) (domain.BuildResult, error)
}

type Client struct {
	Model llm.Model
	Name  string
	Now   func() time.Time
}

func New(model llm.Model, name string) *Client {
	return &Client{Model: model, Name: name, Now: time.Now}
}

var schema = llm.Object(map[string]*llm.Schema{
	"manifestXml":    llm.String(),
	"gradleConfig":   llm.String(),
	"assetLinksJson": llm.String(),
})

type files struct {
	ManifestXML    string `json:"manifestXml"`
	GradleConfig   string `json:"gradleConfig"`
	AssetLinksJSON string `json:"assetLinksJson"`
}

func Prompt(cfg domain.AppConfig, meta domain.PwaMetadata) string {
	var b strings.Builder
	b.WriteString("Create a Trusted Web Activity (TWA) Android project configuration for:\n")
	fmt.Fprintf(&b, "URL: %s\n", meta.URL)
	fmt.Fprintf(&b, "App Name: %s\n", cfg.AppName)
	fmt.Fprintf(&b, "Package Name: %s\n", cfg.PackageName)
	fmt.Fprintf(&b, "Version: %s (%d)\n", cfg.VersionName, cfg.VersionCode)
	fmt.Fprintf(&b, "Orientation: %s\n\n", cfg.Orientation)
	b.WriteString("Provide the AndroidManifest.xml, build.gradle (app), and assetlinks.json content.")
	return b.String()
}

// Generate stamps fresh artifact ids and the capture time on the files the
// model returns. File contents are passed through unchecked.
func (c *Client) Generate(ctx context.Context, cfg domain.AppConfig, meta domain.PwaMetadata) (domain.BuildResult, error) {
	var out files
	err := c.Model.GenerateJSON(ctx, llm.Request{Call: call, Model: c.Name, Prompt: Prompt(cfg, meta), Schema: schema}, &out)
	if err != nil {
		return domain.BuildResult{}, err
	}
	now := c.now().UTC()
	base := fmt.Sprintf("build-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
	return domain.BuildResult{
		ApkID:          base + "-apk",
		AabID:          base + "-aab",
		ManifestXML:    out.ManifestXML,
		GradleConfig:   out.GradleConfig,
		AssetLinksJSON: out.AssetLinksJSON,
		Timestamp:      now.Format(time.RFC3339),
	}, nil
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
