// Package analyzer asks the model service to inspect a PWA and describe its
// manifest.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"twaforge/internal/domain"
	"twaforge/internal/llm"
)

const call = "analyze"

type Analyzer interface {
	Analyze(ctx context.Context, url string) (domain.PwaMetadata, error)
}

type Client struct {
	Model llm.Model
	Name  string
}

func New(model llm.Model, name string) *Client {
	return &Client{Model: model, Name: name}
}

var schema = llm.Object(map[string]*llm.Schema{
	"name":        llm.String(),
	"shortName":   llm.String(),
	"themeColor":  llm.String(),
	"manifestUrl": llm.String(),
	"isValid":     llm.Bool(),
	"icons": llm.Array(llm.Object(map[string]*llm.Schema{
		"src":   llm.String(),
		"sizes": llm.String(),
		"type":  llm.String(),
	})),
}, "name", "shortName", "themeColor", "isValid")

// response uses pointers so absent required fields can be told apart from
// zero values.
type response struct {
	Name        *string       `json:"name"`
	ShortName   *string       `json:"shortName"`
	ThemeColor  *string       `json:"themeColor"`
	ManifestURL string        `json:"manifestUrl"`
	IsValid     *bool         `json:"isValid"`
	Icons       []domain.Icon `json:"icons"`
}

func Prompt(url string) string {
	return fmt.Sprintf("Analyze the PWA at this URL: %s.\n"+
		"Find the manifest.json content, icons, and theme colors.\n"+
		"Return the data in the following JSON schema.", url)
}

// Analyze returns isValid=false as data. Only missing credentials and
// service failures are errors.
func (c *Client) Analyze(ctx context.Context, url string) (domain.PwaMetadata, error) {
	var resp response
	err := c.Model.GenerateJSON(ctx, llm.Request{Call: call, Model: c.Name, Prompt: Prompt(url), Schema: schema}, &resp)
	if err != nil {
		return domain.PwaMetadata{}, err
	}
	if missing := resp.missing(); len(missing) > 0 {
		return domain.PwaMetadata{}, domain.NewServiceError(call,
			errors.New("response missing required fields: "+strings.Join(missing, ", ")))
	}
	icons := resp.Icons
	if icons == nil {
		icons = []domain.Icon{}
	}
	return domain.PwaMetadata{
		URL:         url,
		Name:        *resp.Name,
		ShortName:   *resp.ShortName,
		ThemeColor:  *resp.ThemeColor,
		Icons:       icons,
		ManifestURL: resp.ManifestURL,
		IsValid:     *resp.IsValid,
	}, nil
}

func (r response) missing() []string {
	var out []string
	if r.Name == nil {
		out = append(out, "name")
	}
	if r.ShortName == nil {
		out = append(out, "shortName")
	}
	if r.ThemeColor == nil {
		out = append(out, "themeColor")
	}
	if r.IsValid == nil {
		out = append(out, "isValid")
	}
	return out
}
