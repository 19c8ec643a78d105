package domain

import (
	"fmt"
	"strings"
)

type Icon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// PwaMetadata is what the analyzer learned about a PWA manifest.
type PwaMetadata struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ShortName   string `json:"shortName"`
	ThemeColor  string `json:"themeColor"`
	Icons       []Icon `json:"icons"`
	ManifestURL string `json:"manifestUrl,omitempty"`
	IsValid     bool   `json:"isValid"`
}

type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
	OrientationAny       Orientation = "any"
)

// ParseOrientation accepts only the three known orientations.
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case OrientationPortrait, OrientationLandscape, OrientationAny:
		return o, nil
	default:
		return "", fmt.Errorf("invalid orientation %q (portrait, landscape, any)", s)
	}
}

// MinSdkFloor is the lowest Android API level a TWA shell supports.
const MinSdkFloor = 24

type AppConfig struct {
	AppName     string      `json:"appName"`
	PackageName string      `json:"packageName"`
	VersionName string      `json:"versionName"`
	VersionCode int         `json:"versionCode"`
	Orientation Orientation `json:"orientation" enum:"portrait,landscape,any"`
	MinSdk      int         `json:"minSdk"`
	IconURL     string      `json:"iconUrl"`
	SplashColor string      `json:"splashColor"`
}

// DefaultAppConfig is the form a new wizard session starts with.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		VersionName: "1.0.0",
		VersionCode: 1,
		Orientation: OrientationPortrait,
		MinSdk:      MinSdkFloor,
		SplashColor: "#FFFFFF",
	}
}

// Seed copies the analyzed manifest values over the current config, leaving
// version, orientation and minSdk as the user set them.
func (c AppConfig) Seed(meta PwaMetadata) AppConfig {
	c.AppName = meta.Name
	c.PackageName = PackageNameFor(meta.ShortName, meta.Name)
	c.IconURL = ""
	if len(meta.Icons) > 0 {
		c.IconURL = meta.Icons[0].Src
	}
	c.SplashColor = meta.ThemeColor
	if c.SplashColor == "" {
		c.SplashColor = "#FFFFFF"
	}
	return c
}

// PackageNameFor derives com.pwa.<letters> from the short name, falling back
// to the full name and then to "app" when no ASCII letters remain. The
// fallbacks keep the result a valid package name where a plain letter filter
// would leave "com.pwa.".
func PackageNameFor(shortName, name string) string {
	for _, candidate := range []string{shortName, name} {
		if seg := lettersOnly(candidate); seg != "" {
			return "com.pwa." + seg
		}
	}
	return "com.pwa.app"
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildResult is one generated project. It is never modified after creation.
type BuildResult struct {
	ApkID          string `json:"apkId"`
	AabID          string `json:"aabId"`
	ManifestXML    string `json:"manifestXml"`
	GradleConfig   string `json:"gradleConfig"`
	AssetLinksJSON string `json:"assetLinksJson"`
	Timestamp      string `json:"timestamp" format:"date-time"`
}

type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	PayloadJSON string `json:"payload_json"`
}
