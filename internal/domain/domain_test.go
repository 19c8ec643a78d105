package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageNameFor(t *testing.T) {
	tests := []struct {
		name      string
		shortName string
		full      string
		want      string
	}{
		{name: "letters only", shortName: "MyApp", want: "com.pwa.myapp"},
		{name: "strips digits and punctuation", shortName: "My-App 2.0!", want: "com.pwa.myapp"},
		{name: "falls back to name", shortName: "123", full: "Shop Now", want: "com.pwa.shopnow"},
		{name: "falls back to app", shortName: "", full: "42", want: "com.pwa.app"},
		{name: "drops non-ascii letters", shortName: "Café", want: "com.pwa.caf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageNameFor(tt.shortName, tt.full))
		})
	}
}

func TestSeedFromMetadata(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.VersionName = "2.1.0"
	cfg.Orientation = OrientationLandscape

	seeded := cfg.Seed(PwaMetadata{
		URL:        "https://example.com",
		Name:       "My Application",
		ShortName:  "MyApp",
		ThemeColor: "#112233",
		Icons:      []Icon{{Src: "https://example.com/icon-512.png", Sizes: "512x512", Type: "image/png"}, {Src: "second.png"}},
		IsValid:    true,
	})

	assert.Equal(t, "My Application", seeded.AppName)
	assert.Equal(t, "com.pwa.myapp", seeded.PackageName)
	assert.Equal(t, "https://example.com/icon-512.png", seeded.IconURL)
	assert.Equal(t, "#112233", seeded.SplashColor)
	assert.Equal(t, "2.1.0", seeded.VersionName)
	assert.Equal(t, OrientationLandscape, seeded.Orientation)
	assert.Equal(t, MinSdkFloor, seeded.MinSdk)
}

func TestSeedWithoutIconsOrTheme(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.IconURL = "stale.png"
	cfg.SplashColor = "#000000"
	seeded := cfg.Seed(PwaMetadata{Name: "X", ShortName: "x"})
	assert.Empty(t, seeded.IconURL)
	assert.Equal(t, "#FFFFFF", seeded.SplashColor)
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation(" Landscape ")
	require.NoError(t, err)
	assert.Equal(t, OrientationLandscape, o)

	_, err = ParseOrientation("sideways")
	assert.Error(t, err)
}

func TestServiceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("analyze: %w", NewServiceError("generate", cause))
	assert.True(t, IsServiceError(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsServiceError(ErrMissingCredential))
}
