package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twaforge/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "gemini-3-flash-preview", cfg.Model.Analyze)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Model.Generate)
	assert.Equal(t, domain.DefaultAppConfig(), cfg.AppDefaults())
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("defaults:\n  orientation: landscape\n  min_sdk: 28\n"))
	require.NoError(t, err)
	d := cfg.AppDefaults()
	assert.Equal(t, domain.OrientationLandscape, d.Orientation)
	assert.Equal(t, 28, d.MinSdk)
	assert.Equal(t, "1.0.0", d.VersionName)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Model.Analyze)
}

func TestValidateRejectsBadValues(t *testing.T) {
	for name, doc := range map[string]string{
		"min sdk below floor": "defaults:\n  min_sdk: 19\n",
		"unknown orientation": "defaults:\n  orientation: diagonal\n",
		"empty model":         "model:\n  analyze: \"\"\n",
		"bad yaml":            "model: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(Path(dir), []byte("model:\n  generate: custom-model\n"), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.Model.Generate)
}
