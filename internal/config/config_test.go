package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the rest of the test from an empty directory so a developer's
// local config.yaml never leaks into assertions.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Vibe.TargetPhotos)
	assert.InDelta(t, 0.80, cfg.Vibe.EscalationThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Vibe.StageBPhotoCount)
	assert.Equal(t, 20, cfg.Vibe.Limit)
	assert.Equal(t, time.Second, cfg.Vibe.RequestDelay)
	assert.Equal(t, []string{"estetica", "estilo_do_lugar", "dress_code", "clima_social"},
		cfg.Vibe.PhotoPrimaryCategories)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.StageAModel)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIBESENSE_VIBE_LIMIT", "3")
	t.Setenv("VIBESENSE_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Vibe.Limit)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdirTemp(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(`
vibe:
  target_photos: 4
  priority_venues: ["Bar do Zé"]
store:
  driver: postgres
  database_url: postgres://localhost/vibes
`), 0o644))

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Vibe.TargetPhotos)
	assert.Equal(t, []string{"Bar do Zé"}, cfg.Vibe.PriorityVenues)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store:     StoreConfig{Driver: "sqlite", DatabaseURL: "test.db"},
		Anthropic: AnthropicConfig{Key: "sk-test"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Anthropic.Key = ""
	assert.Error(t, cfg.Validate())

	cfg.Anthropic.Key = "sk-test"
	cfg.Store.Driver = "redis"
	assert.Error(t, cfg.Validate())
}
