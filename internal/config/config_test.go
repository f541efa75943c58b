package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "data/digest.db", cfg.Database.Path)
	assert.Equal(t, "10:00", cfg.Scheduler.DigestTime)
	assert.Equal(t, 10, cfg.Pipeline.ConcurrentSources)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.SourceTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.MaxContentAge())
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.StalenessWindow())
	assert.Equal(t, 7*24*time.Hour, cfg.Pipeline.Retention())
	assert.Equal(t, 30, cfg.Pipeline.ScoreCutoff)
	assert.Equal(t, 5, cfg.Pipeline.TopItems)
	assert.Equal(t, "openai", cfg.Providers.Primary)
	assert.Empty(t, cfg.Archive.Dir, "archival is off unless configured")
	assert.NotEmpty(t, cfg.Prompts.Importance)
	assert.NotEmpty(t, cfg.Sources, "registry seeds are always present")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  path: /tmp/custom.db
scheduler:
  digestTime: "08:30"
  timezone: Europe/Moscow
pipeline:
  concurrentSources: 3
  topItems: 7
providers:
  primary: anthropic
  fallback: openai
sources:
  - kind: channel
    name: custom
    address: custom_channel
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	t.Setenv(configPathEnv, path)

	cfg := Load()

	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, "08:30", cfg.Scheduler.DigestTime)
	assert.Equal(t, "Europe/Moscow", cfg.Scheduler.Location().String())
	assert.Equal(t, 3, cfg.Pipeline.ConcurrentSources)
	assert.Equal(t, 7, cfg.Pipeline.TopItems)
	assert.Equal(t, "anthropic", cfg.Providers.Primary)
	assert.Equal(t, "openai", cfg.Providers.Fallback)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "custom_channel", cfg.Sources[0].Address)

	// Unset keys keep their defaults.
	assert.Equal(t, 30, cfg.Pipeline.ScoreCutoff)
	assert.Equal(t, 5, cfg.Pipeline.ConcurrentScoring)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/file.db\n"), 0o644))
	t.Setenv(configPathEnv, path)
	t.Setenv(databasePathEnv, "/tmp/env.db")
	t.Setenv(aiProviderEnv, "anthropic")
	t.Setenv(digestTimeEnv, "21:15")
	t.Setenv(archiveDirEnv, "/tmp/digests")
	t.Setenv(allowedUsersEnv, "100, 200,abc,300")

	cfg := Load()

	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "anthropic", cfg.Providers.Primary)
	assert.Equal(t, "21:15", cfg.Scheduler.DigestTime)
	assert.Equal(t, "/tmp/digests", cfg.Archive.Dir)
	assert.Equal(t, []int64{100, 200, 300}, cfg.Notifications.Telegram.AllowedUserIDs,
		"malformed ids are skipped")
}

func TestLoadBadTimezoneFallsBack(t *testing.T) {
	t.Setenv(timezoneEnv, "Not/AZone")

	cfg := Load()
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()
	assert.Equal(t, "data/digest.db", cfg.Database.Path)
}
