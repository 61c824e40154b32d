package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
stream:
  url: "https://example.com/loop/master.m3u8"
analytics:
  event_sink_url: "https://eventsink.example.com"
tracking:
  base_url: "https://tracking.example.com"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "adsplice", cfg.ServiceName)
	assert.Equal(t, 15*time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Stream.BreakDedupTTL)
	assert.Equal(t, 30*time.Second, cfg.Analytics.HeartbeatInterval)
	assert.Equal(t, "headless", cfg.Analytics.DeviceType)
	assert.Equal(t, 8080, cfg.Server.HttpPort)
}

func TestLoadDedupTTLFollowsPollInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
stream:
  url: "https://example.com/loop/master.m3u8"
  poll_interval: 5s
analytics:
  event_sink_url: "https://eventsink.example.com"
tracking:
  base_url: "https://tracking.example.com"
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Stream.BreakDedupTTL)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("ADSPLICE_STREAM_POLL_INTERVAL", "3s")
	t.Setenv("ADSPLICE_ANALYTICS_CONTENT_TITLE", "Override Title")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, "Override Title", cfg.Analytics.ContentTitle)
}

func TestLoadFailsWithoutStreamURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
analytics:
  event_sink_url: "https://eventsink.example.com"
tracking:
  base_url: "https://tracking.example.com"
`))
	require.Error(t, err)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
