package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
	// The dense solver layout is the default; a flat run is an explicit
	// opt-out.
	require.True(t, Default().Solve.Compress)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
data_dir: /var/lib/squadro
solve:
  workers: 8
  checkpoint_every: 5m
  compress: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/var/lib/squadro", cfg.DataDir)
	require.Equal(t, 8, cfg.Solve.Workers)
	require.Equal(t, 5*time.Minute, cfg.Solve.CheckpointEvery)
	require.False(t, cfg.Solve.Compress)
	// Untouched keys keep defaults.
	require.Equal(t, Default().Play.MaxMoves, cfg.Play.MaxMoves)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "solve:\n  workers: -1\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "data_dir: \"\"\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "solve: ["))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/x"
	require.Equal(t, filepath.Join("/tmp/x", "squadro.sqdb"), cfg.DatabasePath())
	require.Equal(t, filepath.Join("/tmp/x", "solve.sqcp"), cfg.CheckpointPath())
}
