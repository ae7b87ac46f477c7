package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/backport-monitor/internal/classify"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bugs.openjdk.org", cfg.TrackerURL)
	assert.Equal(t, []int{8, 11, 17, 21}, cfg.Releases)
	assert.Equal(t, 10, cfg.BakeDays)
	assert.True(t, cfg.AssumeAffected)
	assert.Equal(t, 8, cfg.FetchConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRACKED_RELEASES", "11,17")
	t.Setenv("BAKE_DAYS", "14")
	t.Setenv("ASSUME_AFFECTED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{11, 17}, cfg.Releases)
	assert.Equal(t, 14, cfg.BakeDays)
	assert.False(t, cfg.AssumeAffected)
}

func TestWeightTable(t *testing.T) {
	cfg := &Config{LTSReleases: []int{8, 17}}
	table := cfg.WeightTable()

	assert.Equal(t, classify.Weights{Default: 10, Critical: 40, Oracle: 20}, table[8])
	_, ok := table[13]
	assert.False(t, ok, "non-LTS releases use the engine baseline")
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: duke\npassword: hunter2\n"), 0o600))

	cfg := &Config{AuthFile: path}
	auth, err := cfg.Credentials()
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, "duke", auth.Username)
	assert.Equal(t, "hunter2", auth.Password)
}

func TestCredentialsAbsentFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	auth, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Nil(t, auth, "no auth file means anonymous access")
}

func TestCredentialsIncomplete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: duke\n"), 0o600))

	cfg := &Config{AuthFile: path}
	_, err := cfg.Credentials()
	require.Error(t, err)
}
