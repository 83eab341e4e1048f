package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ellipse/config"
	"github.com/teranos/ellipse/trip"
)

func TestRun_DumpConfigAppliesOverrides(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	err := run([]string{
		"-config", filepath.Join(dir, "missing.toml"),
		"-resolution", "500",
		"-snapshots", filepath.Join(dir, "shots"),
		"-dump-config",
	}, &out)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, config.Parse(out.Bytes(), &cfg))
	assert.Equal(t, 500, cfg.Resolution)
	assert.Equal(t, filepath.Join(dir, "shots"), cfg.Snapshot.Dir)
	assert.Equal(t, config.Default().Sliders, cfg.Sliders)
}

func TestRun_ReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ellipse.toml")
	require.NoError(t, os.WriteFile(path, []byte("[initial]\nsemi_major = 25.0\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-config", path, "-dump-config"}, &out))
	assert.Contains(t, out.String(), "semi_major = 25.0")
}

func TestRun_RejectsInvalidOverrides(t *testing.T) {
	dir := t.TempDir()

	err := run([]string{"-config", filepath.Join(dir, "missing.toml"), "-resolution", "1", "-dump-config"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, trip.Is(err, trip.Config))
	assert.Contains(t, err.Error(), "resolution must be at least 2")
}

func TestRun_RejectsUnknownFlags(t *testing.T) {
	err := run([]string{"-no-such-flag"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOpenLog(t *testing.T) {
	logger, closeLog, err := openLog(config.Log{})
	require.NoError(t, err)
	logger.Info("discarded")
	closeLog()

	path := filepath.Join(t.TempDir(), "ellipse.log")
	logger, closeLog, err = openLog(config.Log{File: path, Level: "debug"})
	require.NoError(t, err)
	logger.Debug("parameter changed", "slider", "a")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `msg="parameter changed"`)
	assert.Contains(t, string(data), "slider=a")
}
