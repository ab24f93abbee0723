package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLogfileExplicitWins(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "custom.log")
	got := ResolveLogfile(explicit, t.TempDir(), "siteusage")
	assert.Equal(t, explicit, got)
}

func TestResolveLogfileDefaultLogdir(t *testing.T) {
	logdir := t.TempDir()
	got := ResolveLogfile("", logdir, "siteusage")
	assert.Equal(t, filepath.Join(logdir, "gracc-reporting", "siteusage.log"), got)
}

func TestResolveLogfileUnwritableFallsThrough(t *testing.T) {
	got := ResolveLogfile("", "/proc/no-such-dir", "siteusage")
	// Falls through to $HOME or the working directory, never the
	// unwritable candidate.
	assert.NotContains(t, got, "/proc/no-such-dir")
}

func TestNewLoggerWritesFile(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "siteusage.log")
	logger, cleanup, err := NewLogger("siteusage", "osg", logfile, false)
	require.NoError(t, err)

	logger.Debug("debug line lands in the file even without verbose")
	logger.Info("info line")
	cleanup()

	data, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
	assert.Contains(t, string(data), `"report":"siteusage"`)
	assert.Contains(t, string(data), `"vo":"osg"`)
}
