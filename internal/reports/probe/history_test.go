package probe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyNow = time.Date(2016, 6, 12, 0, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

func TestLoadHistoryMissingFileIsEmpty(t *testing.T) {
	h, err := LoadHistory(filepath.Join(t.TempDir(), "absent"), week)
	require.NoError(t, err)

	status, send := h.Gate("probe1.example.com", historyNow)
	assert.True(t, send)
	assert.Equal(t, StatusNew, status)
}

func TestGateSuppressesWithinWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("probe1.example.com\t2016-06-10\n"), 0o644))

	h, err := LoadHistory(path, week)
	require.NoError(t, err)

	_, send := h.Gate("probe1.example.com", historyNow)
	assert.False(t, send)

	// The suppressed line keeps its original date.
	require.NoError(t, h.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "probe1.example.com\t2016-06-10\n", string(data))
}

func TestGateRemindsOutsideWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("probe1.example.com\t2016-05-01\n"), 0o644))

	h, err := LoadHistory(path, week)
	require.NoError(t, err)

	status, send := h.Gate("probe1.example.com", historyNow)
	assert.True(t, send)
	assert.Equal(t, StatusReminder, status)

	// The date refreshes on the reminder.
	require.NoError(t, h.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "probe1.example.com\t2016-06-12\n", string(data))
}

func TestGateIdempotentWithinWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := LoadHistory(path, week)
	require.NoError(t, err)

	// First run notifies.
	_, send := h.Gate("probe1.example.com", historyNow)
	assert.True(t, send)
	require.NoError(t, h.Save())

	// A back-to-back second run over the same input is suppressed.
	h2, err := LoadHistory(path, week)
	require.NoError(t, err)
	_, send = h2.Gate("probe1.example.com", historyNow)
	assert.False(t, send)
}

func TestSavePreservesOrderAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path,
		[]byte("probe1.example.com\t2016-06-10\nprobe2.example.com\t2016-06-11\n"), 0o644))

	h, err := LoadHistory(path, week)
	require.NoError(t, err)
	h.Gate("probe3.example.com", historyNow)
	require.NoError(t, h.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"probe1.example.com\t2016-06-10\nprobe2.example.com\t2016-06-11\nprobe3.example.com\t2016-06-12\n",
		string(data))
}

func TestLoadHistoryMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("no-tab-here\n"), 0o644))
	_, err := LoadHistory(path, week)
	assert.Error(t, err)
}
