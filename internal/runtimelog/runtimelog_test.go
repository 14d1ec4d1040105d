package runtimelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndLastRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime_log.csv")

	_, ok, err := LastRun(path, "SUCCESS")
	require.NoError(t, err)
	require.False(t, ok, "missing file means no last run")

	entries := []Entry{
		{Start: time.Date(2025, 9, 20, 3, 0, 0, 0, time.UTC), Status: "SUCCESS"},
		{Start: time.Date(2025, 9, 21, 3, 0, 0, 0, time.UTC), Status: "FAILED"},
		{Start: time.Date(2025, 9, 22, 3, 15, 0, 0, time.UTC), Status: "SUCCESS"},
	}
	for _, e := range entries {
		require.NoError(t, Append(path, e))
	}

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 4, "header plus one line per run")
	require.Equal(t, "Start,Status", lines[0])

	last, ok, err := LastRun(path, "SUCCESS")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC), last,
		"last run truncates to the day")

	lastAny, ok, err := LastRun(path, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC), lastAny)

	lastFailed, ok, err := LastRun(path, "FAILED")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC), lastFailed)
}
