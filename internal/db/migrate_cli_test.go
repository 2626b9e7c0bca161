package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 0")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"version", "1"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 1")
	assert.Contains(t, out.String(), "Runs: 0")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"down"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 1")
	assert.Contains(t, out.String(), "Dirty: false")
}

func TestRunMigrateCommandErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	tests := []struct {
		name string
		args []string
	}{
		{"no action", nil},
		{"unknown action", []string{"sideways"}},
		{"version without number", []string{"version"}},
		{"bad version number", []string{"version", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, RunMigrateCommand(tt.args, path, &out))
		})
	}
}

func TestRunMigrateCommandHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand([]string{"help"}, filepath.Join(t.TempDir(), "h.db"), &out))
	assert.Contains(t, out.String(), "Usage: logparser migrate")
}
