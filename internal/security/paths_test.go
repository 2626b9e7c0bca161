package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	exportDir := filepath.Join(tmpDir, "processed_files")
	outside := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(exportDir, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.csv"), []byte("x"), 0644))

	link := filepath.Join(exportDir, "link")
	require.NoError(t, os.Symlink(outside, link))

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{name: "file inside", filePath: filepath.Join(exportDir, "filtered_run.csv")},
		{name: "nested file", filePath: filepath.Join(exportDir, "sub", "a.csv")},
		{name: "dot dot escape", filePath: filepath.Join(exportDir, "..", "a.csv"), wantError: true},
		{name: "relative escape", filePath: "../../../etc/passwd", wantError: true},
		{name: "absolute outside", filePath: "/etc/passwd", wantError: true},
		{name: "through symlink", filePath: filepath.Join(link, "secret.csv"), wantError: true},
		{name: "symlink itself", filePath: link, wantError: true},
		{name: "new file under symlink", filePath: filepath.Join(link, "new.csv"), wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, exportDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
			if err != nil {
				assert.True(t, errors.Is(err, ErrOutsideDirectory), "error should wrap ErrOutsideDirectory: %v", err)
			}
		})
	}
}

func TestResolveArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filtered_run.csv"), []byte("timestamps\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.csv"), 0755))

	got, err := ResolveArtifact(dir, "filtered_run.csv", ".csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "filtered_run.csv"), got)

	for _, name := range []string{"", ".", "..", "../filtered_run.csv", "sub/filtered_run.csv", "run.json", "missing.csv", "folder.csv"} {
		t.Run(name, func(t *testing.T) {
			if _, err := ResolveArtifact(dir, name, ".csv"); err == nil {
				t.Errorf("ResolveArtifact(%q) expected error", name)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "unknown"},
		{"drive_2024-05-01.log", "drive_2024-05-01.log"},
		{"drive 2024/05/01", "drive_2024_05_01"},
		{"  spaced  ", "spaced"},
		{"../../etc/passwd", "etc_passwd"},
		{"***", "unknown"},
		{"Fahrt über Land", "Fahrt_ber_Land"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != 128 {
		t.Errorf("len(SanitizeFilename(300 x a)) = %d, want 128", len(got))
	}
}
