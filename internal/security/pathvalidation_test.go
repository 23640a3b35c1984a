package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in root", filepath.Join(root, "events.json"), false},
		{"nested new file", filepath.Join(root, "a", "b", "chart.png"), false},
		{"dot-dot escape", filepath.Join(root, "..", "events.json"), true},
		{"sibling directory", filepath.Join(outside, "events.json"), true},
		{"root itself", root, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, root)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_Symlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	err := ValidatePathWithinDirectory(filepath.Join(link, "events.json"), root)
	assert.Error(t, err, "a symlink pointing outside the root must be rejected")
}

func TestValidateOutputPath(t *testing.T) {
	extra := t.TempDir()
	require.NoError(t, ValidateOutputPath(filepath.Join(extra, "events.json"), extra))
	require.NoError(t, ValidateOutputPath("events.json"))
	assert.Error(t, ValidateOutputPath("/proc/events.json"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                      "unknown",
		"line-2 camera A":       "line-2_camera_A",
		"../../etc/passwd":      "etc_passwd",
		"shift_1.mp4":           "shift_1.mp4",
		"__":                    "unknown",
		"bench#3 (left)//night": "bench_3_left_night",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
