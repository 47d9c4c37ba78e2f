package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"directory itself", safeDir, safeDir, false},
		{"nested new path", filepath.Join(safeDir, "graphs", "new"), safeDir, false},
		{"dot dot escape", filepath.Join(safeDir, "..", "unsafe"), safeDir, true},
		{"relative escape", "../../../etc", safeDir, true},
		{"absolute elsewhere", "/etc", safeDir, true},
		{"symlinked directory", symlinkPath, safeDir, true},
		{"new path under symlink", filepath.Join(symlinkPath, "graphs"), safeDir, true},
		{"missing safe dir", safeDir, filepath.Join(tmpDir, "absent"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	if err := ValidatePathWithinAllowedDirs(filepath.Join(b, "x"), []string{a, b}); err != nil {
		t.Errorf("expected path in second dir to pass: %v", err)
	}
	if err := ValidatePathWithinAllowedDirs("/etc/x", []string{a, b}); err == nil {
		t.Error("expected path outside all dirs to fail")
	}
	if err := ValidatePathWithinAllowedDirs(a, nil); err == nil {
		t.Error("expected empty allow list to fail")
	}
}

func TestValidateArtifactDir(t *testing.T) {
	if err := ValidateArtifactDir(filepath.Join(os.TempDir(), "trackreport")); err != nil {
		t.Errorf("temp dir should be accepted: %v", err)
	}
	if err := ValidateArtifactDir("graphs"); err != nil {
		t.Errorf("relative dir under the working directory should be accepted: %v", err)
	}
	if err := ValidateArtifactDir("/etc"); err == nil {
		t.Error("expected /etc to be rejected")
	}
}
