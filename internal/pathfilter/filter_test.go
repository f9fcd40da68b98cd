package pathfilter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilter_TransientSuffixes(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		path string
		want bool
	}{
		{"/data/report.txt", true},
		{"/data/scratch.tmp", false},
		{"/data/.report.txt.swp", false},
		{"/data/app.lock", false},
		{"/data/server.log", false},
		{"/data/module.pyc", false},
		{"/data/backup~", false},
		{"/data/tmpfile", true},
	}

	for _, tt := range tests {
		if got := f.passesPatterns(tt.path); got != tt.want {
			t.Errorf("passesPatterns(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFilter_TransientDirectories(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		path string
		want bool
	}{
		{"/repo/.git/config", false},
		{"/repo/src/main.go", true},
		{"/app/node_modules/pkg/index.js", false},
		{"/app/__pycache__/mod.cpython-311.pyc", false},
		{"/home/user/.cache/thing", false},
		{"/home/user/gitrepos/file.txt", true},
	}

	for _, tt := range tests {
		if got := f.passesPatterns(tt.path); got != tt.want {
			t.Errorf("passesPatterns(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFilter_ConfiguredPatterns(t *testing.T) {
	f := NewFilter([]string{"*.bak", "secret"})

	tests := []struct {
		path string
		want bool
	}{
		{"/data/db.bak", false},
		{"/data/db.bak.txt", true},
		{"/data/secret/key.pem", false},
		{"/data/secrets.txt", false},
		{"/data/open/file.txt", true},
	}

	for _, tt := range tests {
		if got := f.passesPatterns(tt.path); got != tt.want {
			t.Errorf("passesPatterns(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFilter_AbsentPathStillMonitorable(t *testing.T) {
	f := NewFilter(nil)
	path := filepath.Join(t.TempDir(), "deleted.txt")

	if !f.IsMonitorable(path) {
		t.Fatalf("absent in-scope path must stay monitorable so deletions are detected")
	}
}

func TestFilter_RejectsDirectoriesAndSymlinks(t *testing.T) {
	f := NewFilter(nil)
	dir := t.TempDir()

	if f.IsMonitorable(dir) {
		t.Errorf("directories are not monitorable")
	}

	target := filepath.Join(dir, "target.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if f.IsMonitorable(link) {
		t.Errorf("symlinks are not monitorable")
	}
	if !f.IsMonitorable(target) {
		t.Errorf("regular file should be monitorable")
	}
}

func TestFilter_ShouldDescend(t *testing.T) {
	f := NewFilter([]string{"vendor"})

	tests := []struct {
		dir  string
		want bool
	}{
		{"/repo/src", true},
		{"/repo/.git", false},
		{"/repo/node_modules", false},
		{"/repo/vendor", false},
		{"/repo/internal", true},
	}

	for _, tt := range tests {
		if got := f.ShouldDescend(tt.dir); got != tt.want {
			t.Errorf("ShouldDescend(%q) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}
