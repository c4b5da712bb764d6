package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}
	return g
}

func TestNewGuard(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{name: "existing directory", dir: t.TempDir()},
		{name: "current directory", dir: "."},
		{name: "empty", dir: "", wantErr: true},
		{name: "missing directory", dir: filepath.Join(t.TempDir(), "nope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGuard(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGuard(%q) error = %v, wantErr %v", tt.dir, err, tt.wantErr)
			}
			if !tt.wantErr && !filepath.IsAbs(g.Root()) {
				t.Errorf("Root() = %q, want absolute path", g.Root())
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	g := newTestGuard(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"reports", filepath.Join(g.Root(), "reports")},
		{"./a/../reports", filepath.Join(g.Root(), "reports")},
		{filepath.Join(g.Root(), "shots"), filepath.Join(g.Root(), "shots")},
		{"~/x", resolveSymlinks(filepath.Join(home, "x"))},
	}
	for _, tt := range tests {
		got, err := g.ResolvePath(tt.path)
		if err != nil {
			t.Fatalf("ResolvePath(%q) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if _, err := g.ResolvePath(""); err == nil {
		t.Error("ResolvePath(\"\") expected error")
	}
}

func TestValidateRemoval(t *testing.T) {
	g := newTestGuard(t)
	outside := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "child", path: "reports"},
		{name: "nested child", path: "artifacts/screenshots"},
		{name: "root", path: ".", wantErr: true},
		{name: "root absolute", path: g.Root(), wantErr: true},
		{name: "traversal", path: "../escape", wantErr: true},
		{name: "outside absolute", path: outside, wantErr: true},
		{name: "home", path: "~", wantErr: true},
		{name: "filesystem root", path: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ValidateRemoval(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRemoval(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRemovalSymlinkEscape(t *testing.T) {
	g := newTestGuard(t)
	outside := t.TempDir()
	link := filepath.Join(g.Root(), "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := g.ValidateRemoval("link"); err == nil {
		t.Error("expected symlink pointing outside the workspace to be rejected")
	}
}

func TestRemoveAll(t *testing.T) {
	g := newTestGuard(t)
	dir := filepath.Join(g.Root(), "reports", "shard-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := g.RemoveAll("reports")
	if err != nil || !removed {
		t.Fatalf("RemoveAll() = %v, %v; want true, nil", removed, err)
	}
	if _, err := os.Stat(filepath.Join(g.Root(), "reports")); !os.IsNotExist(err) {
		t.Errorf("reports still present: %v", err)
	}

	removed, err = g.RemoveAll("reports")
	if err != nil || removed {
		t.Errorf("RemoveAll() on missing dir = %v, %v; want false, nil", removed, err)
	}

	if _, err := g.RemoveAll(".."); err == nil {
		t.Error("RemoveAll(\"..\") expected error")
	}
}
