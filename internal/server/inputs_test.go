// ABOUTME: Tests for input path confinement
// ABOUTME: Covers relative, absolute, escaping and symlinked paths
package server

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolveInput(t *testing.T) {
	root := resolveInputRoot(t.TempDir())
	outsideDir := resolveInputRoot(t.TempDir())

	inside := filepath.Join(root, "talks", "intro.m4a")
	if err := os.MkdirAll(filepath.Dir(inside), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(outsideDir, "secret.wav")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"relative", filepath.Join("talks", "intro.m4a"), inside, nil},
		{"absolute inside", inside, inside, nil},
		{"dot segments that stay inside", filepath.Join("talks", "..", "talks", "intro.m4a"), inside, nil},
		{"missing file inside", "later.wav", filepath.Join(root, "later.wav"), nil},
		{"relative escape", filepath.Join("..", filepath.Base(outsideDir), "secret.wav"), "", errOutsideInputDir},
		{"absolute outside", outside, "", errOutsideInputDir},
		{"missing file outside", filepath.Join(outsideDir, "nope.wav"), "", errOutsideInputDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveInput(root, tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveInputSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}

	root := resolveInputRoot(t.TempDir())
	outside := filepath.Join(t.TempDir(), "secret.wav")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	link := filepath.Join(root, "link.wav")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveInput(root, "link.wav"); !errors.Is(err, errOutsideInputDir) {
		t.Errorf("expected errOutsideInputDir through symlink, got %v", err)
	}

	dirLink := filepath.Join(root, "elsewhere")
	if err := os.Symlink(filepath.Dir(outside), dirLink); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveInput(root, filepath.Join("elsewhere", "secret.wav")); !errors.Is(err, errOutsideInputDir) {
		t.Errorf("expected errOutsideInputDir through directory symlink, got %v", err)
	}
}

func TestResolveInputRootDefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(wd)
	if err != nil {
		t.Fatal(err)
	}

	if got := resolveInputRoot(""); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
