package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
}

func TestLoadDirFiltersExecutables(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "3_convert.exe", "1_GEOMETRY.EXE", "relax3d.dat", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub.exe"), 0o755); err != nil {
		t.Fatal(err)
	}
	tools, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %+v", tools)
	}
	if tools[0].Name != "1_GEOMETRY" || tools[1].Name != "3_convert" {
		t.Fatalf("unexpected names: %+v", tools)
	}
	if !filepath.IsAbs(tools[0].Path) {
		t.Fatalf("path not absolute: %s", tools[0].Path)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVerifyNamesEveryMissingPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "2_initial.exe")
	err := Verify([]string{
		filepath.Join(dir, "2_initial.exe"),
		filepath.Join(dir, "4_clip.exe"),
		filepath.Join(dir, "5_exam.exe"),
	})
	var mt *MissingToolsError
	if !errors.As(err, &mt) {
		t.Fatalf("expected MissingToolsError, got %v", err)
	}
	if len(mt.Missing) != 2 {
		t.Fatalf("missing = %v", mt.Missing)
	}
	if err := Verify([]string{filepath.Join(dir, "2_initial.exe")}); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1_GEOMETRY.exe", "RELAX3D.exe")
	present, missing, err := Check(dir, []string{"1_GEOMETRY", "6_divide", "relax3d.exe"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(present) != 2 || len(missing) != 1 || missing[0] != "6_divide" {
		t.Fatalf("present=%+v missing=%v", present, missing)
	}
}
