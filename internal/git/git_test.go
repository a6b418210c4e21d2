package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	return dir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestCheck(t *testing.T) {
	dir := initRepo(t)
	write := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		return p
	}

	tracked := write("tracked.txt")
	ignored := write("ignored.txt")
	loose := write("loose.txt")
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("ignored.txt\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	run(t, dir, "add", "tracked.txt")
	run(t, dir, "commit", "-q", "-m", "init")

	outside := filepath.Join(t.TempDir(), "elsewhere.txt")
	exposures := Check([]string{tracked, ignored, loose, outside})
	if len(exposures) != 3 {
		t.Fatalf("Expected 3 exposures, got %+v", exposures)
	}
	if !exposures[0].Tracked {
		t.Error("tracked.txt should be tracked")
	}
	if exposures[1].Tracked || !exposures[1].Ignored {
		t.Errorf("ignored.txt = %+v", exposures[1])
	}
	if exposures[2].Tracked || exposures[2].Ignored {
		t.Errorf("loose.txt = %+v", exposures[2])
	}

	warnings := Warnings(exposures)
	if len(warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "history") || !strings.Contains(warnings[1], ".gitignore") {
		t.Errorf("Warnings = %v", warnings)
	}
}
