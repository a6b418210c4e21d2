package git

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// Exposure describes how git holds a plaintext path
type Exposure struct {
	Path    string
	Tracked bool // content is in the index or history
	Ignored bool
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--error-unmatch", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check reports the git exposure of each absolute path. Paths outside any
// work tree are omitted.
func Check(paths []string) []Exposure {
	var out []Exposure
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !IsGitRepo(dir) {
			continue
		}
		name := filepath.Base(p)
		out = append(out, Exposure{
			Path:    p,
			Tracked: IsTracked(dir, name),
			Ignored: IsIgnored(dir, name),
		})
	}
	return out
}

// Warnings formats the exposures that leave plaintext behind after a shred
func Warnings(exposures []Exposure) []string {
	var out []string
	for _, e := range exposures {
		switch {
		case e.Tracked:
			out = append(out, e.Path+" is tracked by git; its content survives in the repository history")
		case !e.Ignored:
			out = append(out, e.Path+" is not in .gitignore; a restored copy could be committed")
		}
	}
	return out
}
