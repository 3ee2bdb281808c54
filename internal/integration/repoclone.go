// Package integration wraps the external collaborators: git, the extraction
// model CLI, and the coding agents. Everything here shells out; state
// recording stays in core.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// docExtensions are the file suffixes kept after a clone. Everything else is
// stripped so extraction only sees documentation and config files.
var docExtensions = map[string]bool{
	".md":   true,
	".mdx":  true,
	".toml": true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// RepoCloner materializes benchmark repositories with git.
type RepoCloner struct {
	gitCommand string
}

// NewRepoCloner creates a RepoCloner using the given git binary, or "git"
// when empty.
func NewRepoCloner(gitCommand string) *RepoCloner {
	if gitCommand == "" {
		gitCommand = "git"
	}
	return &RepoCloner{gitCommand: gitCommand}
}

// Clone performs a shallow clone of repoURL into dir and strips files that
// are not documentation. The destination directory is left in place on
// failure; the caller decides whether to discard the whole run.
func (c *RepoCloner) Clone(ctx context.Context, repoURL, branch, dir string) error {
	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repoURL, dir)

	cmd := exec.CommandContext(ctx, c.gitCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cloning %s: %v: %s", repoURL, err, strings.TrimSpace(stderr.String()))
	}

	if err := StripNonDocumentation(dir); err != nil {
		return fmt.Errorf("cloning %s: %w", repoURL, err)
	}
	return nil
}

// StripNonDocumentation removes every file whose extension is not a
// documentation or config format, then prunes directories left empty. The
// .git directory is preserved untouched.
func StripNonDocumentation(repoDir string) error {
	var dirs []string
	err := filepath.Walk(repoDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" && path != repoDir {
				return filepath.SkipDir
			}
			if path != repoDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !docExtensions[strings.ToLower(filepath.Ext(path))] {
			// Unremovable files are left behind rather than failing the run.
			_ = os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stripping non-documentation files: %w", err)
	}

	// Deepest first so emptied parents are removable too.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}

// FindMarkdownFiles returns all .md and .mdx files under repoDir, sorted.
// With includeFolders set, only paths whose run-relative directory contains
// one of the folder names are returned.
func FindMarkdownFiles(repoDir string, includeFolders []string) ([]string, error) {
	var files []string
	err := filepath.Walk(repoDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" && path != repoDir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".mdx" {
			return nil
		}
		if len(includeFolders) > 0 {
			rel, relErr := filepath.Rel(repoDir, filepath.Dir(path))
			if relErr != nil {
				return relErr
			}
			matched := false
			for _, folder := range includeFolders {
				if strings.Contains(rel, folder) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding markdown files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
