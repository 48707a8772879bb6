package repository

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitRepository extends LocalRepository with git-awareness.
// File listing and grepping are restricted to files tracked in HEAD,
// which naturally excludes build artifacts and vendored junk.
// ReadFile and FileExists work on all files regardless of tracking.
type GitRepository struct {
	*LocalRepository
	repo      *goGit.Repository
	isGitRepo bool
}

// NewGitRepository creates a git-aware repository.
// If the directory is not a git repository, it behaves like LocalRepository.
func NewGitRepository(root string) *GitRepository {
	r := &GitRepository{
		LocalRepository: NewLocalRepository(root),
	}

	repo, err := goGit.PlainOpenWithOptions(root, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		r.repo = repo
		r.isGitRepo = true
	}
	return r
}

// IsGitRepo reports whether the root directory is inside a git repository.
func (r *GitRepository) IsGitRepo() bool {
	return r.isGitRepo
}

// ListFiles returns the files tracked in HEAD, relative to the root.
// Falls back to a filesystem walk for non-git directories or empty
// repositories with no commits yet.
func (r *GitRepository) ListFiles() ([]string, error) {
	if !r.isGitRepo {
		return r.LocalRepository.ListFiles()
	}

	files, err := r.trackedFiles()
	if err != nil {
		// Repo exists but has no commits; walk instead
		return r.LocalRepository.ListFiles()
	}
	return files, nil
}

// Glob returns file paths matching the pattern, restricted to tracked files.
func (r *GitRepository) Glob(pattern string) ([]string, error) {
	matches, err := r.LocalRepository.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if !r.isGitRepo {
		return matches, nil
	}

	tracked, err := r.trackedFiles()
	if err != nil {
		return matches, nil
	}
	trackedSet := make(map[string]bool, len(tracked))
	for _, f := range tracked {
		trackedSet[f] = true
	}

	filtered := make([]string, 0, len(matches))
	for _, m := range matches {
		if trackedSet[filepath.ToSlash(m)] {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Grep searches for a pattern across tracked files.
// When explicit paths are given they are searched as-is.
func (r *GitRepository) Grep(pattern string, paths ...string) ([]GrepMatch, error) {
	if !r.isGitRepo || len(paths) > 0 {
		return r.LocalRepository.Grep(pattern, paths...)
	}

	files, err := r.trackedFiles()
	if err != nil {
		return r.LocalRepository.Grep(pattern)
	}
	return r.LocalRepository.Grep(pattern, files...)
}

// CurrentBranch returns the name of the checked-out branch.
func (r *GitRepository) CurrentBranch() (string, error) {
	if !r.isGitRepo {
		return "", fmt.Errorf("not a git repository")
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// HeadCommit returns the hash of the current HEAD commit.
func (r *GitRepository) HeadCommit() (string, error) {
	if !r.isGitRepo {
		return "", fmt.Errorf("not a git repository")
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// trackedFiles lists every non-binary file in the HEAD commit tree.
func (r *GitRepository) trackedFiles() ([]string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolve tree: %w", err)
	}

	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if isBinaryFile(f.Name) || strings.HasPrefix(filepath.Base(f.Name), ".") {
			return nil
		}
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
