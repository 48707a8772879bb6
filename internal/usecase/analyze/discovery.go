package analyze

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Repository is the narrow file source the orchestrator needs. The git
// aware implementation lists tracked files; the plain one walks the
// tree.
type Repository interface {
	Root() string
	ListFiles() ([]string, error)
	Glob(pattern string) ([]string, error)
}

// DiscoverFiles resolves the set of files to analyze. Include patterns
// union together; an empty include list means every listed file.
// Exclude patterns are applied afterwards. The result is root-relative,
// deduplicated, and sorted.
func DiscoverFiles(repo Repository, include, exclude []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	add := func(paths []string) {
		for _, p := range paths {
			p = filepath.ToSlash(p)
			if !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
	}

	if len(include) == 0 {
		listed, err := repo.ListFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to list repository files: %w", err)
		}
		add(listed)
	} else {
		for _, pattern := range include {
			matches, err := repo.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
			}
			add(matches)
		}
	}

	if len(exclude) > 0 {
		kept := files[:0]
		for _, f := range files {
			if !matchesAny(f, exclude) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	sort.Strings(files)
	return files, nil
}

// matchesAny reports whether path matches any of the patterns. A
// pattern matches against the full relative path, the base name, or as
// a directory prefix (so "vendor" excludes everything under vendor/).
func matchesAny(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
		if !strings.ContainsAny(pattern, "*?[") &&
			(path == pattern || strings.HasPrefix(path, pattern+"/")) {
			return true
		}
	}
	return false
}
