// Package util holds small path-matching helpers shared by the rest of the
// module.
package util

import (
	"path/filepath"
	"strings"
)

// MatchesGitignore reports whether pathToMatchRel (relative to
// walkerBaseAbsPath) is matched by a single gitignore-style pattern defined
// relative to patternBaseAbsPath. isRooted marks a pattern that only matches
// at patternBaseAbsPath itself (a leading "/" in gitignore syntax), as
// opposed to one that matches at any depth beneath it. A pattern that
// matches a directory also matches every path beneath that directory, and a
// path outside patternBaseAbsPath never matches.
//
// This is a simplified implementation built on filepath.Match; it does not
// reproduce every gitignore "**" edge case ("**" spans exactly one path
// component, like "*"), which is enough for the
// masterlist sparse-checkout excludes it backs: a short, user-supplied
// pattern list, not an arbitrary .gitignore file.
func MatchesGitignore(pattern, patternBaseAbsPath, walkerBaseAbsPath, pathToMatchRel string, isRooted bool) bool {
	pattern = filepath.ToSlash(pattern)
	pathToMatchRel = filepath.ToSlash(pathToMatchRel)
	if pattern == "" || pathToMatchRel == "" || pathToMatchRel == "." {
		return false
	}

	pathToMatchAbs := filepath.Join(walkerBaseAbsPath, pathToMatchRel)
	pathRelToPatternBase, err := filepath.Rel(patternBaseAbsPath, pathToMatchAbs)
	if err != nil {
		return false
	}
	pathRelToPatternBase = filepath.ToSlash(pathRelToPatternBase)
	if pathRelToPatternBase == ".." || strings.HasPrefix(pathRelToPatternBase, "../") {
		return false
	}

	// Try every run of consecutive components (only runs starting at the
	// first component when rooted), so a directory pattern also matches the
	// paths beneath that directory.
	pattern = strings.TrimSuffix(pattern, "/")
	parts := strings.Split(pathRelToPatternBase, "/")
	for i := range parts {
		if isRooted && i > 0 {
			break
		}
		for j := i + 1; j <= len(parts); j++ {
			if match, _ := filepath.Match(pattern, strings.Join(parts[i:j], "/")); match {
				return true
			}
		}
	}
	return false
}
