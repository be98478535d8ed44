package condition

import (
	"fmt"
	"strings"
)

// validateRelativePath rejects a path argument containing two consecutive
// ".." components anywhere in its "/"-split walk. A single ".." is
// tolerated (some masterlists reference a sibling data folder one level
// up), but two in a row is treated as an attempt to escape the data
// directory outright.
func validateRelativePath(p string) error {
	parts := strings.Split(filepathToSlash(p), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == ".." && parts[i+1] == ".." {
			return fmt.Errorf("%w: %q escapes the data directory", ErrUnsafePath, p)
		}
	}
	return nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// splitManyPattern splits a many/many_active argument at the last "/" into
// a non-regex parent directory and a regex filename.
func splitManyPattern(pattern string) (parent, filenameRegex string) {
	idx := strings.LastIndex(pattern, "/")
	if idx < 0 {
		return "", pattern
	}
	return pattern[:idx], pattern[idx+1:]
}
