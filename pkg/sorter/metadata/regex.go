package metadata

import (
	"fmt"
	"regexp"
	"sync"
)

// regexCache memoises compiled patterns: the same regex plugin-metadata
// entry is tested against every installed plugin during a sort, so
// compiling once per pattern instead of once per (pattern, plugin) pair
// matters.
var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

// regexMatches reports whether name fully matches the ECMAScript-style,
// case-insensitive pattern, per regex plugin-metadata entries.
func regexMatches(pattern, name string) (bool, error) {
	re, err := compileRegex(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex plugin entry %q: %v", ErrDocumentFormat, pattern, err)
	}
	regexCache[pattern] = re
	return re, nil
}
