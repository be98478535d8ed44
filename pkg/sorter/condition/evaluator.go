package condition

import (
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CartoonFan/libloot/pkg/sorter/version"
)

// sentinelLOOT is the special "file" argument that refers to this program
// itself rather than to a data-directory path.
const sentinelLOOT = "LOOT"

// PluginSource answers the questions an evaluator needs about a plugin that
// is currently loaded into the game cache. Implemented by pkg/sorter/cache.
type PluginSource interface {
	IsLoadedPlugin(name string) bool
	PluginCRC(name string) (crc uint32, ok bool)
	PluginVersion(name string) (v string, ok bool)
}

// LoadOrderHandler answers whether a plugin is in the active set.
type LoadOrderHandler interface {
	IsActive(name string) bool
}

// ConditionCache memoises full condition-string results, keyed on the
// literal condition text.
type ConditionCache interface {
	GetCachedCondition(expr string) (result bool, ok bool)
	CacheCondition(expr string, result bool)
}

// Evaluator evaluates condition strings against a data directory, a
// plugin/load-order view, and an optional memoising cache.
type Evaluator struct {
	dataPath  string
	selfPath  string
	plugins   PluginSource
	loadOrder LoadOrderHandler
	cache     ConditionCache
	crc32     func([]byte) uint32
	logger    *slog.Logger
}

// New returns an Evaluator. plugins and loadOrder may be nil, in which case
// every Evaluate call runs in parse-only mode: syntax is still checked, but
// no predicate is actually evaluated.
func New(dataPath, selfPath string, plugins PluginSource, loadOrder LoadOrderHandler, cache ConditionCache, loggerHandler slog.Handler) *Evaluator {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	return &Evaluator{
		dataPath:  dataPath,
		selfPath:  selfPath,
		plugins:   plugins,
		loadOrder: loadOrder,
		cache:     cache,
		crc32:     crc32.ChecksumIEEE,
		logger:    slog.New(loggerHandler).With(slog.String("component", "conditionEvaluator")),
	}
}

// live reports whether both the plugin/load-order view and the cache were
// supplied.
func (e *Evaluator) live() bool {
	return e.plugins != nil && e.loadOrder != nil && e.cache != nil
}

// CheckSyntax parses expr and discards the result, returning only a syntax
// error if any.
func CheckSyntax(expr string) error {
	_, err := Parse(expr)
	return err
}

// Evaluate parses and evaluates expr. An empty expression is always true.
// In parse-only mode the syntax is validated but every non-empty
// expression evaluates to false. In live mode the result is memoised in
// the cache keyed on the exact condition string.
func (e *Evaluator) Evaluate(expr string) (bool, error) {
	trimmed := strings.TrimSpace(expr)
	ast, err := Parse(expr)
	if err != nil {
		return false, err
	}
	if trimmed == "" {
		return true, nil
	}
	if !e.live() {
		return false, nil
	}

	if cached, ok := e.cache.GetCachedCondition(expr); ok {
		return cached, nil
	}

	ctx := &evalContext{eval: e}
	result, err := ast.eval(ctx)
	if err != nil {
		return false, err
	}
	e.cache.CacheCondition(expr, result)
	return result, nil
}

// evalContext carries the Evaluator through AST evaluation; kept separate
// from Evaluator itself so ast.go's node types don't need to know about
// construction details.
type evalContext struct {
	eval *Evaluator
}

func (c *evalContext) evalFile(p string) (bool, error) {
	if p == sentinelLOOT {
		return true, nil
	}
	if err := validateRelativePath(p); err != nil {
		return false, err
	}
	if c.eval.plugins != nil && c.eval.plugins.IsLoadedPlugin(p) {
		return true, nil
	}
	full := filepath.Join(c.eval.dataPath, p)
	if fileExists(full) {
		return true, nil
	}
	if hasPluginExtension(p) && fileExists(full+".ghost") {
		return true, nil
	}
	return false, nil
}

func (c *evalContext) evalActive(p string) (bool, error) {
	if p == sentinelLOOT {
		return false, nil
	}
	if err := validateRelativePath(p); err != nil {
		return false, err
	}
	return c.eval.loadOrder.IsActive(p), nil
}

// evalMany reports whether more than one entry in pattern's parent directory
// matches its filename regex (requireActive additionally restricts matches
// to plugins active in the current load order). many and many_active both
// require strictly more than one match; "many" is not satisfied by a single
// matching file.
func (c *evalContext) evalMany(pattern string, requireActive bool) (bool, error) {
	parent, filenamePattern := splitManyPattern(pattern)
	if err := validateRelativePath(parent); err != nil {
		return false, err
	}
	re, err := regexp.Compile("(?i)^(?:" + filenamePattern + ")$")
	if err != nil {
		return false, fmt.Errorf("%w: invalid regex in many/many_active: %v", ErrSyntax, err)
	}

	dir := filepath.Join(c.eval.dataPath, parent)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, nil // missing parent directory -> false
	}

	matchCount := 0
	for _, entry := range entries {
		if !re.MatchString(entry.Name()) {
			continue
		}
		if requireActive {
			if c.eval.loadOrder.IsActive(entry.Name()) {
				matchCount++
			}
			continue
		}
		matchCount++
	}

	return matchCount >= 2, nil
}

func (c *evalContext) evalChecksum(p, hex string) (bool, error) {
	want, err := parseHexUint32(hex)
	if err != nil {
		return false, err
	}

	if p == sentinelLOOT {
		data, err := os.ReadFile(c.eval.selfPath)
		if err != nil {
			return false, nil
		}
		return c.eval.crc32(data) == want, nil
	}

	if err := validateRelativePath(p); err != nil {
		return false, err
	}

	if c.eval.plugins != nil {
		if crc, ok := c.eval.plugins.PluginCRC(p); ok {
			return crc == want, nil
		}
	}

	full := filepath.Join(c.eval.dataPath, p)
	data, err := os.ReadFile(full)
	if err != nil {
		if hasPluginExtension(p) {
			data, err = os.ReadFile(full + ".ghost")
		}
		if err != nil {
			return false, nil
		}
	}
	return c.eval.crc32(data) == want, nil
}

func (c *evalContext) evalVersion(p, want, cmp string) (bool, error) {
	if err := validateRelativePath(p); err != nil {
		return false, err
	}

	full := filepath.Join(c.eval.dataPath, p)
	exists := fileExists(full)
	if !exists && c.eval.plugins != nil {
		exists = c.eval.plugins.IsLoadedPlugin(p)
	}
	if !exists {
		switch cmp {
		case "!=", "<", "<=":
			return true, nil
		default:
			return false, nil
		}
	}

	var actual string
	if c.eval.plugins != nil {
		if v, ok := c.eval.plugins.PluginVersion(p); ok {
			actual = v
		}
	}

	got := version.Parse(actual)
	target := version.Parse(want)
	cmpResult := version.Compare(got, target)

	switch cmp {
	case "==":
		return cmpResult == 0, nil
	case "!=":
		return cmpResult != 0, nil
	case "<":
		return cmpResult < 0, nil
	case "<=":
		return cmpResult <= 0, nil
	case ">":
		return cmpResult > 0, nil
	case ">=":
		return cmpResult >= 0, nil
	default:
		return false, fmt.Errorf("%w: unrecognised comparison operator %q", ErrSyntax, cmp)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasPluginExtension(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".esp" || ext == ".esm" || ext == ".esl"
}

func parseHexUint32(hex string) (uint32, error) {
	var v uint64
	for _, r := range hex {
		v <<= 4
		switch {
		case r >= '0' && r <= '9':
			v |= uint64(r - '0')
		case r >= 'a' && r <= 'f':
			v |= uint64(r-'a') + 10
		case r >= 'A' && r <= 'F':
			v |= uint64(r-'A') + 10
		default:
			return 0, fmt.Errorf("%w: %q is not hexadecimal", ErrSyntax, hex)
		}
	}
	return uint32(v), nil
}
