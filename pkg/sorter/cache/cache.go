// Package cache implements the in-process game cache: a registry of loaded
// plugin descriptors, the known archive-path set, and a memoising
// condition-result cache, guarded for re-entrant-but-not-concurrent use.
package cache

import (
	"regexp"
	"strings"
	"sync"

	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

// GameCache holds plugins keyed by case-folded name (insertion-overwrite),
// an archive-path set, and a condition-result cache. It implements
// condition.PluginSource and condition.ConditionCache directly so it can be
// passed straight to condition.New.
type GameCache struct {
	mu             sync.RWMutex
	plugins        map[string]plugin.Plugin
	archivePaths   map[string]struct{}
	conditionCache map[string]bool
}

// New returns an empty GameCache.
func New() *GameCache {
	return &GameCache{
		plugins:        make(map[string]plugin.Plugin),
		archivePaths:   make(map[string]struct{}),
		conditionCache: make(map[string]bool),
	}
}

// AddPlugin replaces the entry keyed by p.Name, case-folded. Adding a
// plugin clears the condition cache, since condition results may depend on
// the plugin set.
func (c *GameCache) AddPlugin(p plugin.Plugin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins[metadata.Fold(p.Name())] = p
	c.conditionCache = make(map[string]bool)
}

// GetPlugin returns the plugin registered under name, case-insensitively.
func (c *GameCache) GetPlugin(name string) (plugin.Plugin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plugins[metadata.Fold(name)]
	return p, ok
}

// Plugins returns every currently loaded plugin, in no particular order.
// Callers that need a stable order (the sorter) must sort the result
// themselves.
func (c *GameCache) Plugins() []plugin.Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]plugin.Plugin, 0, len(c.plugins))
	for _, p := range c.plugins {
		out = append(out, p)
	}
	return out
}

// ClearCachedPlugins empties the plugin set and, along with it, the
// condition cache.
func (c *GameCache) ClearCachedPlugins() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = make(map[string]plugin.Plugin)
	c.conditionCache = make(map[string]bool)
}

// CacheArchivePaths replaces the known archive-path set and clears the
// condition cache.
func (c *GameCache) CacheArchivePaths(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		next[p] = struct{}{}
	}
	c.archivePaths = next
	c.conditionCache = make(map[string]bool)
}

// HasArchive reports whether path is a known archive.
func (c *GameCache) HasArchive(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.archivePaths[path]
	return ok
}

// CacheCondition implements condition.ConditionCache.
func (c *GameCache) CacheCondition(expr string, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conditionCache[expr] = result
}

// GetCachedCondition implements condition.ConditionCache.
func (c *GameCache) GetCachedCondition(expr string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.conditionCache[expr]
	return v, ok
}

// ClearCachedConditions empties only the condition cache.
func (c *GameCache) ClearCachedConditions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conditionCache = make(map[string]bool)
}

// IsLoadedPlugin implements condition.PluginSource.
func (c *GameCache) IsLoadedPlugin(name string) bool {
	_, ok := c.GetPlugin(name)
	return ok
}

// PluginCRC implements condition.PluginSource.
func (c *GameCache) PluginCRC(name string) (uint32, bool) {
	p, ok := c.GetPlugin(name)
	if !ok {
		return 0, false
	}
	return p.CRC(), true
}

// versionPattern extracts a LOOT-style version token from a plugin's free
// text header description, e.g. "Requires SkyUI. Version 2.1a" -> "2.1a".
var versionPattern = regexp.MustCompile(`(?i)(?:version|ver\.?|v)\s*[:=]?\s*([0-9][0-9a-zA-Z.\-]*)`)

// PluginVersion implements condition.PluginSource by extracting a version
// token from the plugin's header description.
func (c *GameCache) PluginVersion(name string) (string, bool) {
	p, ok := c.GetPlugin(name)
	if !ok {
		return "", false
	}
	match := versionPattern.FindStringSubmatch(p.HeaderDescription())
	if match == nil {
		return "", false
	}
	return strings.TrimRight(match[1], ".-"), true
}
