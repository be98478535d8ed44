package sorter

import (
	"log/slog"

	"github.com/CartoonFan/libloot/pkg/sorter/loadorder"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

// Hooks defines callbacks for status updates during a Database's lifetime.
// Implementations must be safe for single-threaded-cooperative usage; they
// are never called concurrently by this package.
type Hooks interface {
	OnPluginsLoaded(count int) error
	OnSortComplete(order []string) error
	OnMasterlistUpdated(changed bool, revisionID string) error
}

// NoOpHooks is the default, do-nothing Hooks implementation used when
// Options.Hooks is nil.
type NoOpHooks struct{}

func (NoOpHooks) OnPluginsLoaded(count int) error                           { return nil }
func (NoOpHooks) OnSortComplete(order []string) error                       { return nil }
func (NoOpHooks) OnMasterlistUpdated(changed bool, revisionID string) error { return nil }

// CacheManager is the subset of *cache.GameCache the facade and the
// condition evaluator depend on. Defined here, rather than imported
// directly from pkg/sorter/cache, so a caller can supply an alternate
// implementation (a test double, or a cache backed by something other than
// an in-process map).
type CacheManager interface {
	AddPlugin(p plugin.Plugin)
	GetPlugin(name string) (plugin.Plugin, bool)
	Plugins() []plugin.Plugin
	ClearCachedPlugins()
	CacheArchivePaths(paths []string)
	HasArchive(path string) bool
	CacheCondition(expr string, result bool)
	GetCachedCondition(expr string) (bool, bool)
	ClearCachedConditions()
	IsLoadedPlugin(name string) bool
	PluginCRC(name string) (uint32, bool)
	PluginVersion(name string) (string, bool)
}

// Options configures a Database. DataPath, Decoder, and Probe are required;
// every other field has a working default.
type Options struct {
	// DataPath is the game's data directory, the root every condition-
	// language path predicate resolves against.
	DataPath string
	// SelfPath is the host executable's own path, used by checksum("LOOT",...).
	SelfPath string
	// GameKind selects the plugin decoder's master/light-flag conventions.
	GameKind plugin.GameKind
	// PreferredLanguage selects which Message.Content entry GetGeneralMessages
	// and plugin messages localise to; falls back to "en".
	PreferredLanguage string

	// Decoder yields Plugin descriptors for installed plugin files. Required:
	// the binary format is an external collaborator, so there is no usable
	// default.
	Decoder plugin.Decoder
	// Probe answers installed/active/load-order queries. Required for the
	// same reason as Decoder.
	Probe loadorder.Probe

	// CacheManager defaults to cache.New() when nil.
	CacheManager CacheManager
	// Hooks defaults to NoOpHooks{} when nil.
	Hooks Hooks
	// Logger defaults to a stderr text handler when nil.
	Logger slog.Handler
}
