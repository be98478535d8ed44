// Package sorter is the database facade: it wires the leaf packages
// (metadata, condition, cache, graph, loadorder, git) together behind the
// orchestration entry point a caller actually wants, GenerateOrder, plus the
// metadata CRUD operations around it.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/CartoonFan/libloot/pkg/sorter/cache"
	"github.com/CartoonFan/libloot/pkg/sorter/condition"
	"github.com/CartoonFan/libloot/pkg/sorter/git"
	"github.com/CartoonFan/libloot/pkg/sorter/graph"
	"github.com/CartoonFan/libloot/pkg/sorter/loadorder"
	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

// Database is the facade a caller constructs once per game and uses for the
// lifetime of a session (re-entrant across instances, not thread-safe
// within one).
type Database struct {
	opts Options

	masterlist *metadata.MetadataDocument
	userlist   *metadata.MetadataDocument

	cacheManager CacheManager
	loadOrder    *loadorder.Handler
	evaluator    *condition.Evaluator
	updater      *git.Updater

	hooks  Hooks
	logger *slog.Logger
}

// New constructs a Database. DataPath, Decoder, and Probe are required;
// CacheManager, Hooks, and Logger each default to a concrete
// implementation when left nil.
func New(opts Options) (*Database, error) {
	if opts.DataPath == "" {
		return nil, fmt.Errorf("%w: DataPath is required", ErrInvalidArgument)
	}
	if opts.Decoder == nil {
		return nil, fmt.Errorf("%w: Decoder is required", ErrInvalidArgument)
	}
	if opts.Probe == nil {
		return nil, fmt.Errorf("%w: Probe is required", ErrInvalidArgument)
	}

	if opts.Logger == nil {
		opts.Logger = slog.NewTextHandler(os.Stderr, nil)
	}
	if opts.CacheManager == nil {
		opts.CacheManager = cache.New()
	}
	if opts.Hooks == nil {
		opts.Hooks = NoOpHooks{}
	}

	loadOrderHandler := loadorder.New(opts.Probe)
	evaluator := condition.New(opts.DataPath, opts.SelfPath, opts.CacheManager, loadOrderHandler, opts.CacheManager, opts.Logger)

	db := &Database{
		opts:         opts,
		masterlist:   metadata.New(),
		userlist:     metadata.New(),
		cacheManager: opts.CacheManager,
		loadOrder:    loadOrderHandler,
		evaluator:    evaluator,
		hooks:        opts.Hooks,
		logger:       slog.New(opts.Logger).With(slog.String("component", "database")),
	}
	return db, nil
}

// UseRepository wires a git.Repository into the Database so UpdateMasterlist
// becomes available; Options has no field for this because the repository
// backend (go-git vs. exec) is a CLI-layer concern, not a library default.
// sparseExcludes, if given, are pruned from the local clone after every
// fetch; see git.NewUpdater.
func (db *Database) UseRepository(repo git.Repository, sparseExcludes ...string) {
	db.updater = git.NewUpdater(repo, db.opts.Logger, sparseExcludes...)
}

// asFileAccess wraps a metadata-package document error as ErrFileAccess,
// leaving any other error (e.g. a context cancellation) untouched.
func asFileAccess(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, metadata.ErrDocumentRead) || errors.Is(err, metadata.ErrDocumentFormat) ||
		errors.Is(err, metadata.ErrDuplicatePlugin) || errors.Is(err, metadata.ErrDocumentWrite) ||
		errors.Is(err, metadata.ErrOverwriteRefused) {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return err
}

// LoadLists loads masterlistPath into the masterlist document and, if
// userlistPath is non-empty, userlistPath into the userlist document. Both
// loads are atomic-replace-on-failure: a failed userlist load does not
// disturb an already-loaded masterlist.
func (db *Database) LoadLists(masterlistPath, userlistPath string) error {
	if err := db.masterlist.Load(masterlistPath); err != nil {
		return asFileAccess(err)
	}
	if userlistPath == "" {
		db.userlist.Clear()
		return nil
	}
	if err := db.userlist.Load(userlistPath); err != nil {
		return asFileAccess(err)
	}
	return nil
}

// WriteUserMetadata serialises the userlist document to path. When
// overwrite is false and path already exists, this fails with
// ErrFileAccess rather than clobbering it.
func (db *Database) WriteUserMetadata(path string, overwrite bool) error {
	return db.writeGuarded(path, overwrite, db.userlist.Save)
}

// WriteMinimalList emits, to path, only the masterlist entries that carry
// tags or dirty_info, with every other field dropped.
func (db *Database) WriteMinimalList(path string, overwrite bool) error {
	minimal := metadata.New()
	for key, p := range db.masterlist.ExactPlugins {
		if m, ok := minimalEntry(p); ok {
			minimal.ExactPlugins[key] = m
		}
	}
	for _, p := range db.masterlist.RegexPlugins {
		if m, ok := minimalEntry(p); ok {
			minimal.RegexPlugins = append(minimal.RegexPlugins, m)
		}
	}
	return db.writeGuarded(path, overwrite, minimal.Save)
}

// minimalEntry strips p down to just its Tags and DirtyInfo, reporting
// false if neither is present (such an entry has nothing to contribute to a
// minimal list).
func minimalEntry(p metadata.PluginMetadata) (metadata.PluginMetadata, bool) {
	if len(p.Tags) == 0 && len(p.DirtyInfo) == 0 {
		return metadata.PluginMetadata{}, false
	}
	out := metadata.NewPluginMetadata(p.Name)
	out.Tags = p.Tags
	out.DirtyInfo = p.DirtyInfo
	return out, true
}

func (db *Database) writeGuarded(path string, overwrite bool, save func(string) error) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrFileAccess, metadata.ErrOverwriteRefused)
		}
	}
	return asFileAccess(save(path))
}

// GetKnownBashTags returns the union of both documents' bash-tag whitelist.
func (db *Database) GetKnownBashTags() []string {
	seen := make(map[string]struct{}, len(db.masterlist.BashTags)+len(db.userlist.BashTags))
	for t := range db.masterlist.BashTags {
		seen[t] = struct{}{}
	}
	for t := range db.userlist.BashTags {
		seen[t] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GetGeneralMessages returns both documents' non-plugin messages,
// optionally filtered by their conditions.
func (db *Database) GetGeneralMessages(evaluate bool) ([]metadata.Message, error) {
	all := make([]metadata.Message, 0, len(db.masterlist.Messages)+len(db.userlist.Messages))
	all = append(all, db.masterlist.Messages...)
	all = append(all, db.userlist.Messages...)
	if !evaluate {
		return all, nil
	}
	return db.filterMessages(all)
}

// GetPluginMetadata returns the masterlist entry for name, merged with the
// userlist entry when includeUser is set (userlist wins), optionally
// evaluated against the current condition context.
func (db *Database) GetPluginMetadata(name string, includeUser, evaluate bool) (metadata.PluginMetadata, error) {
	base, err := db.masterlist.FindPlugin(name)
	if err != nil {
		return metadata.PluginMetadata{}, asFileAccess(err)
	}
	merged := base
	if includeUser {
		incoming, err := db.userlist.FindPlugin(name)
		if err != nil {
			return metadata.PluginMetadata{}, asFileAccess(err)
		}
		merged = metadata.Merge(base, incoming)
	}
	if !evaluate {
		return merged, nil
	}
	return db.evaluateMetadata(merged)
}

// GetPluginUserMetadata returns only the userlist entry for name.
func (db *Database) GetPluginUserMetadata(name string, evaluate bool) (metadata.PluginMetadata, error) {
	entry, err := db.userlist.FindPlugin(name)
	if err != nil {
		return metadata.PluginMetadata{}, asFileAccess(err)
	}
	if !evaluate {
		return entry, nil
	}
	return db.evaluateMetadata(entry)
}

// SetPluginUserMetadata replaces the userlist entry sharing pm's identity
// (case-folded name for an exact entry, literal pattern for a regex entry).
func (db *Database) SetPluginUserMetadata(pm metadata.PluginMetadata) error {
	if !pm.IsRegex() {
		return db.userlist.AddPlugin(pm)
	}
	for i, existing := range db.userlist.RegexPlugins {
		if existing.Name == pm.Name {
			db.userlist.RegexPlugins[i] = pm
			return nil
		}
	}
	db.userlist.RegexPlugins = append(db.userlist.RegexPlugins, pm)
	return nil
}

// DiscardPluginUserMetadata removes name's exact userlist entry, if any.
func (db *Database) DiscardPluginUserMetadata(name string) {
	db.userlist.ErasePlugin(name)
}

// DiscardAllUserMetadata clears the entire userlist document.
func (db *Database) DiscardAllUserMetadata() {
	db.userlist.Clear()
}

// UpdateMasterlist fetches the masterlist repository and loads its current
// revision into the masterlist document. UseRepository must have been
// called first.
func (db *Database) UpdateMasterlist(ctx context.Context, localPath, remoteURL, branch, masterlistFile string) (bool, error) {
	if db.updater == nil {
		return false, fmt.Errorf("%w: no masterlist repository configured, call UseRepository first", ErrGitState)
	}
	changed, err := db.updater.Update(ctx, localPath, remoteURL, branch, masterlistFile, db.masterlist)
	if err != nil {
		if errors.Is(err, git.ErrInvalidArgument) {
			return false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if errors.Is(err, metadata.ErrDocumentFormat) || errors.Is(err, metadata.ErrDocumentRead) {
			return false, asFileAccess(err)
		}
		return false, fmt.Errorf("%w: %v", ErrGitState, err)
	}
	info, infoErr := db.updater.GetInfo(ctx, localPath, masterlistFile, true)
	revisionID := ""
	if infoErr == nil {
		revisionID = info.RevisionID
	}
	if hookErr := db.hooks.OnMasterlistUpdated(changed, revisionID); hookErr != nil {
		return changed, hookErr
	}
	return changed, nil
}

// GenerateOrder is the orchestration entry point: refresh the load-order
// handler, decode every installed plugin into the game cache, build a
// merged and evaluated view per plugin, and hand it to the graph sorter.
func (db *Database) GenerateOrder(ctx context.Context) (Report, error) {
	start := time.Now()

	if err := db.loadOrder.Refresh(ctx); err != nil {
		return Report{}, err
	}
	installed := db.loadOrder.InstalledPlugins()

	db.cacheManager.ClearCachedPlugins()
	for _, name := range installed {
		p, err := db.opts.Decoder.Decode(ctx, name, db.opts.GameKind)
		if err != nil {
			return Report{}, fmt.Errorf("%w: decoding %s: %v", ErrFileAccess, name, err)
		}
		db.cacheManager.AddPlugin(p)
	}

	if err := db.hooks.OnPluginsLoaded(len(installed)); err != nil {
		return Report{}, err
	}

	vertices, masterCount, err := db.buildVertices()
	if err != nil {
		return Report{}, err
	}

	order, sortErr := graph.Sort(vertices, graph.Options{
		Groups:         db.masterlist.Groups,
		PriorLoadOrder: db.loadOrder.LoadOrder(),
	}, db.opts.Logger)

	summary := ReportSummary{
		PluginCount:     len(vertices),
		MasterCount:     masterCount,
		DurationSeconds: time.Since(start).Seconds(),
		Timestamp:       start,
	}

	if sortErr != nil {
		var cyc *graph.CyclicInteraction
		if errors.As(sortErr, &cyc) {
			return Report{
				Summary: summary,
				CyclicInteraction: &CyclicInteractionInfo{
					Source: cyc.Source,
					Target: cyc.Target,
					Trail:  cyc.Trail,
				},
			}, fmt.Errorf("%w: %w", ErrCyclicInteraction, sortErr)
		}
		return Report{Summary: summary}, sortErr
	}

	if err := db.hooks.OnSortComplete(order); err != nil {
		return Report{Summary: summary, Order: order}, err
	}

	return Report{Summary: summary, Order: order}, nil
}

// buildVertices constructs one graph.Vertex per installed plugin: its
// merged-and-evaluated PluginMetadata (masterlist then userlist) laid over
// the decoder's structural facts.
func (db *Database) buildVertices() ([]graph.Vertex, int, error) {
	plugins := db.cacheManager.Plugins()
	vertices := make([]graph.Vertex, 0, len(plugins))
	masterCount := 0

	for _, p := range plugins {
		merged, err := db.GetPluginMetadata(p.Name(), true, true)
		if err != nil {
			return nil, 0, err
		}

		isMaster := p.IsMasterFlagged() || p.IsLightMediumOrUpdate()
		if isMaster {
			masterCount++
		}

		var afterFiles []string
		for fileName := range merged.Requirements {
			if db.cacheManager.IsLoadedPlugin(fileName) {
				afterFiles = append(afterFiles, fileName)
			}
		}
		for fileName := range merged.LoadAfter {
			if db.cacheManager.IsLoadedPlugin(fileName) {
				afterFiles = append(afterFiles, fileName)
			}
		}

		vertices = append(vertices, graph.Vertex{
			Name:           p.Name(),
			IsMaster:       isMaster,
			LoadsArchive:   p.LoadsArchive(),
			Masters:        p.Masters(),
			LocalPriority:  merged.Priority.Local,
			GlobalPriority: merged.Priority.Global,
			AfterFiles:     afterFiles,
			OverrideCount:  p.OverrideRecordCount(),
			Group:          merged.Group,
			Overlaps: func(self plugin.Plugin) func(string) bool {
				return func(other string) bool {
					op, ok := db.cacheManager.GetPlugin(other)
					if !ok {
						return false
					}
					return self.Overlaps(op)
				}
			}(p),
		})
	}

	return vertices, masterCount, nil
}

// evaluateMetadata filters every conditional field of pm down to the items
// whose condition currently evaluates true, then erases the conditions from
// the survivors.
func (db *Database) evaluateMetadata(pm metadata.PluginMetadata) (metadata.PluginMetadata, error) {
	out := pm

	messages, err := db.filterMessages(pm.Messages)
	if err != nil {
		return metadata.PluginMetadata{}, err
	}
	out.Messages = messages

	if out.LoadAfter, err = db.filterFiles(pm.LoadAfter); err != nil {
		return metadata.PluginMetadata{}, err
	}
	if out.Requirements, err = db.filterFiles(pm.Requirements); err != nil {
		return metadata.PluginMetadata{}, err
	}
	if out.Incompatibilities, err = db.filterFiles(pm.Incompatibilities); err != nil {
		return metadata.PluginMetadata{}, err
	}
	if out.Tags, err = db.filterTags(pm.Tags); err != nil {
		return metadata.PluginMetadata{}, err
	}

	out.DirtyInfo = make(map[uint32]metadata.PluginCleaningData, len(pm.DirtyInfo))
	for crc, d := range pm.DirtyInfo {
		info, err := db.filterMessages(d.Info)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		d.Info = info
		out.DirtyInfo[crc] = d
	}
	out.CleanInfo = make(map[uint32]metadata.PluginCleaningData, len(pm.CleanInfo))
	for crc, d := range pm.CleanInfo {
		info, err := db.filterMessages(d.Info)
		if err != nil {
			return metadata.PluginMetadata{}, err
		}
		d.Info = info
		out.CleanInfo[crc] = d
	}

	return out, nil
}

func (db *Database) evaluate(expr string) (bool, error) {
	ok, err := db.evaluator.Evaluate(expr)
	if err != nil {
		if errors.Is(err, condition.ErrUnsafePath) {
			return false, fmt.Errorf("%w: %v", ErrConditionSyntax, err)
		}
		if errors.Is(err, condition.ErrSyntax) {
			return false, fmt.Errorf("%w: %v", ErrConditionSyntax, err)
		}
		return false, err
	}
	return ok, nil
}

func (db *Database) filterMessages(in []metadata.Message) ([]metadata.Message, error) {
	out := make([]metadata.Message, 0, len(in))
	for _, m := range in {
		keep, err := db.evaluate(m.Condition)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		m.Condition = ""
		out = append(out, m)
	}
	return out, nil
}

func (db *Database) filterFiles(in map[string]metadata.File) (map[string]metadata.File, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]metadata.File, len(in))
	for key, f := range in {
		keep, err := db.evaluate(f.Condition)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		f.Condition = ""
		out[key] = f
	}
	return out, nil
}

func (db *Database) filterTags(in map[string]metadata.Tag) (map[string]metadata.Tag, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]metadata.Tag, len(in))
	for key, t := range in {
		keep, err := db.evaluate(t.Condition)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		t.Condition = ""
		out[key] = t
	}
	return out, nil
}
