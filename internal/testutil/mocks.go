// Package testutil provides mock implementations of the sorter module's
// capability interfaces (pkg/sorter and its leaf packages), so unit tests
// elsewhere in the module can isolate the component under test instead of
// wiring a real decoder, probe, or git repository.
package testutil

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/CartoonFan/libloot/pkg/sorter/git"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

// MockCacheManager mocks sorter.CacheManager (and, by structural
// assignability, condition.PluginSource/condition.ConditionCache).
type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) AddPlugin(p plugin.Plugin) { m.Called(p) }

func (m *MockCacheManager) GetPlugin(name string) (plugin.Plugin, bool) {
	args := m.Called(name)
	p, _ := args.Get(0).(plugin.Plugin)
	ok, _ := args.Get(1).(bool)
	return p, ok
}

func (m *MockCacheManager) Plugins() []plugin.Plugin {
	args := m.Called()
	ps, _ := args.Get(0).([]plugin.Plugin)
	return ps
}

func (m *MockCacheManager) ClearCachedPlugins() { m.Called() }

func (m *MockCacheManager) CacheArchivePaths(paths []string) { m.Called(paths) }

func (m *MockCacheManager) HasArchive(path string) bool {
	args := m.Called(path)
	ok, _ := args.Get(0).(bool)
	return ok
}

func (m *MockCacheManager) CacheCondition(expr string, result bool) { m.Called(expr, result) }

func (m *MockCacheManager) GetCachedCondition(expr string) (bool, bool) {
	args := m.Called(expr)
	result, _ := args.Get(0).(bool)
	ok, _ := args.Get(1).(bool)
	return result, ok
}

func (m *MockCacheManager) ClearCachedConditions() { m.Called() }

func (m *MockCacheManager) IsLoadedPlugin(name string) bool {
	args := m.Called(name)
	ok, _ := args.Get(0).(bool)
	return ok
}

func (m *MockCacheManager) PluginCRC(name string) (uint32, bool) {
	args := m.Called(name)
	crc, _ := args.Get(0).(uint32)
	ok, _ := args.Get(1).(bool)
	return crc, ok
}

func (m *MockCacheManager) PluginVersion(name string) (string, bool) {
	args := m.Called(name)
	v, _ := args.Get(0).(string)
	ok, _ := args.Get(1).(bool)
	return v, ok
}

// MockHooks mocks sorter.Hooks. Configure expectations with .On(...).
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnPluginsLoaded(count int) error {
	args := m.Called(count)
	return args.Error(0)
}

func (m *MockHooks) OnSortComplete(order []string) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockHooks) OnMasterlistUpdated(changed bool, revisionID string) error {
	args := m.Called(changed, revisionID)
	return args.Error(0)
}

// MockDecoder mocks plugin.Decoder.
type MockDecoder struct {
	mock.Mock
}

func (m *MockDecoder) Decode(ctx context.Context, path string, kind plugin.GameKind) (plugin.Plugin, error) {
	args := m.Called(ctx, path, kind)
	p, _ := args.Get(0).(plugin.Plugin)
	return p, args.Error(1)
}

// MockProbe mocks loadorder.Probe.
type MockProbe struct {
	mock.Mock
}

func (m *MockProbe) InstalledPlugins(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockProbe) ActivePlugins(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockProbe) LoadOrder(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// MockRepository mocks git.Repository, the masterlist transport.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) EnsureClone(ctx context.Context, localPath, remoteURL string) error {
	args := m.Called(ctx, localPath, remoteURL)
	return args.Error(0)
}

func (m *MockRepository) FetchAndTrack(ctx context.Context, localPath, branch string) (bool, error) {
	args := m.Called(ctx, localPath, branch)
	changed, _ := args.Get(0).(bool)
	return changed, args.Error(1)
}

func (m *MockRepository) DetachToParent(ctx context.Context, localPath string) error {
	args := m.Called(ctx, localPath)
	return args.Error(0)
}

func (m *MockRepository) GetInfo(ctx context.Context, localPath, filePath string, shortID bool) (git.RevisionInfo, error) {
	args := m.Called(ctx, localPath, filePath, shortID)
	info, _ := args.Get(0).(git.RevisionInfo)
	return info, args.Error(1)
}

// MockLoggerHandler mocks slog.Handler, for verifying specific log calls;
// prefer slog.NewTextHandler over a bytes.Buffer for simpler assertions and
// reach for this only when the call sequence itself must be checked.
type MockLoggerHandler struct {
	mock.Mock
}

func (m *MockLoggerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	args := m.Called(ctx, level)
	enabled, _ := args.Get(0).(bool)
	return enabled
}

func (m *MockLoggerHandler) Handle(ctx context.Context, r slog.Record) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockLoggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	args := m.Called(attrs)
	h, ok := args.Get(0).(slog.Handler)
	if !ok || h == nil {
		return m
	}
	return h
}

func (m *MockLoggerHandler) WithGroup(name string) slog.Handler {
	args := m.Called(name)
	h, ok := args.Get(0).(slog.Handler)
	if !ok || h == nil {
		return m
	}
	return h
}
