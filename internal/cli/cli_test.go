package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/internal/cli/config"
	"github.com/CartoonFan/libloot/internal/testutil"
	"github.com/CartoonFan/libloot/pkg/sorter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunSortRequiresDecoderAndProbe(t *testing.T) {
	_, err := RunSort(context.Background(), testConfig(t), testLogger(), sorter.Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestRunSortSucceedsWithCollaboratorsSupplied(t *testing.T) {
	dataPath := t.TempDir()
	masterlistPath := filepath.Join(t.TempDir(), "masterlist.yaml")
	testutil.CreateDummyFile(t, masterlistPath, "plugins: []\n")

	probe := new(testutil.MockProbe)
	probe.On("InstalledPlugins", mock.Anything).Return([]string{}, nil)
	probe.On("ActivePlugins", mock.Anything).Return([]string{}, nil)
	probe.On("LoadOrder", mock.Anything).Return([]string{}, nil)
	decoder := new(testutil.MockDecoder)

	cfg := testConfig(t)
	cfg.DataPath = dataPath
	cfg.MasterlistPath = masterlistPath

	opts := sorter.Options{Decoder: decoder, Probe: probe}
	report, err := RunSort(context.Background(), cfg, testLogger(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.PluginCount)
	assert.Empty(t, report.Order)
}

func TestRunValidateReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masterlist.yaml")
	testutil.CreateDummyFile(t, path, "not: [valid, yaml: structure\n")

	report := RunValidate(path)
	assert.False(t, report.ParsedOK)
	assert.NotEmpty(t, report.ErrorMessage)
}

func TestRunValidateReportsPluginAndGroupCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masterlist.yaml")
	testutil.CreateDummyFile(t, path, `
plugins:
  - name: a.esm
  - name: b.esp
groups:
  - name: default
`)

	report := RunValidate(path)
	require.True(t, report.ParsedOK)
	assert.Equal(t, 2, report.PluginCount)
	assert.Equal(t, 1, report.GroupCount)
}

func TestRunValidateReportsSchemaViolations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masterlist.yaml")
	testutil.CreateDummyFile(t, path, `
plugins:
  - name: a.esm
    bogus_key: true
`)

	report := RunValidate(path)
	assert.False(t, report.ParsedOK)
	assert.NotEmpty(t, report.SchemaViolations)
}

func TestRunExplainParseOnlyModeAlwaysFalse(t *testing.T) {
	result, err := RunExplain(t.TempDir(), "", `many("*.esp")`, testLogger())
	require.NoError(t, err)
	assert.False(t, result)
}

func TestRunExplainEmptyConditionIsTrue(t *testing.T) {
	result, err := RunExplain(t.TempDir(), "", "", testLogger())
	require.NoError(t, err)
	assert.True(t, result)
}

func TestRunExplainSyntaxError(t *testing.T) {
	_, err := RunExplain(t.TempDir(), "", "not(", testLogger())
	require.Error(t, err)
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		DataPath:         t.TempDir(),
		Game:             "skyrimse",
		Language:         "en",
		TuiEnabled:       false,
		MasterlistBranch: config.DefaultMasterlistRef,
		MasterlistFile:   config.DefaultMasterlistFile,
	}
}
