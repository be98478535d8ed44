package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defineAllFlags(flags *pflag.FlagSet) {
	flags.StringP("data-path", "d", "", "Game data directory")
	flags.String("self-path", "", "Executable path")
	flags.String("game", DefaultGame, "Game")
	flags.String("language", DefaultLanguage, "Language")
	flags.String("masterlist", "", "Masterlist path")
	flags.String("userlist", "", "Userlist path")
	flags.String("masterlist-remote", "", "Masterlist remote")
	flags.String("masterlist-branch", DefaultMasterlistRef, "Masterlist branch")
	flags.String("masterlist-file", DefaultMasterlistFile, "Masterlist file")
	flags.Bool("update-masterlist", false, "Update masterlist")
	flags.String("git-backend", DefaultGitBackend, "Git backend")
	flags.StringSlice("masterlist-sparse-exclude", nil, "Sparse-checkout exclude pattern")
	flags.String("output-format", DefaultOutputFormat, "Output format")
	flags.Bool("no-tui", false, "Disable TUI")
	flags.Bool("show-history", false, "Show history")
	flags.BoolP("verbose", "v", false, "Verbose")
}

func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineAllFlags(flags)
	return flags
}

func TestLoadAndValidateRequiresDataPath(t *testing.T) {
	flags := newTestFlagSet()
	_, _, err := LoadAndValidate("", "", "v1", flags)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
	assert.Contains(t, err.Error(), "data path is required")
}

func TestLoadAndValidateAppliesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))

	cfg, logger, err := LoadAndValidate("", "", "v1", flags)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, DefaultGame, cfg.Game)
	assert.Equal(t, DefaultLanguage, cfg.Language)
	assert.Equal(t, DefaultGitBackend, cfg.GitBackend)
	assert.Equal(t, DefaultOutputFormat, cfg.OutputFormat)
	assert.True(t, cfg.TuiEnabled)
	absData, _ := filepath.Abs(dataDir)
	assert.Equal(t, absData, cfg.DataPath)
}

func TestLoadAndValidateFlagsOverrideDefaults(t *testing.T) {
	dataDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))
	require.NoError(t, flags.Set("game", "fallout4"))
	require.NoError(t, flags.Set("git-backend", "gogit"))
	require.NoError(t, flags.Set("output-format", "json"))
	require.NoError(t, flags.Set("verbose", "true"))
	require.NoError(t, flags.Set("no-tui", "true"))

	cfg, _, err := LoadAndValidate("", "", "v1", flags)
	require.NoError(t, err)
	assert.Equal(t, "fallout4", cfg.Game)
	assert.Equal(t, "gogit", cfg.GitBackend)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.TuiEnabled)
}

func TestLoadAndValidateRejectsUnknownGitBackend(t *testing.T) {
	dataDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))
	require.NoError(t, flags.Set("git-backend", "svn"))

	_, _, err := LoadAndValidate("", "", "v1", flags)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
	assert.Contains(t, err.Error(), "invalid git-backend")
}

func TestLoadAndValidateRejectsDataPathThatIsNotADirectory(t *testing.T) {
	dataDir := t.TempDir()
	filePath := filepath.Join(dataDir, "not-a-dir")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", filePath))

	_, _, err := LoadAndValidate("", "", "v1", flags)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoadAndValidateRequiresMasterlistRemoteWhenUpdating(t *testing.T) {
	dataDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))
	require.NoError(t, flags.Set("update-masterlist", "true"))

	_, _, err := LoadAndValidate("", "", "v1", flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update-masterlist requires --masterlist-remote")
}

func TestLoadAndValidateBindsSparseExcludeFlag(t *testing.T) {
	dataDir := t.TempDir()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))
	require.NoError(t, flags.Set("masterlist-sparse-exclude", "oblivion"))
	require.NoError(t, flags.Set("masterlist-sparse-exclude", "docs"))

	cfg, _, err := LoadAndValidate("", "", "v1", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"oblivion", "docs"}, cfg.MasterlistSparseExcludes)
}

func TestLoadAndValidateReadsConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "loot-sort.yaml")
	content := "game: starfield\nlanguage: fr\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))

	cfg, _, err := LoadAndValidate(configPath, "", "v1", flags)
	require.NoError(t, err)
	assert.Equal(t, "starfield", cfg.Game)
	assert.Equal(t, "fr", cfg.Language)
}

func TestLoadAndValidateUnknownProfileFails(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "loot-sort.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("game: skyrimse\n"), 0o644))

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("data-path", dataDir))

	_, _, err := LoadAndValidate(configPath, "missing-profile", "v1", flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "missing-profile" not found`)
}
