// Package config loads the CLI's configuration surface: viper layers
// defaults, config file, environment, and flags (in ascending priority),
// the result is unmarshalled into a plain struct, then validated and
// derived into the values the rest of the CLI needs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "LOOTSORT"
	DefaultConfigName = "loot-sort"

	DefaultGame           = "skyrimse"
	DefaultLanguage       = "en"
	DefaultMasterlistFile = "masterlist.yaml"
	DefaultMasterlistRef  = "master"
	DefaultGitBackend     = "exec"
	DefaultOutputFormat   = "text"
)

var ErrConfigValidation = errors.New("invalid configuration")

// AppConfig is the CLI's fully resolved configuration: everything
// sorter.Options needs in string/bool form, plus the masterlist-transport
// and presentation settings that are CLI-only concerns.
type AppConfig struct {
	DataPath string `mapstructure:"dataPath"`
	SelfPath string `mapstructure:"selfPath"`
	Game     string `mapstructure:"game"`
	Language string `mapstructure:"language"`

	MasterlistPath           string   `mapstructure:"masterlistPath"`
	UserlistPath             string   `mapstructure:"userlistPath"`
	MasterlistRemote         string   `mapstructure:"masterlistRemote"`
	MasterlistBranch         string   `mapstructure:"masterlistBranch"`
	MasterlistFile           string   `mapstructure:"masterlistFile"`
	UpdateMasterlist         bool     `mapstructure:"updateMasterlist"`
	GitBackend               string   `mapstructure:"gitBackend"`
	MasterlistSparseExcludes []string `mapstructure:"masterlistSparseExcludes"`

	OutputFormat string `mapstructure:"outputFormat"`
	TuiEnabled   bool   `mapstructure:"tuiEnabled"`
	Verbose      bool   `mapstructure:"verbose"`
	ShowHistory  bool   `mapstructure:"showHistory"`

	ConfigFilePath string
	ProfileName    string
	AppVersion     string
}

// LoadAndValidate loads configuration from defaults, an optional config
// file, the LOOTSORT_* environment, and flags (flags win), then validates
// and derives the result.
func LoadAndValidate(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (AppConfig, *slog.Logger, error) {
	var cfg AppConfig
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("no configuration file found, using defaults/env/flags")
		} else {
			return cfg, tempLogger, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		cfg.ConfigFilePath = v.ConfigFileUsed()
	}

	cfg.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			return cfg, tempLogger, fmt.Errorf("%w: profile %q not found in config file", ErrConfigValidation, profileName)
		}
		profileSettings := v.Sub(profileKey)
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			return cfg, tempLogger, fmt.Errorf("error merging profile %q: %w", profileName, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	flagKeys := []string{
		"data-path", "self-path", "game", "language",
		"masterlist", "userlist", "masterlist-remote", "masterlist-branch",
		"masterlist-file", "update-masterlist", "git-backend",
		"masterlist-sparse-exclude",
		"output-format", "no-tui", "show-history",
	}
	for _, key := range flagKeys {
		if flag := flags.Lookup(key); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return cfg, tempLogger, fmt.Errorf("error binding flag --%s: %w", key, err)
			}
		}
	}
	v.RegisterAlias("dataPath", "data-path")
	v.RegisterAlias("selfPath", "self-path")
	v.RegisterAlias("masterlistPath", "masterlist")
	v.RegisterAlias("userlistPath", "userlist")
	v.RegisterAlias("masterlistRemote", "masterlist-remote")
	v.RegisterAlias("masterlistBranch", "masterlist-branch")
	v.RegisterAlias("masterlistFile", "masterlist-file")
	v.RegisterAlias("updateMasterlist", "update-masterlist")
	v.RegisterAlias("gitBackend", "git-backend")
	v.RegisterAlias("masterlistSparseExcludes", "masterlist-sparse-exclude")
	v.RegisterAlias("outputFormat", "output-format")
	v.RegisterAlias("showHistory", "show-history")

	cfg.AppVersion = appVersion

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			cfg.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	if cfg.OutputFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	if err := validateAndDerive(&cfg, logger); err != nil {
		return cfg, logger, err
	}

	return cfg, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game", DefaultGame)
	v.SetDefault("language", DefaultLanguage)
	v.SetDefault("masterlistFile", DefaultMasterlistFile)
	v.SetDefault("masterlistBranch", DefaultMasterlistRef)
	v.SetDefault("gitBackend", DefaultGitBackend)
	v.SetDefault("outputFormat", DefaultOutputFormat)
	v.SetDefault("tuiEnabled", true)
	v.SetDefault("updateMasterlist", false)
	v.SetDefault("verbose", false)
	v.SetDefault("showHistory", false)
}

// validateAndDerive performs semantic validation and resolves relative
// paths.
func validateAndDerive(cfg *AppConfig, logger *slog.Logger) error {
	if cfg.DataPath == "" {
		return fmt.Errorf("%w: data path is required (-d, --data-path)", ErrConfigValidation)
	}
	absData, err := filepath.Abs(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve data path %q: %v", ErrConfigValidation, cfg.DataPath, err)
	}
	cfg.DataPath = absData
	if info, err := os.Stat(cfg.DataPath); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: data path %q does not exist or is not a directory", ErrConfigValidation, cfg.DataPath)
	}

	allowedBackends := []string{"gogit", "exec"}
	if !contains(allowedBackends, cfg.GitBackend) {
		return fmt.Errorf("%w: invalid git-backend %q, allowed: %v", ErrConfigValidation, cfg.GitBackend, allowedBackends)
	}
	allowedFormats := []string{"text", "json"}
	if !contains(allowedFormats, cfg.OutputFormat) {
		return fmt.Errorf("%w: invalid output-format %q, allowed: %v", ErrConfigValidation, cfg.OutputFormat, allowedFormats)
	}

	if cfg.MasterlistPath != "" {
		if abs, err := filepath.Abs(cfg.MasterlistPath); err == nil {
			cfg.MasterlistPath = abs
		}
	}
	if cfg.UserlistPath != "" {
		if abs, err := filepath.Abs(cfg.UserlistPath); err == nil {
			cfg.UserlistPath = abs
		}
	}

	if cfg.UpdateMasterlist && cfg.MasterlistRemote == "" {
		return fmt.Errorf("%w: --update-masterlist requires --masterlist-remote", ErrConfigValidation)
	}

	logger.Debug("configuration loaded",
		slog.String("dataPath", cfg.DataPath),
		slog.String("game", cfg.Game),
		slog.String("gitBackend", cfg.GitBackend),
	)
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
