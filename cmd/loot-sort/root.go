package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/CartoonFan/libloot/internal/cli"
	"github.com/CartoonFan/libloot/internal/cli/config"
	"github.com/CartoonFan/libloot/internal/cli/history"
	"github.com/CartoonFan/libloot/internal/cli/hooks"
	"github.com/CartoonFan/libloot/internal/cli/ui"
	"github.com/CartoonFan/libloot/pkg/sorter"
	"github.com/CartoonFan/libloot/pkg/sorter/graph"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile     string
	profileName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:     "loot-sort",
	Short:   "Computes a stable plugin load order from masterlist and userlist metadata.",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: search ., $HOME/.config/loot-sort/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	rootCmd.PersistentFlags().StringP("data-path", "d", "", "Game data directory (required)")
	rootCmd.PersistentFlags().String("self-path", "", "Path to this executable, used by checksum(\"LOOT\", ...)")
	rootCmd.PersistentFlags().String("game", config.DefaultGame, "Game this data directory belongs to")
	rootCmd.PersistentFlags().String("language", config.DefaultLanguage, "Preferred message language")
	rootCmd.PersistentFlags().String("masterlist", "", "Path to the masterlist YAML file")
	rootCmd.PersistentFlags().String("userlist", "", "Path to the userlist YAML file")
	rootCmd.PersistentFlags().String("masterlist-remote", "", "Masterlist Git remote URL")
	rootCmd.PersistentFlags().String("masterlist-branch", config.DefaultMasterlistRef, "Masterlist Git branch to track")
	rootCmd.PersistentFlags().String("masterlist-file", config.DefaultMasterlistFile, "Masterlist file name within the repository")
	rootCmd.PersistentFlags().Bool("update-masterlist", false, "Update the masterlist from its remote before sorting")
	rootCmd.PersistentFlags().String("git-backend", config.DefaultGitBackend, `Masterlist transport backend name ("gogit" or "exec"), checked and logged; the backend in use is fixed at build time by the gogit build tag`)
	rootCmd.PersistentFlags().StringSlice("masterlist-sparse-exclude", nil, "Gitignore-style path pattern to prune from the masterlist clone after fetch (repeatable)")
	rootCmd.PersistentFlags().String("output-format", config.DefaultOutputFormat, `Result format ("text" or "json")`)
	rootCmd.PersistentFlags().Bool("no-tui", false, "Disable the interactive TUI even in a terminal")
	rootCmd.PersistentFlags().Bool("show-history", false, "Show prior run history alongside the result")

	rootCmd.AddCommand(sortCmd, updateMasterlistCmd, validateCmd, explainCmd)
}

func Execute() {
	_ = rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command) (config.AppConfig, *slog.Logger, error) {
	return config.LoadAndValidate(cfgFile, profileName, version, cmd.Flags())
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Compute and print the load order.",
	Long: `sort requires a game-specific plugin.Decoder and loadorder.Probe to be linked
into the binary; this module only defines those capabilities, it does not
implement them (the binary plugin format and install-state probing are
genuinely out of scope, mirroring how libloot itself never implements them).
A bare loot-sort build reports that clearly rather than guessing at a format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cfg.ShowHistory {
			printHistory(history.DefaultFilePath())
		}

		useTUI := cfg.TuiEnabled && !cfg.Verbose && term.IsTerminal(int(os.Stderr.Fd()))
		var program *tea.Program
		var tuiProgram hooks.TUIProgram
		if useTUI {
			model := ui.NewModel()
			program = tea.NewProgram(&model, tea.WithOutput(os.Stderr))
			tuiProgram = program
			time.Sleep(100 * time.Millisecond)
			go func() { _, _ = program.Run() }()
			defer program.Quit()
		}

		opts := sorter.Options{GameKind: plugin.GameKind(cfg.Game)}
		report, err := cli.RunSort(ctx, cfg, logger, opts, tuiProgram)
		if err == nil || report.CyclicInteraction != nil {
			recordHistory(history.DefaultFilePath(), cfg, report)
		}
		if program != nil {
			if err != nil {
				var cyc *graph.CyclicInteraction
				if errors.As(err, &cyc) {
					program.Send(ui.CycleDetectedMsg{Source: cyc.Source, Target: cyc.Target, Trail: cyc.Trail})
				}
			}
			program.Send(ui.DoneMsg{Err: err})
		}
		if err != nil {
			return err
		}

		if !useTUI {
			printReport(cfg, report)
		}
		return nil
	},
}

var updateMasterlistCmd = &cobra.Command{
	Use:   "update-masterlist",
	Short: "Fetch the masterlist from its configured remote.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		changed, info, err := cli.RunUpdateMasterlist(ctx, cfg, logger)
		if err != nil {
			return err
		}
		fmt.Printf("masterlist updated: changed=%v revision=%s date=%s\n", changed, info.RevisionID, info.Date)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <metadata-file>",
	Short: "Load a masterlist or userlist file and report whether it parses.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report := cli.RunValidate(args[0])
		if !report.ParsedOK {
			if report.ErrorMessage != "" {
				fmt.Printf("%s: invalid: %s\n", report.Path, report.ErrorMessage)
			}
			for _, v := range report.SchemaViolations {
				fmt.Printf("%s: schema violation: %s\n", report.Path, v)
			}
			return fmt.Errorf("%s failed validation", report.Path)
		}
		fmt.Printf("%s: OK (%d plugins, %d groups)\n", report.Path, report.PluginCount, report.GroupCount)
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <condition>",
	Short: "Parse a condition string and report its syntax validity and (if live) result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		result, err := cli.RunExplain(cfg.DataPath, cfg.SelfPath, args[0], logger)
		if err != nil {
			fmt.Printf("%s: syntax error: %v\n", args[0], err)
			return err
		}
		fmt.Printf("%s: %v\n", args[0], result)
		return nil
	},
}

func recordHistory(path string, cfg config.AppConfig, report sorter.Report) {
	run := history.Run{
		Timestamp:     report.Summary.Timestamp.UTC().Format(time.RFC3339),
		Game:          cfg.Game,
		PluginCount:   report.Summary.PluginCount,
		CycleDetected: report.CyclicInteraction != nil,
	}
	if err := history.Append(path, run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run history: %v\n", err)
	}
}

func printHistory(path string) {
	runs, err := history.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read run history: %v\n", err)
		return
	}
	if len(runs) == 0 {
		fmt.Println("no prior runs recorded")
		return
	}
	fmt.Println("prior runs:")
	for _, run := range runs {
		status := "ok"
		if run.CycleDetected {
			status = "cycle"
		}
		fmt.Printf("  %s  %-12s  %4d plugins  %s\n", run.Timestamp, run.Game, run.PluginCount, status)
	}
}

func printReport(cfg config.AppConfig, report sorter.Report) {
	if cfg.OutputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}
	for i, name := range report.Order {
		fmt.Printf("%3d  %s\n", i+1, name)
	}
}
