package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"albumsync/internal/app"
	"albumsync/internal/config"
	"albumsync/internal/syncer"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var configPath string

// resolveConfigPath returns the --config flag, else the default location.
func resolveConfigPath() (string, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", nil, fmt.Errorf("getting defaults: %w", err)
	}
	if configPath != "" {
		return configPath, defaults, nil
	}
	return defaults["config_path"], defaults, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "sync", "status").
func newApp(command string) (*app.App, error) {
	path, _, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, app.Options{Command: command, Stderr: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "albumsync",
	Short:        "Sync shared photo albums into Hugo page bundles",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path, defaults, err := resolveConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && force && term.IsTerminal(int(os.Stdin.Fd())) {
			if !confirm(fmt.Sprintf("Overwrite existing config at %s?", path)) {
				fmt.Println("Aborted.")
				return nil
			}
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(path, cfg, force); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

// confirm asks a yes/no question on stdin. Anything but y/yes is no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Album:       %s\n", cfg.Album.Type)
		fmt.Printf("Geocode:     %s\n", cfg.Geocode.Type)
		fmt.Printf("Fuzz:        %.0fm\n", cfg.FuzzMeters)
		fmt.Printf("Workers:     %d process, %d delete\n", cfg.Sync.ProcessWorkers, cfg.Sync.DeleteWorkers)
		fmt.Printf("Retries:     %d (backoff %s)\n", cfg.Sync.Retries, cfg.Sync.RetryBackoff)
		fmt.Println()
		fmt.Println("Targets:")
		for _, t := range cfg.Targets {
			state := "enabled"
			if !t.IsEnabled() {
				state = "disabled"
			}
			fmt.Printf("  %-16s %-8s %-8s %s -> %s (index: %s %s)\n",
				t.Name, t.OutputType, state, t.AlbumURL, t.OutDir, t.Index.Type, t.Index.Path)
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync albums into their outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, _ := cmd.Flags().GetStringSlice("target")

		a, err := newApp("sync")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Sync(cmd.Context(), targets)
		for _, r := range results {
			printResult(r)
		}
		return err
	},
}

func printResult(r syncer.TargetResult) {
	if r.Report == nil {
		fmt.Printf("%s: failed: %v\n", r.Target, r.Err)
		return
	}

	fmt.Printf("%s (%s, %q): %s\n", r.Target, r.Report.Mode, r.Report.Album, r.Report.Summary())
	for _, f := range r.Report.Failures() {
		fmt.Printf("  failed %s: %s\n", f.ID, f.Reason)
	}
	if r.Report.RenderErr != nil {
		fmt.Printf("  render failed: %v\n", r.Report.RenderErr)
	}
	if r.Err != nil {
		fmt.Printf("  error: %v\n", r.Err)
	}
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a sync would change, without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, _ := cmd.Flags().GetStringSlice("target")

		a, err := newApp("status")
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.Status(cmd.Context(), targets)
		if err != nil {
			return err
		}

		for _, s := range statuses {
			if s.Err != nil {
				fmt.Printf("%s: error: %v\n", s.Target, s.Err)
				continue
			}
			p := s.Plan
			c := p.Classification
			fmt.Printf("%s (%s, %q): %d remote\n", p.Target, p.Mode, p.Album, p.Remote)
			fmt.Printf("  new=%d changed=%d unchanged=%d orphaned=%d\n",
				len(c.New), len(c.Changed), len(c.Unchanged), len(c.Orphaned))
			fmt.Printf("  index: %d items, %d collections, %d with exif, %d with gps, %d with place\n",
				p.Stats.Items, p.Stats.Collections, p.Stats.WithMetadata, p.Stats.WithGPS, p.Stats.WithPlace)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $ALBUMSYNC_CONFIG or ./albumsync.toml)")

	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringSliceP("target", "t", nil, "Target to sync (repeatable; default all enabled)")
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringSliceP("target", "t", nil, "Target to inspect (repeatable; default all enabled)")
}
