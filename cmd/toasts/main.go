package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/serious-angel/steam-client-custom-toasts/internal/backup"
	"github.com/serious-angel/steam-client-custom-toasts/internal/config"
	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
	"github.com/serious-angel/steam-client-custom-toasts/internal/patch"
	"github.com/serious-angel/steam-client-custom-toasts/internal/scaler"
	"github.com/serious-angel/steam-client-custom-toasts/internal/watch"
)

var (
	// Global flags
	steamUIDir string
	configPath string
	verbose    bool
	timeout    time.Duration

	// Per-command flags
	reloadAfter   bool
	watchFactor   float64
	watchReload   bool
	auditInterval time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "toasts",
	Short: "Scale the Steam client's toast notifications",
	Long: `steam-client-custom-toasts resizes the Steam desktop client's toast
notifications by patching the client's own UI bundle in place.

Two files under Steam's steamui directory are rewritten: the minified
library script (toast dimensions and class attribute) and its stylesheet
(a generated transform rule). Every write is preceded by a timestamped
backup and verified by reading the file back.

With --reload (or the reload command) the tool asks a running Steam
client to restart its shared JS context over the CEF debugger, so the
new size shows up without restarting Steam. Start Steam with
-cef-enable-debugging for that to work.

Examples:
  toasts apply 2              Double the toast size
  toasts apply 1.5 --reload   Scale by 1.5x and restart the JS context
  toasts reset --reload       Back to stock size
  toasts watch --scale 2      Keep 2x applied across Steam updates`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply [factor]",
	Short: "Scale the toasts by the given factor",
	Long: `Backs up and patches both targets so toasts render at factor times
their stock size. Factors below 1 are rejected; use reset for stock.

The factor may be fractional: 1.5, 2, 2.5. Dimensions are rounded to
whole pixels, the visual scaling itself happens via a CSS transform.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the stock toast size",
	Long: `Rewrites both targets back to their stock values: original dimensions,
bare class attribute, no generated stylesheet rule. Equivalent to
applying factor 1.`,
	RunE: runReset,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Restart the Steam client's shared JS context",
	Long: `Discovers the client's debuggable contexts over the CEF debugger,
picks the configured one, and evaluates the restart expression so the
running client re-reads the patched bundle. Requires Steam started
with -cef-enable-debugging.`,
	RunE: runReload,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the values both targets currently carry",
	RunE:  runStatus,
}

var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "List the debuggable contexts the client exposes",
	RunE:  runContexts,
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List the backup snapshots taken for each target",
	RunE:  runBackups,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a scale factor applied across Steam updates",
	Long: `Watches both targets and re-applies the given factor whenever Steam
replaces them, typically after a client update. Runs until interrupted.
A periodic audit also re-checks the targets in case a change never
raised a filesystem event.`,
	RunE: runWatch,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&steamUIDir, "dir", "d", "", "Steam steamui directory (default: auto-detect)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.steam-client-custom-toasts/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Debugger response window override (e.g. 5s)")

	applyCmd.Flags().BoolVarP(&reloadAfter, "reload", "r", false, "Restart the JS context after patching")
	resetCmd.Flags().BoolVarP(&reloadAfter, "reload", "r", false, "Restart the JS context after patching")

	watchCmd.Flags().Float64Var(&watchFactor, "scale", 0, "Factor to keep applied (required)")
	watchCmd.Flags().BoolVar(&watchReload, "reload", false, "Restart the JS context after each re-apply")
	watchCmd.Flags().DurationVar(&auditInterval, "audit-interval", 5*time.Minute, "Interval for the periodic target audit")
	_ = watchCmd.MarkFlagRequired("scale")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(contextsCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.Version = config.DefaultConfig().Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file, environment,
// then command-line overrides, in increasing precedence.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if steamUIDir != "" {
		cfg.SteamUIDir = steamUIDir
	}
	if timeout > 0 {
		cfg.Reload.ResponseTimeout = timeout.String()
	}
	if verbose {
		cfg.Logging.DebugMode = true
	}
	if err := logging.Initialize(config.BaseDir(), logging.Settings{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.CLI("Config loaded: dir=%s script=%s stylesheet=%s", cfg.SteamUIDir, cfg.ScriptFile, cfg.StylesheetFile)
	return cfg, nil
}

// operationContext returns a context cancelled by SIGINT/SIGTERM.
func operationContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()
	return ctx, cancel
}

// parseFactor enforces the CLI contract: a decimal number, at least 1.
func parseFactor(raw string) (float64, error) {
	factor, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("scale factor %q is not a number", raw)
	}
	if factor < 1 {
		return 0, fmt.Errorf("scale factor must be at least 1, got %s (use `toasts reset` for stock size)", raw)
	}
	return factor, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	factor, err := parseFactor(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := operationContext()
	defer cancel()

	logger.Info("Applying toast scale",
		zap.Float64("factor", factor),
		zap.String("dir", cfg.SteamUIDir),
		zap.Bool("reload", reloadAfter))

	res, err := scaler.New(cfg).Apply(ctx, factor, reloadAfter)
	if res != nil {
		printResult(res)
	}
	if err != nil {
		if res != nil {
			// The patch itself landed and was verified.
			return fmt.Errorf("targets patched, but reload failed: %w", err)
		}
		return err
	}
	if res.Reloaded {
		fmt.Println("Steam JS context restarted")
	} else {
		fmt.Println("Restart Steam (or run `toasts reload`) to see the change")
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := operationContext()
	defer cancel()

	logger.Info("Restoring stock toast size", zap.String("dir", cfg.SteamUIDir))

	res, err := scaler.New(cfg).Reset(ctx, reloadAfter)
	if err != nil {
		if res != nil {
			return fmt.Errorf("targets restored, but reload failed: %w", err)
		}
		return err
	}
	fmt.Println("Restored stock toast size")
	fmt.Printf("  backups: %s\n           %s\n", res.ScriptBackup, res.StylesheetBackup)
	if res.Reloaded {
		fmt.Println("Steam JS context restarted")
	}
	return nil
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := operationContext()
	defer cancel()

	logger.Info("Restarting Steam JS context", zap.String("url", cfg.Reload.DiscoveryURL))

	if err := scaler.New(cfg).Reload(ctx); err != nil {
		return err
	}
	fmt.Println("Steam JS context restarted")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := scaler.New(cfg).Status()
	if err != nil {
		return err
	}

	fmt.Printf("Script:     %s\n", st.ScriptPath)
	fmt.Printf("  width:    %d px\n", st.Script.Width)
	fmt.Printf("  heights:  %d px compact, %d px expanded\n", st.Script.HeightCompact, st.Script.HeightExpanded)
	fmt.Printf("  class:    %q\n", st.Script.ClassAttr)
	fmt.Printf("Stylesheet: %s\n", st.StylesheetPath)
	if st.Stylesheet.RulePresent {
		fmt.Printf("  rule:     transform:scale(%s)\n", st.Stylesheet.Scale)
	} else {
		fmt.Printf("  rule:     none\n")
	}

	switch {
	case st.Consistent && st.Factor == 1:
		fmt.Println("State: stock size")
	case st.Consistent:
		fmt.Printf("State: scaled by %s\n", patch.FormatScale(st.Factor))
	default:
		fmt.Println("State: inconsistent (targets disagree; re-run apply or reset)")
	}
	fmt.Printf("Backups: %d script, %d stylesheet\n", len(st.ScriptBackups), len(st.StylesheetBackups))
	return nil
}

func runContexts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := operationContext()
	defer cancel()

	contexts, err := scaler.New(cfg).Contexts(ctx)
	if err != nil {
		return err
	}
	for _, entry := range contexts {
		marker := " "
		if entry.Title == cfg.Reload.ContextTitle {
			marker = "*"
		}
		fmt.Printf("%s %-40s %s\n", marker, entry.Title, entry.WebSocketDebuggerURL)
	}
	return nil
}

func runBackups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, target := range []string{cfg.ScriptPath(), cfg.StylesheetPath()} {
		fmt.Printf("%s:\n", target)
		names, err := backup.List(target)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("  (none)")
			continue
		}
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFactor < 1 {
		return fmt.Errorf("scale factor must be at least 1, got %v", watchFactor)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := operationContext()
	defer cancel()

	s := scaler.New(cfg)
	w, err := watch.New(cfg, s, watchFactor, watchReload)
	if err != nil {
		return err
	}

	logger.Info("Watching for Steam updates",
		zap.Float64("factor", watchFactor),
		zap.String("dir", cfg.SteamUIDir),
		zap.Duration("audit_interval", auditInterval))
	fmt.Printf("Watching %s to keep factor %s applied. Ctrl-C to stop.\n",
		cfg.SteamUIDir, patch.FormatScale(watchFactor))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		w.Stop()
		return nil
	})
	g.Go(func() error {
		// Initial sync, then the periodic audit for missed events.
		w.CheckNow(gctx)
		ticker := time.NewTicker(auditInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				w.CheckNow(gctx)
			}
		}
	})
	return g.Wait()
}

func printResult(res *scaler.Result) {
	fmt.Printf("Applied factor %s\n", patch.FormatScale(res.Factor))
	fmt.Printf("  width:   %d px\n", res.Width)
	fmt.Printf("  heights: %d px compact, %d px expanded\n", res.HeightCompact, res.HeightExpanded)
	fmt.Printf("  backups: %s\n           %s\n", res.ScriptBackup, res.StylesheetBackup)
}
