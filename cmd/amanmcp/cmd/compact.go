package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/coderag/internal/config"
	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
	"github.com/Aman-CERP/coderag/internal/llm"
	"github.com/Aman-CERP/coderag/internal/logging"
	"github.com/Aman-CERP/coderag/internal/memory"
	"github.com/Aman-CERP/coderag/internal/store"
	"github.com/Aman-CERP/coderag/internal/ui"
)

// newCompactCmd builds the `compact` command tree (§6.4): run (default),
// stats, and help.
func newCompactCmd() *cobra.Command {
	var days, minGroup int
	var dryRun, verbose bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact old conversation memories into summaries",
		Long: `Groups conversation memories older than a cutoff into per-project
summaries (C7), freeing up the store while preserving decisions, file
references, and session context.

Run with no subcommand to perform a compaction pass; use 'stats' to see
what a pass would affect without changing anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompactRun(cmd.Context(), cmd, compactFlags{
				days: days, minGroup: minGroup, dryRun: dryRun, verbose: verbose,
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Compact memories older than this many days (default 30)")
	cmd.Flags().IntVar(&minGroup, "min-group", 0, "Minimum memories per project to trigger compaction (default 5)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be compacted without writing changes")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-project detail")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a compaction pass (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompactRun(cmd.Context(), cmd, compactFlags{
				days: days, minGroup: minGroup, dryRun: dryRun, verbose: verbose,
			})
		},
	}
	runCmd.Flags().IntVar(&days, "days", 0, "Compact memories older than this many days (default 30)")
	runCmd.Flags().IntVar(&minGroup, "min-group", 0, "Minimum memories per project to trigger compaction (default 5)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be compacted without writing changes")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-project detail")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what a compaction pass would affect, without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompactRun(cmd.Context(), cmd, compactFlags{
				days: days, minGroup: minGroup, dryRun: true, verbose: true,
			})
		},
	}
	statsCmd.Flags().IntVar(&days, "days", 0, "Consider memories older than this many days (default 30)")
	statsCmd.Flags().IntVar(&minGroup, "min-group", 0, "Minimum memories per project to trigger compaction (default 5)")

	cmd.AddCommand(runCmd)
	cmd.AddCommand(statsCmd)

	return cmd
}

type compactFlags struct {
	days, minGroup int
	dryRun         bool
	verbose        bool
}

// runCompactRun wires the store adapter, advisory lock, and Compactor (C7)
// together and renders the resulting Report (§6.4). It returns a non-nil
// error whenever the run recorded any error, so the process exit code is 1.
func runCompactRun(ctx context.Context, cmd *cobra.Command, flags compactFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err == nil {
		defer cleanup()
	} else {
		logger = slog.Default()
	}

	styles := ui.GetStyles(!isTTY(cmd))
	out := cmd.OutOrStdout()

	lock := memory.NewCompactionLock(cfg.StoreURL)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire compaction lock: %w", err)
	}
	if !acquired {
		fmt.Fprintln(out, styles.Warning.Render("another compaction run is already in progress, skipping"))
		return nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release compaction lock", slog.Any("error", coreerrors.FormatForLog(err)))
		}
	}()

	if err := os.MkdirAll(cfg.StoreURL, 0o755); err != nil {
		return fmt.Errorf("create store directory %s: %w", cfg.StoreURL, err)
	}

	adapter, err := store.NewStoreAdapter(cfg.StoreURL, store.WithRRFConstant(cfg.Search.RRFConstant))
	if err != nil {
		return fmt.Errorf("open store adapter at %s: %w", cfg.StoreURL, err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Warn("close store adapter", slog.Any("error", coreerrors.FormatForLog(err)))
		}
	}()

	llmClient := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	compactor := &memory.Compactor{Adapter: adapter, LLM: llmClient, Model: cfg.LLM.ModelSummarise}

	opts := memory.CompactOptions{
		OlderThanDays: flags.days,
		MinGroupSize:  flags.minGroup,
		DryRun:        flags.dryRun,
	}
	if opts.OlderThanDays == 0 {
		opts.OlderThanDays = cfg.Compaction.OlderThanDays
	}
	if opts.MinGroupSize == 0 {
		opts.MinGroupSize = cfg.Compaction.MinGroupSize
	}

	start := time.Now()
	report, err := compactor.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("compaction run: %w", err)
	}
	elapsed := time.Since(start)

	renderCompactionReport(out, styles, report, opts, elapsed, flags.verbose)

	if len(report.Errors) > 0 {
		return fmt.Errorf("compaction completed with %d error(s)", len(report.Errors))
	}
	return nil
}

func renderCompactionReport(out io.Writer, styles ui.Styles, report memory.Report, opts memory.CompactOptions, elapsed time.Duration, verbose bool) {
	fmt.Fprintln(out, styles.Header.Render("Compaction report"))
	if opts.DryRun {
		fmt.Fprintln(out, styles.Dim.Render("(dry run, no changes written)"))
	}
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("memories fetched:"), report.MemoriesFetched)
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("projects processed:"), report.ProjectsProcessed)
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("groups compacted:"), report.GroupsCompacted)
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("memories deleted:"), report.MemoriesDeleted)
	fmt.Fprintf(out, "%s %d\n", styles.Label.Render("memories created:"), report.MemoriesCreated)
	fmt.Fprintf(out, "%s %s\n", styles.Label.Render("elapsed:"), elapsed.Round(time.Millisecond))

	if verbose {
		for project, detail := range report.ProjectDetails {
			if detail.Compacted {
				fmt.Fprintln(out, styles.Success.Render(fmt.Sprintf("  %s: compacted (%d memories)", project, detail.MemoriesFound)))
			} else {
				fmt.Fprintln(out, styles.Dim.Render(fmt.Sprintf("  %s: skipped, %s (%d memories)", project, detail.Reason, detail.MemoriesFound)))
			}
		}
	}

	for _, e := range report.Errors {
		fmt.Fprintln(out, styles.Error.Render("  error: "+e))
	}
}

// isTTY reports whether the command's output stream is an interactive
// terminal. Plain (piped/redirected) output gets uncolored rendering.
func isTTY(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
