package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/coderag/internal/config"
	"github.com/Aman-CERP/coderag/internal/llm"
	"github.com/Aman-CERP/coderag/internal/logging"
	"github.com/Aman-CERP/coderag/internal/mcp"
	"github.com/Aman-CERP/coderag/internal/rewrite"
	"github.com/Aman-CERP/coderag/internal/searchfacade"
	"github.com/Aman-CERP/coderag/internal/store"
	"github.com/Aman-CERP/coderag/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the search, context, types, similar,
memories, and status tools (§6.1) over the configured transport.

Configuration is loaded from the project's .coderag.yaml, the user's
~/.config/coderag/config.yaml, and environment variables, in that order
of increasing precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport to serve on (only stdio is served; other values are rejected); overrides configuration")

	return cmd
}

// runServe wires the store adapter (C1), optional LLM-backed rewriter (C2),
// search façade (C5), and query metrics (§10.4) together and starts the MCP
// server (§6.1) over the effective transport. transportOverride, if
// non-empty, takes precedence over the configured server.transport.
func runServe(ctx context.Context, cmd *cobra.Command, transportOverride string) error {
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

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.Path,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: cfg.Server.Transport == "http",
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.StoreURL, 0o755); err != nil {
		return fmt.Errorf("create store directory %s: %w", cfg.StoreURL, err)
	}

	adapter, err := store.NewStoreAdapter(cfg.StoreURL, store.WithRRFConstant(cfg.Search.RRFConstant))
	if err != nil {
		return fmt.Errorf("open store adapter at %s: %w", cfg.StoreURL, err)
	}

	metrics, metricsDB, err := openQueryMetrics(cfg.StoreURL)
	if err != nil {
		logger.Warn("query metrics store unavailable, telemetry disabled", slog.String("error", err.Error()))
	} else {
		defer func() { _ = metricsDB.Close() }()
	}

	llmClient := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	var rewriter *rewrite.Rewriter
	if llmClient != nil {
		rewriter = rewrite.New(llmClient, cfg.LLM.ModelRewrite, time.Duration(cfg.LLM.TimeoutMS)*time.Millisecond)
	}

	facade := &searchfacade.Facade{Store: adapter, Metrics: metrics, Rewriter: rewriter}

	server := mcp.NewServer(facade, adapter, cfg.DefaultProject, nil, logger)
	defer func() {
		if err := server.Close(); err != nil {
			logger.Error("close server", slog.String("error", err.Error()))
		}
	}()

	transport := transportOverride
	if transport == "" {
		transport = cfg.Server.Transport
	}

	logger.Info("coderag server starting",
		slog.String("transport", transport),
		slog.String("store_url", cfg.StoreURL),
		slog.String("project_root", root))

	return server.Serve(ctx, transport)
}

// openQueryMetrics opens (or creates) the telemetry database alongside the
// store adapter's collections and returns a ready QueryMetrics recorder.
// The caller owns the returned *sql.DB and must close it.
func openQueryMetrics(storeURL string) (*telemetry.QueryMetrics, *sql.DB, error) {
	db, err := sql.Open("sqlite", filepath.Join(storeURL, "telemetry.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry database: %w", err)
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init telemetry schema: %w", err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return telemetry.NewQueryMetrics(metricsStore), db, nil
}
