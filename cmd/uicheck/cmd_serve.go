package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"uicheck/internal/logging"
	mcpserver "uicheck/internal/mcp"
	"uicheck/internal/metrics"
	"uicheck/internal/runner"
	"uicheck/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	outDir      string
	dbPath      string
	noHistory   bool
	browser     browserFlags
	metricsAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing list_scenarios,
validate_scenario, run_scenario and list_runs. Chrome starts with the server
and every run gets its own tab.

With --metrics-addr, run metrics are served at http://<addr>/metrics.

The server monitors for parent process death and shuts down with it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.outDir, "out", "verification", "Screenshot directory")
	f.StringVar(&serveFlags.dbPath, "db", store.DefaultDBPath, "Run history DB path")
	f.BoolVar(&serveFlags.noHistory, "no-history", false, "Do not record runs")
	addBrowserFlags(f, &serveFlags.browser)
	f.StringVar(&serveFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New("mcp")
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := launchBrowser(ctx, serveFlags.browser.options())
	if err != nil {
		return fmt.Errorf("%w: %w", runner.ErrResourceUnavailable, err)
	}
	defer b.Close()

	cfg := mcpserver.Config{
		Opener: b,
		OutDir: serveFlags.outDir,
		Runner: []runner.Option{runner.WithObserver(&runner.LogObserver{Logger: logging.New("run")})},
	}
	if serveFlags.metricsAddr != "" {
		rec := metrics.NewRecorder()
		addr, err := serveMetrics(ctx, serveFlags.metricsAddr, rec)
		if err != nil {
			return err
		}
		logger.Info("serving metrics", "addr", addr)
		cfg.Runner = append(cfg.Runner, runner.WithObserver(rec))
	}
	if !serveFlags.noHistory {
		st, err := store.Open(serveFlags.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		cfg.Store = st
	}
	srv := mcpserver.NewServer(cfg)

	mcpserver.WatchParent(ctx, 2*time.Second, cancel)

	logger.Info("starting uicheck MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// serveMetrics exposes rec at /metrics until ctx is done and returns the
// address it listens on.
func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.New("metrics").Warn("metrics server stopped", "error", err)
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	return ln.Addr().String(), nil
}
