package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/daemon"
	"github.com/windrun-ai/workflowcore/gateway"
	"github.com/windrun-ai/workflowcore/otelobs"
	"github.com/windrun-ai/workflowcore/registry"
	"github.com/windrun-ai/workflowcore/runner"
	"github.com/windrun-ai/workflowcore/trace"
)

// App bundles every collaborator a subcommand needs: the tool registry, its
// template and composite stores, the execution gateway, the runner, and the
// trace store. It is built once per invocation from the resolved
// WorkspaceConfig.
type App struct {
	Config        core.WorkspaceConfig
	Registry      *registry.Registry
	Templates     *registry.TemplateStore
	Composites    *registry.CompositeStore
	Gateway       *gateway.Gateway
	Cache         runner.Cache
	Runner        *runner.Runner
	Traces        trace.Store
	PromRegistry  *prometheus.Registry
	Metrics       *otelobs.Metrics
	Logger        *slog.Logger

	closers []func() error
}

// Close releases every resource App opened (trace store, redis client).
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildApp wires an App from cfg. Pack directories that do not exist are
// skipped with a warning rather than failing the whole command, so a fresh
// workspace with no packs yet still starts.
func buildApp(cfg core.WorkspaceConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	templates := registry.NewTemplateStore()
	composites := registry.NewCompositeStore()
	for _, dir := range cfg.PackDirs {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("cli: skipping missing pack directory", "dir", dir, "error", err)
			continue
		}
		if _, err := reg.ScanPacks(dir, logger); err != nil {
			return nil, fmt.Errorf("cli: scanning packs in %s: %w", dir, err)
		}
		if _, err := reg.ScanPackTemplates(dir, templates, logger); err != nil {
			return nil, fmt.Errorf("cli: scanning templates in %s: %w", dir, err)
		}
		if _, err := reg.ScanPackComposites(dir, composites, logger); err != nil {
			return nil, fmt.Errorf("cli: scanning composites in %s: %w", dir, err)
		}
	}

	gw := gateway.New(30 * time.Second)

	app := &App{
		Config:     cfg,
		Registry:   reg,
		Templates:  templates,
		Composites: composites,
		Gateway:    gw,
		Logger:     logger,
	}

	var cache runner.Cache
	switch cfg.CacheBackend {
	case core.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = runner.NewRedisCache(client, 24*time.Hour)
		app.closers = append(app.closers, client.Close)
	default:
		cache = runner.NewMemoryCache()
	}
	app.Cache = cache

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("cli: creating data dir %s: %w", cfg.DataDir, err)
		}
	}
	tracePath := cfg.TraceDBPath
	if tracePath == "" {
		tracePath = filepath.Join(cfg.DataDir, "traces.db")
	}
	traceStore, err := trace.NewSQLiteStore(tracePath)
	if err != nil {
		return nil, fmt.Errorf("cli: opening trace store %s: %w", tracePath, err)
	}
	app.Traces = traceStore
	app.closers = append(app.closers, traceStore.Close)

	promReg := prometheus.NewRegistry()
	metrics := otelobs.NewMetrics(promReg)
	app.PromRegistry = promReg
	app.Metrics = metrics

	r := runner.New(reg, gw, cache, cfg.Parallelism)
	r.Subgraphs = composites
	r.Spans = trace.NewSpanRecorder(traceStore)
	r.Metrics = metrics
	app.Runner = r

	return app, nil
}

// resolveApp loads the workspace config honoring --config and builds an App.
// Callers must defer app.Close().
func resolveApp(cmd *cobra.Command) (*App, error) {
	configFile, _ := cmd.Flags().GetString("config")
	loader := daemon.NewConfigLoader()
	if configFile != "" {
		loader = loader.WithConfigFile(configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, exitError(exitRuntime, "loading workspace config: %v", err)
	}
	if err := daemon.ValidateWorkspaceConfig(cfg); err != nil {
		return nil, exitError(exitValidation, "invalid workspace config: %v", err)
	}
	app, err := buildApp(cfg, nil)
	if err != nil {
		return nil, exitError(exitRuntime, "initializing workspace: %v", err)
	}
	return app, nil
}

// addPersistentConfigFlag registers the --config flag shared by every
// subcommand that resolves an App.
func addPersistentConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to workspace config file (default: discover ./workflowcore.yaml or ~/.workflowcore/config.yaml)")
}
