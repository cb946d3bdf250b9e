package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tangle/internal/config"
	coreapp "tangle/internal/core/app"
	"tangle/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./tangle.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scan and exit")
	filePath   = flag.String("file", "", "Print dependencies and local cycles for one file, then exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("tangle v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := loadConfig(*configPath)

	if flag.NArg() > 0 {
		cfg.Workspace.Root = flag.Arg(0)
	}

	ctx := context.Background()

	if cfg.Tracing.Endpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, cfg.Tracing.Endpoint, VERSION)
		if err != nil {
			slog.Warn("tracing disabled", "endpoint", cfg.Tracing.Endpoint, "error", err)
		} else {
			defer func() {
				if err := shutdown(ctx); err != nil {
					slog.Warn("tracing shutdown failed", "error", err)
				}
			}()
		}
	}

	app := NewApp(cfg)
	defer app.Close()

	if cfg.Metrics.Listen != "" {
		obs := NewObservabilityServer(cfg.Metrics.Listen, coreapp.NewHealthService(app.Service))
		if err := obs.Start(ctx); err != nil {
			slog.Warn("metrics endpoint disabled", "listen", cfg.Metrics.Listen, "error", err)
		} else {
			defer obs.Stop(ctx)
		}
	}

	// Initial scan
	result, err := app.InitialScan(ctx)
	if err != nil {
		slog.Error("initial scan failed", "error", err)
		os.Exit(1)
	}

	if *filePath != "" {
		out, err := app.DescribeFile(*filePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Println(out)
		os.Exit(0)
	}

	if err := app.GenerateOutputs(result.Cycles); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	if !*ui {
		app.PrintSummary(result.FilesScanned, result.Duration, result.Cycles, result.Unresolved, app.PreviousRun())
	}

	if *once {
		if hasCriticalCycles(result.Cycles) {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Watch mode
	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

// loadConfig falls back to the checked-in example file, then to built-in
// defaults when the default config simply is not there. A config the user
// named explicitly must load or the run aborts.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg
	}

	if path == "./tangle.toml" {
		if exampleCfg, exampleErr := config.Load("./tangle.example.toml"); exampleErr == nil {
			return exampleCfg
		}
	}

	if os.IsNotExist(err) {
		slog.Warn("config file not found, using built-in defaults", "path", path)
		cfg = config.Default()
		// Ad-hoc runs without a config still want a visible summary.
		cfg.Alerts.Terminal = true
		return cfg
	}

	slog.Error("failed to load config", "path", path, "error", err)
	os.Exit(1)
	return nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tangle", "tangle.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "tangle", "tangle.log")
	}

	return "tangle.log"
}
