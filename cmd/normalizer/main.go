package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/refdata-normalizer/internal/config"
	"github.com/rickgao/refdata-normalizer/internal/database"
	"github.com/rickgao/refdata-normalizer/internal/logging"
	"github.com/rickgao/refdata-normalizer/internal/metrics"
	"github.com/rickgao/refdata-normalizer/internal/pipeline"
	"github.com/rickgao/refdata-normalizer/internal/scheduler"
	"github.com/rickgao/refdata-normalizer/internal/session"
	"github.com/rickgao/refdata-normalizer/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/normalizer.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	once := flag.Bool("once", false, "run once and exit instead of scheduling")
	migrate := flag.Bool("migrate", false, "create the securities and prices tables if missing")
	flag.Parse()

	// Bootstrap logger until the configured one is built
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to load env file", "path", *envPath, "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting normalizer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	runCfg, sessCfg, err := pipeline.FromConfig(cfg)
	if err != nil {
		logger.Error("invalid request config", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *migrate {
		if err := ensureSchema(ctx, cfg.Database); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		logger.Info("schema ready",
			"securities_table", cfg.Database.SecuritiesTable,
			"prices_table", cfg.Database.PricesTable,
		)
	}

	m := metrics.New()

	runner := pipeline.NewRunner(runCfg,
		func(ctx context.Context) (pipeline.Store, error) {
			pool, err := database.Connect(ctx, cfg.Database.DBConfig)
			if err != nil {
				return nil, err
			}
			return pool, nil
		},
		func() session.Session {
			return session.New(sessCfg, logger)
		},
		logger,
		pipeline.WithMetrics(m),
	)

	if *once {
		if _, err := runner.Run(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	hour, minute, _ := cfg.Schedule.Clock()
	loc, _ := cfg.Schedule.Location()

	sched := scheduler.New(scheduler.Config{
		Hour:       hour,
		Minute:     minute,
		Location:   loc,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, scheduler.JobFunc(func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	}), logger)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(cfg, runner, sched, m),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("normalizer running",
		"service", sessCfg.URL(),
		"schedule", cfg.Schedule.Time,
		"timezone", cfg.Schedule.Timezone,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler did not stop in time", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("normalizer stopped")
}

func ensureSchema(ctx context.Context, cfg config.DatabaseConfig) error {
	pool, err := database.Connect(ctx, cfg.DBConfig)
	if err != nil {
		return err
	}
	defer pool.Close()
	return database.EnsureSchema(ctx, pool, cfg.SecuritiesTable, cfg.PricesTable)
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(cfg *config.NormalizerConfig, runner *pipeline.Runner, sched *scheduler.Scheduler, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(cfg.Metrics.Path, m.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := database.Ping(ctx, cfg.Database.DBConfig); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		// Last run
		fired, skipped := sched.Stats()
		schedule := map[string]any{
			"running": sched.Running(),
			"fired":   fired,
			"skipped": skipped,
			"next":    sched.NextFire(time.Now()),
		}
		if status, ok := runner.LastRun(); ok {
			last := map[string]any{
				"run_id":     status.Result.RunID,
				"started_at": status.Result.StartedAt,
				"duration":   status.Result.Duration.String(),
				"written":    status.Result.Written,
			}
			if status.Err != nil {
				last["error"] = status.Err.Error()
				if health.Status == "healthy" {
					health.Status = "degraded"
				}
			}
			schedule["last_run"] = last
		}
		health.Components["scheduler"] = schedule

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
