// sessiontest sends one reference-data request and prints the decoded response.
// Nothing is written to the store.
// Usage: go run ./cmd/sessiontest --config configs/normalizer.local.yaml --securities "IBM US Equity,SPX Index"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rickgao/refdata-normalizer/internal/catalog"
	"github.com/rickgao/refdata-normalizer/internal/config"
	"github.com/rickgao/refdata-normalizer/internal/database"
	"github.com/rickgao/refdata-normalizer/internal/model"
	"github.com/rickgao/refdata-normalizer/internal/pipeline"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
	"github.com/rickgao/refdata-normalizer/internal/session"
)

func main() {
	configPath := flag.String("config", "configs/normalizer.example.yaml", "path to config file")
	securities := flag.String("securities", "", "comma-separated security names; empty reads the catalog from the store")
	verbose := flag.Bool("verbose", false, "print full record JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	runCfg, sessCfg, err := pipeline.FromConfig(cfg)
	if err != nil {
		logger.Error("invalid request config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	targets, err := loadTargets(ctx, cfg, *securities, logger)
	if err != nil {
		logger.Error("failed to load securities", "error", err)
		os.Exit(1)
	}

	req := refdata.Build(targets, runCfg.Fields, runCfg.Overrides)

	sess := session.New(sessCfg, logger)
	defer sess.Close()

	logger.Info("connecting", "url", sessCfg.URL(), "service", sessCfg.Service)
	if err := sess.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	cid, err := sess.Send(req)
	if err != nil {
		logger.Error("failed to send request", "error", err)
		os.Exit(1)
	}
	logger.Info("request sent", "correlation_id", cid, "securities", len(req.Securities))

	for {
		ev, err := sess.NextEvent(ctx)
		if err != nil {
			logger.Error("event stream ended before final response", "error", err)
			os.Exit(1)
		}

		fmt.Printf("[%s] type=%s messages=%d\n", ev.Kind, ev.Type, len(ev.Messages))
		for _, msg := range ev.Messages {
			for _, rec := range msg.Records {
				printRecord(rec, *verbose)
			}
		}

		if ev.Kind == refdata.KindFinal {
			break
		}
	}

	logger.Info("response complete")
}

// loadTargets returns the named securities, or the store catalog when names is empty.
func loadTargets(ctx context.Context, cfg *config.NormalizerConfig, names string, logger *slog.Logger) ([]model.Security, error) {
	if names != "" {
		var out []model.Security
		for i, name := range strings.Split(names, ",") {
			out = append(out, model.Security{ID: int64(i + 1), Name: strings.TrimSpace(name)})
		}
		return out, nil
	}

	pool, err := database.Connect(ctx, cfg.Database.DBConfig)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	cat, err := catalog.NewStore(pool, cfg.Database.SecuritiesTable, logger).Load(ctx)
	if err != nil {
		return nil, err
	}
	return cat.List(), nil
}

func printRecord(rec refdata.SecurityRecord, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Printf("  %s\n", data)
		return
	}

	switch r := rec.Result.(type) {
	case refdata.FieldData:
		fmt.Printf("  [DATA] security=%q px_last=%v bid=%v ask=%v ticker=%s chain=%d exceptions=%d\n",
			rec.Security, r.PxLast, r.Bid, r.Ask, r.Ticker, len(r.ChainTickers), len(r.Exceptions))
	case refdata.SecurityError:
		fmt.Printf("  [SECURITY ERROR] security=%q category=%s message=%s\n",
			rec.Security, r.Category, r.Message)
	case refdata.MalformedData:
		fmt.Printf("  [MALFORMED] security=%q error=%v\n", rec.Security, r.Err)
	}
}
