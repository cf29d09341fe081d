package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/refdata-normalizer/internal/catalog"
	"github.com/rickgao/refdata-normalizer/internal/metrics"
	"github.com/rickgao/refdata-normalizer/internal/processor"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
	"github.com/rickgao/refdata-normalizer/internal/session"
	"github.com/rickgao/refdata-normalizer/internal/writer"
)

// Store is a per-run store connection. *pgxpool.Pool satisfies it.
type Store interface {
	catalog.Querier
	writer.Execer
	Close()
}

// StoreOpener acquires a store connection for one run.
type StoreOpener func(ctx context.Context) (Store, error)

// SessionFactory creates an unstarted session for one run.
type SessionFactory func() session.Session

// Config holds run configuration.
type Config struct {
	SecuritiesTable string
	PricesTable     string
	Fields          refdata.FieldSpec
	Overrides       refdata.OverrideSpec
}

// DefaultConfig returns the standard tables, fields and overrides.
func DefaultConfig() Config {
	return Config{
		SecuritiesTable: catalog.DefaultTable,
		PricesTable:     writer.DefaultTable,
		Fields:          refdata.DefaultFieldSpec(),
		Overrides:       refdata.DefaultChainOverrides(),
	}
}

// RunResult summarizes one run.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Securities int // Catalog size, i.e. request targets
	Report     processor.Report
	Written    int64 // Rows inserted
}

// Status is a finished run and its error.
type Status struct {
	Result RunResult
	Err    error
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records every run.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock sets the time source for run timing and ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// Runner executes normalization runs. Runs must not overlap; the scheduler
// serializes them.
type Runner struct {
	cfg        Config
	openStore  StoreOpener
	newSession SessionFactory
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.RWMutex
	last   Status
	hasRun bool
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, openStore StoreOpener, newSession SessionFactory, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:        cfg,
		openStore:  openStore,
		newSession: newSession,
		logger:     logger.With("component", "pipeline"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one pass. The returned RunResult is populated as far as the
// run progressed, including on error.
func (r *Runner) Run(ctx context.Context) (res RunResult, err error) {
	res.RunID = uuid.NewString()
	res.StartedAt = r.now()
	log := r.logger.With("run_id", res.RunID)

	defer func() {
		res.Duration = r.now().Sub(res.StartedAt)
		r.metrics.ObserveRun(err, res.Duration, res.Report, res.Written)
		r.record(res, err)
		if err != nil {
			log.Error("run failed", "error", err, "duration", res.Duration)
			return
		}
		log.Info("run complete",
			"securities", res.Securities,
			"events", res.Report.Events,
			"prices", res.Report.Prices,
			"written", res.Written,
			"unmatched", len(res.Report.Unmatched),
			"security_errors", len(res.Report.SecurityErrors),
			"field_errors", len(res.Report.FieldErrors),
			"extraction_errors", len(res.Report.Extraction),
			"duration", res.Duration,
		)
	}()

	log.Info("run started")

	store, err := r.openStore(ctx)
	if err != nil {
		return res, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cat, err := catalog.NewStore(store, r.cfg.SecuritiesTable, log).Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load catalog: %w", err)
	}
	res.Securities = cat.Len()

	req := refdata.Build(cat.List(), r.cfg.Fields, r.cfg.Overrides)

	sess := r.newSession()
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("close session", "error", cerr)
		}
	}()

	if err = sess.Start(ctx); err != nil {
		return res, fmt.Errorf("start session: %w", err)
	}

	cid, err := sess.Send(req)
	if err != nil {
		return res, fmt.Errorf("send request: %w", err)
	}
	log.Info("request sent",
		"correlation_id", cid,
		"securities", len(req.Securities),
		"fields", len(req.Fields),
		"overrides", len(req.Overrides),
	)

	proc := processor.New(cat, cid,
		processor.WithLogger(log),
		processor.WithClock(r.now),
	)
	out, err := proc.Run(ctx, sess)
	res.Report = out.Report
	if err != nil {
		return res, fmt.Errorf("process events: %w", err)
	}

	w := writer.NewPriceWriter(writer.WriterConfig{Table: r.cfg.PricesTable}, store, log)
	res.Written, err = w.Write(ctx, out.Records)
	if err != nil {
		return res, fmt.Errorf("write prices: %w", err)
	}

	return res, nil
}

// LastRun returns the most recent run. ok is false before the first run.
func (r *Runner) LastRun() (status Status, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.hasRun
}

func (r *Runner) record(res RunResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = Status{Result: res, Err: err}
	r.hasRun = true
}
