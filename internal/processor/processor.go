package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/refdata-normalizer/internal/model"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// Option configures a Processor.
type Option func(*Processor)

// WithClock sets the clock used for ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor consumes the events of one request and accumulates PriceRecords.
type Processor struct {
	resolver Resolver
	cid      refdata.CorrelationID
	logger   *slog.Logger
	now      func() time.Time

	state  State
	buffer []model.PriceRecord
	seen   map[int64]struct{}
	report Report
}

// New creates a processor for the request identified by cid.
// An empty cid accepts messages of any correlation id.
func New(resolver Resolver, cid refdata.CorrelationID, opts ...Option) *Processor {
	p := &Processor{
		resolver: resolver,
		cid:      cid,
		logger:   slog.Default(),
		now:      time.Now,
		state:    StateAwaitingEvent,
		seen:     make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "processor")
	return p
}

// Run pulls events until FINAL and returns the accumulated records.
// A source error before FINAL is fatal to the run.
func (p *Processor) Run(ctx context.Context, src EventSource) (Result, error) {
	for p.state != StateDone {
		ev, err := src.NextEvent(ctx)
		if err != nil {
			return Result{Report: p.report}, fmt.Errorf("await event (state %s, %d records): %w", p.state, len(p.buffer), err)
		}
		p.Handle(ev)
	}

	p.logger.Info("response complete",
		"events", p.report.Events,
		"entries", p.report.Entries,
		"prices", p.report.Prices,
		"security_errors", len(p.report.SecurityErrors),
		"field_errors", len(p.report.FieldErrors),
		"extraction_errors", len(p.report.Extraction),
		"unmatched", len(p.report.Unmatched),
	)

	return p.Result(), nil
}

// Handle processes one event and reports whether the loop is done.
// Events handled after FINAL are ignored.
func (p *Processor) Handle(ev refdata.Event) bool {
	if p.state == StateDone {
		p.logger.Warn("event after final ignored", "event_type", ev.Type)
		return true
	}

	p.report.Events++

	switch ev.Kind {
	case refdata.KindPartial, refdata.KindFinal:
		if p.foreign(ev) {
			p.report.ForeignEvents++
			p.logger.Warn("response for another request ignored", "event_type", ev.Type)
			p.state = StateAwaitingEvent
			return false
		}

		if ev.Kind == refdata.KindFinal {
			p.state = StateDraining
		} else {
			p.report.PartialEvents++
			p.state = StateAccumulating
		}

		for _, msg := range ev.Messages {
			if !p.belongs(msg) {
				continue
			}
			p.logger.Debug("response message",
				"event_type", ev.Type,
				"message_type", msg.Type,
				"correlation_id", msg.CorrelationID,
				"entries", len(msg.Records),
			)
			for _, rec := range msg.Records {
				p.handleRecord(rec)
			}
		}

		if ev.Kind == refdata.KindFinal {
			p.state = StateDone
			return true
		}
		p.state = StateAwaitingEvent
		return false

	default:
		p.report.OtherEvents++
		for _, msg := range ev.Messages {
			p.logger.Info("event",
				"event_type", ev.Type,
				"message_type", msg.Type,
				"correlation_id", msg.CorrelationID,
			)
		}
		p.state = StateAwaitingEvent
		return false
	}
}

// State returns the current loop state.
func (p *Processor) State() State {
	return p.state
}

// Result returns a copy of the accumulated records and the report.
func (p *Processor) Result() Result {
	records := make([]model.PriceRecord, len(p.buffer))
	copy(records, p.buffer)
	return Result{Records: records, Report: p.report}
}

func (p *Processor) belongs(msg refdata.Message) bool {
	return p.cid == "" || msg.CorrelationID == "" || msg.CorrelationID == p.cid
}

// foreign reports whether every message of a response event belongs to another request.
func (p *Processor) foreign(ev refdata.Event) bool {
	if len(ev.Messages) == 0 {
		return false
	}
	for _, msg := range ev.Messages {
		if p.belongs(msg) {
			return false
		}
	}
	return true
}

func (p *Processor) handleRecord(rec refdata.SecurityRecord) {
	p.report.Entries++
	log := p.logger.With("security", rec.Security)

	switch r := rec.Result.(type) {
	case refdata.SecurityError:
		log.Warn("security error",
			"source", r.Source,
			"code", r.Code,
			"category", r.Category,
			"message", r.Message,
			"subcategory", r.SubCategory,
		)
		p.report.SecurityErrors = append(p.report.SecurityErrors, SecurityFault{
			Security:  rec.Security,
			ErrorInfo: r.ErrorInfo,
		})

	case refdata.MalformedData:
		p.recordFieldExceptions(log, rec.Security, r.Exceptions)
		log.Warn("entry skipped", "error", r.Err)
		p.report.Extraction = append(p.report.Extraction, ExtractionFault{
			Security: rec.Security,
			Err:      r.Err,
		})

	case refdata.FieldData:
		p.recordFieldExceptions(log, rec.Security, r.Exceptions)
		for _, inv := range r.Invalid {
			log.Warn("field unreadable", "field_id", inv.FieldID, "error", inv.Err)
			p.report.FieldErrors = append(p.report.FieldErrors, FieldFault{
				Security: rec.Security,
				FieldID:  inv.FieldID,
				Err:      inv.Err,
			})
		}
		p.extract(log, rec.Security, r)

	default:
		err := errors.New("entry has no result")
		log.Warn("entry skipped", "error", err)
		p.report.Extraction = append(p.report.Extraction, ExtractionFault{
			Security: rec.Security,
			Err:      err,
		})
	}
}

func (p *Processor) recordFieldExceptions(log *slog.Logger, name string, exceptions []refdata.FieldException) {
	for _, fe := range exceptions {
		log.Warn("field error",
			"field_id", fe.FieldID,
			"source", fe.Source,
			"code", fe.Code,
			"category", fe.Category,
			"message", fe.Message,
			"subcategory", fe.SubCategory,
		)
		p.report.FieldErrors = append(p.report.FieldErrors, FieldFault{
			Security:  name,
			FieldID:   fe.FieldID,
			ErrorInfo: fe.ErrorInfo,
		})
	}
}

func (p *Processor) extract(log *slog.Logger, name string, fd refdata.FieldData) {
	log.Debug("field data",
		refdata.FieldPxLast, fd.PxLast,
		refdata.FieldBid, fd.Bid,
		refdata.FieldAsk, fd.Ask,
		refdata.FieldTicker, fd.Ticker,
	)
	if fd.TradeableDate != nil {
		log.Debug("tradeable date", refdata.FieldTradeableDt, fd.TradeableDate.Format(refdata.DateLayout))
	}
	if fd.OptionExpireDate != nil {
		log.Debug("option expiry", refdata.FieldOptExpireDt, fd.OptionExpireDate.Format(refdata.DateLayout))
	}
	if len(fd.ChainTickers) > 0 {
		for _, ct := range fd.ChainTickers {
			log.Debug("chain ticker", "chain_ticker", ct)
		}
		p.report.ChainTickers += len(fd.ChainTickers)
	} else {
		log.Debug("no chain data")
	}

	sec, ok := p.resolver.Lookup(name)
	if !ok || !sec.Known() {
		log.Info("security not in catalog, skipped", "found", ok, "id", sec.ID)
		p.report.Unmatched = append(p.report.Unmatched, name)
		return
	}

	if _, dup := p.seen[sec.ID]; dup {
		log.Warn("duplicate entry, first kept", "id", sec.ID)
		p.report.Duplicates = append(p.report.Duplicates, name)
		return
	}
	p.seen[sec.ID] = struct{}{}

	p.buffer = append(p.buffer, model.PriceRecord{
		SecurityID: sec.ID,
		Bid:        fd.Bid,
		Ask:        fd.Ask,
		PxLast:     fd.PxLast,
		ObservedAt: p.now(),
	})
	p.report.Prices++
}
