package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/refdata-normalizer/internal/model"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

const cid = refdata.CorrelationID("req-1")

var fixedNow = time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

type mapResolver map[string]model.Security

func (m mapResolver) Lookup(name string) (model.Security, bool) {
	s, ok := m[name]
	return s, ok
}

// sliceSource replays events, then fails with err (or ErrExhausted).
type sliceSource struct {
	events []refdata.Event
	pulled int
	err    error
}

var errExhausted = errors.New("source exhausted")

func (s *sliceSource) NextEvent(ctx context.Context) (refdata.Event, error) {
	if s.pulled >= len(s.events) {
		if s.err != nil {
			return refdata.Event{}, s.err
		}
		return refdata.Event{}, errExhausted
	}
	ev := s.events[s.pulled]
	s.pulled++
	return ev, nil
}

func fieldData(name string, px, bid, ask float64) refdata.SecurityRecord {
	return refdata.SecurityRecord{
		Security: name,
		Result:   refdata.FieldData{PxLast: px, Bid: bid, Ask: ask, Ticker: name},
	}
}

func response(kind refdata.EventKind, recs ...refdata.SecurityRecord) refdata.Event {
	typ := refdata.EventPartialResponse
	if kind == refdata.KindFinal {
		typ = refdata.EventResponse
	}
	return refdata.Event{
		Kind: kind,
		Type: typ,
		Messages: []refdata.Message{{
			Type:          refdata.MsgReferenceData,
			CorrelationID: cid,
			Records:       recs,
		}},
	}
}

func status(msgType string) refdata.Event {
	return refdata.Event{
		Kind:     refdata.KindOther,
		Type:     refdata.EventSessionStatus,
		Messages: []refdata.Message{{Type: msgType}},
	}
}

func newProcessor(r Resolver) *Processor {
	return New(r, cid, WithClock(func() time.Time { return fixedNow }))
}

func TestRun_SingleFinalMatchedSecurity(t *testing.T) {
	catalog := mapResolver{"XYZ US Equity": {ID: 7, Name: "XYZ US Equity"}}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindFinal, fieldData("XYZ US Equity", 101.5, 101.2, 101.8)),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, model.PriceRecord{
		SecurityID: 7,
		Bid:        101.2,
		Ask:        101.8,
		PxLast:     101.5,
		ObservedAt: fixedNow,
	}, res.Records[0])
	assert.Equal(t, 1, res.Report.Prices)
}

func TestRun_UnmatchedSecuritySkipped(t *testing.T) {
	catalog := mapResolver{
		"XYZ US Equity":  {ID: 7, Name: "XYZ US Equity"},
		"ZERO US Equity": {ID: 0, Name: "ZERO US Equity"},
		"NEG US Equity":  {ID: -3, Name: "NEG US Equity"},
	}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindFinal,
			fieldData("NOPE US Equity", 1, 1, 1),
			fieldData("ZERO US Equity", 1, 1, 1),
			fieldData("NEG US Equity", 1, 1, 1),
		),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Equal(t, []string{"NOPE US Equity", "ZERO US Equity", "NEG US Equity"}, res.Report.Unmatched)
	assert.Empty(t, res.Report.SecurityErrors)
	assert.Empty(t, res.Report.Extraction)
}

func TestRun_SecurityErrorClassified(t *testing.T) {
	catalog := mapResolver{"BAD US Equity": {ID: 9, Name: "BAD US Equity"}}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindFinal, refdata.SecurityRecord{
			Security: "BAD US Equity",
			Result: refdata.SecurityError{ErrorInfo: refdata.ErrorInfo{
				Source: "src", Code: 15, Category: "BAD_SEC", Message: "Unknown/Invalid security", SubCategory: "INVALID_SECURITY",
			}},
		}),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	require.Len(t, res.Report.SecurityErrors, 1)
	assert.Equal(t, "BAD US Equity", res.Report.SecurityErrors[0].Security)
	assert.Equal(t, "BAD_SEC", res.Report.SecurityErrors[0].Category)
	assert.Empty(t, res.Report.FieldErrors, "security error must not be classified as a field error")
}

func TestRun_FieldExceptionsStillExtract(t *testing.T) {
	catalog := mapResolver{"OPT US Equity": {ID: 3, Name: "OPT US Equity"}}
	rec := fieldData("OPT US Equity", 10, 9.5, 10.5)
	fd := rec.Result.(refdata.FieldData)
	fd.Exceptions = []refdata.FieldException{
		{FieldID: refdata.FieldOptExpireDt, ErrorInfo: refdata.ErrorInfo{Code: 9, Category: "BAD_FLD"}},
		{FieldID: refdata.FieldChainTickers, ErrorInfo: refdata.ErrorInfo{Code: 9, Category: "BAD_FLD"}},
	}
	rec.Result = fd

	src := &sliceSource{events: []refdata.Event{response(refdata.KindFinal, rec)}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(3), res.Records[0].SecurityID)
	require.Len(t, res.Report.FieldErrors, 2)
	assert.Equal(t, refdata.FieldOptExpireDt, res.Report.FieldErrors[0].FieldID)
	assert.Equal(t, "OPT US Equity", res.Report.FieldErrors[0].Security)
	assert.Empty(t, res.Report.SecurityErrors)
}

func TestRun_PartialsAccumulateInArrivalOrder(t *testing.T) {
	catalog := mapResolver{
		"A US Equity": {ID: 1, Name: "A US Equity"},
		"B US Equity": {ID: 2, Name: "B US Equity"},
		"C US Equity": {ID: 3, Name: "C US Equity"},
	}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindPartial, fieldData("A US Equity", 1, 1, 1)),
		status("Heartbeat"),
		response(refdata.KindPartial, fieldData("B US Equity", 2, 2, 2)),
		response(refdata.KindFinal, fieldData("C US Equity", 3, 3, 3)),
		// Never pulled: the loop ends at FINAL.
		response(refdata.KindFinal, fieldData("A US Equity", 9, 9, 9)),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, int64(1), res.Records[0].SecurityID)
	assert.Equal(t, int64(2), res.Records[1].SecurityID)
	assert.Equal(t, int64(3), res.Records[2].SecurityID)
	assert.Equal(t, 4, src.pulled)
	assert.Equal(t, 4, res.Report.Events)
	assert.Equal(t, 2, res.Report.PartialEvents)
	assert.Equal(t, 1, res.Report.OtherEvents)
}

func TestRun_MalformedEntrySkipped(t *testing.T) {
	catalog := mapResolver{
		"A US Equity": {ID: 1, Name: "A US Equity"},
		"B US Equity": {ID: 2, Name: "B US Equity"},
	}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindFinal,
			refdata.SecurityRecord{
				Security: "A US Equity",
				Result:   refdata.MalformedData{Err: refdata.ErrMissingField},
			},
			refdata.SecurityRecord{Security: "nil result"},
			fieldData("B US Equity", 2, 2, 2),
		),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(2), res.Records[0].SecurityID)
	require.Len(t, res.Report.Extraction, 2)
	assert.ErrorIs(t, res.Report.Extraction[0].Err, refdata.ErrMissingField)
}

func TestRun_ExceptionForMissingFieldRecorded(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindFinal, refdata.SecurityRecord{
			Security: "A US Equity",
			Result: refdata.MalformedData{
				Err: fmt.Errorf("[%s]: %w", refdata.FieldBid, refdata.ErrMissingField),
				Exceptions: []refdata.FieldException{
					{FieldID: refdata.FieldBid, ErrorInfo: refdata.ErrorInfo{Code: 9, Category: "BAD_FLD"}},
				},
			},
		}),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	require.Len(t, res.Report.FieldErrors, 1)
	assert.Equal(t, refdata.FieldBid, res.Report.FieldErrors[0].FieldID)
	assert.Equal(t, "A US Equity", res.Report.FieldErrors[0].Security)
	assert.Equal(t, "BAD_FLD", res.Report.FieldErrors[0].Category)
	require.Len(t, res.Report.Extraction, 1)
	assert.ErrorIs(t, res.Report.Extraction[0].Err, refdata.ErrMissingField)
}

func TestRun_DecodedMissingFieldWithException(t *testing.T) {
	frame := `{"eventType":"RESPONSE","messages":[{"messageType":"ReferenceDataResponse","correlationId":"req-1","securityData":[{
		"security":"A US Equity",
		"fieldData":{"PX_LAST":1,"ASK":2,"TICKER":"A"},
		"fieldExceptions":[{"fieldId":"BID","errorInfo":{"code":9,"category":"BAD_FLD"}}]
	}]}]}`
	ev, err := refdata.DecodeEvent([]byte(frame))
	require.NoError(t, err)

	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	res, err := newProcessor(catalog).Run(context.Background(), &sliceSource{events: []refdata.Event{ev}})
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	require.Len(t, res.Report.FieldErrors, 1)
	assert.Equal(t, refdata.FieldBid, res.Report.FieldErrors[0].FieldID)
	require.Len(t, res.Report.Extraction, 1)
}

func TestRun_UnreadableDateStillExtracts(t *testing.T) {
	frame := `{"eventType":"RESPONSE","messages":[{"messageType":"ReferenceDataResponse","correlationId":"req-1","securityData":[{
		"security":"A US Equity",
		"fieldData":{"PX_LAST":1,"BID":0.9,"ASK":1.1,"TICKER":"A","TRADEABLE_DT":"2024/01/15"}
	}]}]}`
	ev, err := refdata.DecodeEvent([]byte(frame))
	require.NoError(t, err)

	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	res, err := newProcessor(catalog).Run(context.Background(), &sliceSource{events: []refdata.Event{ev}})
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(1), res.Records[0].SecurityID)
	assert.Equal(t, 1.0, res.Records[0].PxLast)
	assert.Empty(t, res.Report.Extraction)
	require.Len(t, res.Report.FieldErrors, 1)
	assert.Equal(t, refdata.FieldTradeableDt, res.Report.FieldErrors[0].FieldID)
	assert.Error(t, res.Report.FieldErrors[0].Err)
}

func TestRun_DuplicateEntryFirstKept(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	src := &sliceSource{events: []refdata.Event{
		response(refdata.KindPartial, fieldData("A US Equity", 1, 1, 1)),
		response(refdata.KindFinal, fieldData("A US Equity", 2, 2, 2)),
	}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1.0, res.Records[0].PxLast)
	assert.Equal(t, []string{"A US Equity"}, res.Report.Duplicates)
}

func TestRun_SourceErrorBeforeFinal(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	boom := errors.New("transport closed")
	src := &sliceSource{
		events: []refdata.Event{response(refdata.KindPartial, fieldData("A US Equity", 1, 1, 1))},
		err:    boom,
	}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, res.Records, "no records are handed over without FINAL")
	assert.Equal(t, 1, res.Report.Prices)
}

func TestRun_EmptyFinal(t *testing.T) {
	src := &sliceSource{events: []refdata.Event{response(refdata.KindFinal)}}

	res, err := newProcessor(mapResolver{}).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestHandle_ForeignCorrelationIgnored(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	p := newProcessor(catalog)

	foreign := response(refdata.KindFinal, fieldData("A US Equity", 1, 1, 1))
	foreign.Messages[0].CorrelationID = "someone-else"

	assert.False(t, p.Handle(foreign), "foreign FINAL must not end the loop")
	assert.Equal(t, StateAwaitingEvent, p.State())
	assert.Empty(t, p.Result().Records)
	assert.Equal(t, 1, p.Result().Report.ForeignEvents)

	assert.True(t, p.Handle(response(refdata.KindFinal, fieldData("A US Equity", 1, 1, 1))))
	assert.Len(t, p.Result().Records, 1)
}

func TestHandle_StateTransitions(t *testing.T) {
	p := newProcessor(mapResolver{})
	assert.Equal(t, StateAwaitingEvent, p.State())

	assert.False(t, p.Handle(status(refdata.MsgSessionStarted)))
	assert.Equal(t, StateAwaitingEvent, p.State())

	assert.False(t, p.Handle(response(refdata.KindPartial)))
	assert.Equal(t, StateAwaitingEvent, p.State())

	assert.True(t, p.Handle(response(refdata.KindFinal)))
	assert.Equal(t, StateDone, p.State())

	// Append-only: nothing after FINAL is accepted.
	assert.True(t, p.Handle(response(refdata.KindFinal, fieldData("A", 1, 1, 1))))
	assert.Equal(t, 3, p.Result().Report.Events)
}

func TestResult_ReturnsCopy(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	p := newProcessor(catalog)
	p.Handle(response(refdata.KindFinal, fieldData("A US Equity", 1, 1, 1)))

	res := p.Result()
	res.Records[0].PxLast = 42

	assert.Equal(t, 1.0, p.Result().Records[0].PxLast)
}

func TestRun_ChainTickersCounted(t *testing.T) {
	catalog := mapResolver{"A US Equity": {ID: 1, Name: "A US Equity"}}
	rec := fieldData("A US Equity", 1, 1, 1)
	fd := rec.Result.(refdata.FieldData)
	fd.ChainTickers = []string{"A 12/20/14 P1", "A 12/20/14 P2"}
	rec.Result = fd

	src := &sliceSource{events: []refdata.Event{response(refdata.KindFinal, rec)}}

	res, err := newProcessor(catalog).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.ChainTickers)
}
