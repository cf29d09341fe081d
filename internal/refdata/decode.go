package refdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMissingField is returned when a mandatory scalar field is absent from fieldData.
var ErrMissingField = errors.New("mandatory field missing")

// DateLayout is the wire format of date fields.
const DateLayout = time.DateOnly

type wireEvent struct {
	EventType string            `json:"eventType"`
	Messages  []json.RawMessage `json:"messages"`
}

type wireMessage struct {
	MessageType   string             `json:"messageType"`
	CorrelationID string             `json:"correlationId"`
	Reason        *wireReason        `json:"reason"`
	SecurityData  []wireSecurityData `json:"securityData"`
}

type wireReason struct {
	Source      string `json:"source"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type wireErrorInfo struct {
	Source      string `json:"source"`
	Code        int    `json:"code"`
	Category    string `json:"category"`
	Message     string `json:"message"`
	SubCategory string `json:"subcategory"`
}

type wireFieldException struct {
	FieldID   string        `json:"fieldId"`
	ErrorInfo wireErrorInfo `json:"errorInfo"`
}

type wireSecurityData struct {
	Security        string               `json:"security"`
	SequenceNumber  int                  `json:"sequenceNumber"`
	FieldData       *wireFieldData       `json:"fieldData"`
	FieldExceptions []wireFieldException `json:"fieldExceptions"`
	SecurityError   *wireErrorInfo       `json:"securityError"`
}

type wireFieldData struct {
	PxLast       *float64           `json:"PX_LAST"`
	Bid          *float64           `json:"BID"`
	Ask          *float64           `json:"ASK"`
	Ticker       *string            `json:"TICKER"`
	TradeableDt  *string            `json:"TRADEABLE_DT"`
	OptExpireDt  *string            `json:"OPT_EXPIRE_DT"`
	ChainTickers []*wireChainTicker `json:"CHAIN_TICKERS"`
}

type wireChainTicker struct {
	Ticker string `json:"Ticker"`
}

// DecodeEvent decodes one gateway frame.
func DecodeEvent(data []byte) (Event, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if we.EventType == "" {
		return Event{}, errors.New("event type missing")
	}

	ev := Event{
		Kind:     kindOf(we.EventType),
		Type:     we.EventType,
		Messages: make([]Message, 0, len(we.Messages)),
	}

	for i, raw := range we.Messages {
		var wm wireMessage
		if err := json.Unmarshal(raw, &wm); err != nil {
			return Event{}, fmt.Errorf("unmarshal message %d: %w", i, err)
		}

		msg := Message{
			Type:          wm.MessageType,
			CorrelationID: CorrelationID(wm.CorrelationID),
			Raw:           raw,
		}
		if wm.Reason != nil {
			msg.Reason = wm.Reason.Description
			if msg.Reason == "" {
				msg.Reason = wm.Reason.Category
			}
		}
		if len(wm.SecurityData) > 0 {
			msg.Records = make([]SecurityRecord, 0, len(wm.SecurityData))
			for _, sd := range wm.SecurityData {
				msg.Records = append(msg.Records, decodeSecurityData(sd))
			}
		}

		ev.Messages = append(ev.Messages, msg)
	}

	return ev, nil
}

// decodeSecurityData resolves one entry to exactly one Result variant.
// A securityError takes precedence over any fieldData on the same entry.
func decodeSecurityData(sd wireSecurityData) SecurityRecord {
	rec := SecurityRecord{
		Security: sd.Security,
		Sequence: sd.SequenceNumber,
	}

	if sd.SecurityError != nil {
		rec.Result = SecurityError{ErrorInfo: sd.SecurityError.toErrorInfo()}
		return rec
	}

	var exceptions []FieldException
	for _, fe := range sd.FieldExceptions {
		exceptions = append(exceptions, FieldException{
			FieldID:   fe.FieldID,
			ErrorInfo: fe.ErrorInfo.toErrorInfo(),
		})
	}

	fd, err := decodeFieldData(sd.FieldData)
	if err != nil {
		rec.Result = MalformedData{Err: err, Exceptions: exceptions}
		return rec
	}
	fd.Exceptions = exceptions

	rec.Result = fd
	return rec
}

func decodeFieldData(w *wireFieldData) (FieldData, error) {
	if w == nil {
		return FieldData{}, fmt.Errorf("fieldData: %w", ErrMissingField)
	}

	var missing []string
	if w.PxLast == nil {
		missing = append(missing, FieldPxLast)
	}
	if w.Bid == nil {
		missing = append(missing, FieldBid)
	}
	if w.Ask == nil {
		missing = append(missing, FieldAsk)
	}
	if w.Ticker == nil {
		missing = append(missing, FieldTicker)
	}
	if len(missing) > 0 {
		return FieldData{}, fmt.Errorf("%v: %w", missing, ErrMissingField)
	}

	fd := FieldData{
		PxLast: *w.PxLast,
		Bid:    *w.Bid,
		Ask:    *w.Ask,
		Ticker: *w.Ticker,
	}

	var err error
	if fd.TradeableDate, err = parseDate(FieldTradeableDt, w.TradeableDt); err != nil {
		fd.Invalid = append(fd.Invalid, InvalidField{FieldID: FieldTradeableDt, Err: err})
	}
	if fd.OptionExpireDate, err = parseDate(FieldOptExpireDt, w.OptExpireDt); err != nil {
		fd.Invalid = append(fd.Invalid, InvalidField{FieldID: FieldOptExpireDt, Err: err})
	}

	for _, ct := range w.ChainTickers {
		if ct == nil || ct.Ticker == "" {
			continue
		}
		fd.ChainTickers = append(fd.ChainTickers, ct.Ticker)
	}

	return fd, nil
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", field, err)
	}
	return &t, nil
}

func (w wireErrorInfo) toErrorInfo() ErrorInfo {
	return ErrorInfo{
		Source:      w.Source,
		Code:        w.Code,
		Category:    w.Category,
		Message:     w.Message,
		SubCategory: w.SubCategory,
	}
}
