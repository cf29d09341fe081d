package refdata

import (
	"encoding/json"
	"time"
)

// CorrelationID distinguishes one outstanding request's events from any other.
type CorrelationID string

// EventKind classifies a gateway event for the response loop.
type EventKind uint8

const (
	KindOther   EventKind = iota // Status and heartbeat notifications
	KindPartial                  // PARTIAL_RESPONSE: more events follow
	KindFinal                    // RESPONSE: last event of the request
)

func (k EventKind) String() string {
	switch k {
	case KindPartial:
		return "PARTIAL"
	case KindFinal:
		return "FINAL"
	default:
		return "OTHER"
	}
}

// Gateway event types.
const (
	EventSessionStatus   = "SESSION_STATUS"
	EventServiceStatus   = "SERVICE_STATUS"
	EventRequestStatus   = "REQUEST_STATUS"
	EventPartialResponse = "PARTIAL_RESPONSE"
	EventResponse        = "RESPONSE"
)

// Gateway message types.
const (
	MsgSessionStarted       = "SessionStarted"
	MsgSessionStartupFailed = "SessionStartupFailure"
	MsgSessionTerminated    = "SessionTerminated"
	MsgServiceOpened        = "ServiceOpened"
	MsgServiceOpenFailure   = "ServiceOpenFailure"
	MsgReferenceData        = "ReferenceDataResponse"
)

func kindOf(eventType string) EventKind {
	switch eventType {
	case EventPartialResponse:
		return KindPartial
	case EventResponse:
		return KindFinal
	default:
		return KindOther
	}
}

// Event is one unit pulled from the session.
type Event struct {
	Kind     EventKind
	Type     string // Raw gateway event type
	Messages []Message
}

// Message is one message inside an event.
type Message struct {
	Type          string
	CorrelationID CorrelationID
	Reason        string           // Status messages: failure reason, if any
	Records       []SecurityRecord // Response messages: one per securityData entry
	Raw           json.RawMessage
}

// HasMessage reports whether the event carries a message of the given type.
func (e Event) HasMessage(msgType string) bool {
	for _, m := range e.Messages {
		if m.Type == msgType {
			return true
		}
	}
	return false
}

// SecurityRecord is the per-security result inside a response message.
type SecurityRecord struct {
	Security string
	Sequence int
	Result   Result
}

// Result is implemented by FieldData, SecurityError and MalformedData.
type Result interface {
	isResult()
}

// ErrorInfo is the service's error description.
type ErrorInfo struct {
	Source      string
	Code        int
	Category    string
	Message     string
	SubCategory string
}

// FieldData holds the extracted fields of a resolved security.
type FieldData struct {
	PxLast           float64
	Bid              float64
	Ask              float64
	Ticker           string
	TradeableDate    *time.Time // Absent unless returned
	OptionExpireDate *time.Time // Stock options only
	ChainTickers     []string   // Null entries excluded
	Exceptions       []FieldException
	Invalid          []InvalidField // Optional fields present but undecodable
}

// InvalidField is an optional field whose value could not be decoded.
// The field is left unset on FieldData.
type InvalidField struct {
	FieldID string
	Err     error
}

// FieldException is a failure of one field on an otherwise resolved security.
type FieldException struct {
	FieldID string
	ErrorInfo
}

// SecurityError means the whole security could not be served.
type SecurityError struct {
	ErrorInfo
}

// MalformedData is an entry that could not be decoded into FieldData,
// e.g. a mandatory scalar field was missing. Exceptions carries the
// entry's field exceptions, which often name the missing field.
type MalformedData struct {
	Err        error
	Exceptions []FieldException
}

func (FieldData) isResult()     {}
func (SecurityError) isResult() {}
func (MalformedData) isResult() {}
