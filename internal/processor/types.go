package processor

import (
	"context"

	"github.com/rickgao/refdata-normalizer/internal/model"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// EventSource yields events for one outstanding request.
type EventSource interface {
	NextEvent(ctx context.Context) (refdata.Event, error)
}

// Resolver maps a service security name to a catalog security.
type Resolver interface {
	Lookup(name string) (model.Security, bool)
}

// State is the processor's loop state.
type State uint8

const (
	StateAwaitingEvent State = iota
	StateAccumulating        // Processing a PARTIAL event
	StateDraining            // Processing the FINAL event
	StateDone                // FINAL processed; terminal
)

func (s State) String() string {
	switch s {
	case StateAwaitingEvent:
		return "awaiting_event"
	case StateAccumulating:
		return "accumulating"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SecurityFault is a classified security-level error.
type SecurityFault struct {
	Security string
	refdata.ErrorInfo
}

// FieldFault is a classified field-level exception. Err is set instead
// of ErrorInfo when the field was returned but could not be decoded.
type FieldFault struct {
	Security string
	FieldID  string
	refdata.ErrorInfo
	Err error
}

// ExtractionFault is an entry that could not be extracted.
type ExtractionFault struct {
	Security string
	Err      error
}

// Report summarizes one run for observability. Non-fatal faults land here.
type Report struct {
	Events         int // All events pulled
	PartialEvents  int
	OtherEvents    int
	ForeignEvents  int // Response events for another correlation id
	Entries        int // securityData entries seen
	Prices         int // PriceRecords accumulated
	Unmatched      []string
	Duplicates     []string
	SecurityErrors []SecurityFault
	FieldErrors    []FieldFault
	Extraction     []ExtractionFault
	ChainTickers   int
}

// Result is the processor's output after FINAL.
type Result struct {
	Records []model.PriceRecord
	Report  Report
}
