package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// Errors
var (
	ErrNotReady      = errors.New("service not ready")
	ErrNotSent       = errors.New("no request sent")
	ErrTerminated    = errors.New("session terminated")
	ErrEventTimeout  = errors.New("event wait timeout")
	ErrAlreadyClosed = errors.New("already closed")
)

// DefaultService is the reference-data service name.
const DefaultService = "//blp/refdata"

// State is the session lifecycle state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateServiceReady
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateServiceReady:
		return "service_ready"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Connect stages reported by ConnectError.
const (
	StageConnect     = "connect"
	StageSession     = "session start"
	StageOpenService = "open service"
)

// ConnectError is returned by Start when the session cannot reach ServiceReady.
type ConnectError struct {
	Stage  string // StageConnect, StageSession or StageOpenService
	Reason string // Operator-facing diagnostic
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Reason)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Config configures a session.
type Config struct {
	Host             string        // Gateway host
	Port             int           // Gateway port
	Path             string        // WebSocket path (default "/")
	Service          string        // Service to open (default //blp/refdata)
	HandshakeTimeout time.Duration // Dial handshake timeout
	StartTimeout     time.Duration // Max wait for SessionStarted and ServiceOpened
	WriteTimeout     time.Duration // Write deadline for sends
	EventTimeout     time.Duration // Max wait in NextEvent, 0 = block until an event arrives
	BufferSize       int           // Frame channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "localhost",
		Port:             8194,
		Path:             "/",
		Service:          DefaultService,
		HandshakeTimeout: 10 * time.Second,
		StartTimeout:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// URL returns the gateway WebSocket URL.
func (c Config) URL() string {
	path := c.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   path,
	}
	return u.String()
}

// openServiceCmd asks the gateway to open a service.
type openServiceCmd struct {
	Type          string `json:"type"` // "openService"
	CorrelationID string `json:"correlationId"`
	Service       string `json:"service"`
}

// requestCmd carries one request to an opened service.
type requestCmd struct {
	Type          string          `json:"type"` // "request"
	CorrelationID string          `json:"correlationId"`
	Service       string          `json:"service"`
	Operation     string          `json:"operation"`
	Request       refdata.Request `json:"request"`
}
