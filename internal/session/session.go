package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// Session is a single connection to the reference-data service.
type Session interface {
	// Start connects and opens the service. Both must succeed to reach ServiceReady;
	// otherwise a *ConnectError is returned and the session is unusable.
	Start(ctx context.Context) error

	// Send submits a request and returns the correlation id its events will carry.
	Send(req refdata.Request) (refdata.CorrelationID, error)

	// NextEvent blocks until the next event arrives. Valid only after Send.
	NextEvent(ctx context.Context) (refdata.Event, error)

	// State returns the current lifecycle state.
	State() State

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// wsSession implements Session over a WebSocket gateway.
type wsSession struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	frames chan []byte
	errors chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	mu            sync.RWMutex
	state         State
	closed        bool
	correlationID refdata.CorrelationID
}

// New creates a session. No connection is made until Start.
func New(cfg Config, logger *slog.Logger) Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &wsSession{
		cfg:    cfg,
		logger: logger.With("component", "session"),
		frames: make(chan []byte, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
		state:  StateDisconnected,
	}
}

// Start connects to the gateway, waits for SessionStarted and opens the service.
func (s *wsSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("start from state %s", state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if s.cfg.StartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StartTimeout)
		defer cancel()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL(), nil)
	if err != nil {
		return s.fail(&ConnectError{
			Stage:  StageConnect,
			Reason: fmt.Sprintf("cannot reach %s:%d, check host and port", s.cfg.Host, s.cfg.Port),
			Err:    err,
		})
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop()

	s.logger.Debug("gateway connected", "url", s.cfg.URL())

	if err := s.awaitSessionStarted(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.openService(ctx); err != nil {
		return s.fail(err)
	}

	s.setState(StateServiceReady)
	s.logger.Info("service ready", "service", s.cfg.Service)

	return nil
}

// Send writes the request under a new correlation id.
func (s *wsSession) Send(req refdata.Request) (refdata.CorrelationID, error) {
	if s.State() != StateServiceReady {
		return "", ErrNotReady
	}

	cid := refdata.CorrelationID(uuid.NewString())
	cmd := requestCmd{
		Type:          "request",
		CorrelationID: string(cid),
		Service:       s.cfg.Service,
		Operation:     refdata.OperationReferenceData,
		Request:       req,
	}
	if err := s.write(cmd); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	s.mu.Lock()
	s.correlationID = cid
	s.mu.Unlock()

	s.logger.Debug("request sent",
		"correlation_id", cid,
		"securities", len(req.Securities),
		"fields", len(req.Fields),
		"overrides", len(req.Overrides),
	)

	return cid, nil
}

// NextEvent blocks until the transport delivers the next event.
func (s *wsSession) NextEvent(ctx context.Context) (refdata.Event, error) {
	s.mu.RLock()
	state, cid := s.state, s.correlationID
	s.mu.RUnlock()

	switch {
	case state == StateTerminated:
		return refdata.Event{}, ErrTerminated
	case state != StateServiceReady:
		return refdata.Event{}, ErrNotReady
	case cid == "":
		return refdata.Event{}, ErrNotSent
	}

	ev, err := s.receive(ctx, s.cfg.EventTimeout)
	if err != nil {
		if err == ErrEventTimeout || ctx.Err() != nil {
			return refdata.Event{}, err
		}
		s.setState(StateTerminated)
		return refdata.Event{}, fmt.Errorf("next event: %w", err)
	}

	if ev.Type == refdata.EventSessionStatus && ev.HasMessage(refdata.MsgSessionTerminated) {
		s.logger.Warn("terminating", "message_type", refdata.MsgSessionTerminated)
		s.setState(StateTerminated)
	}

	return ev, nil
}

// State returns the current lifecycle state.
func (s *wsSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close gracefully closes the connection.
func (s *wsSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.state != StateFailed {
		s.state = StateTerminated
	}
	conn := s.conn
	s.mu.Unlock()

	// Signal the read loop to stop
	close(s.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

func (s *wsSession) awaitSessionStarted(ctx context.Context) error {
	for {
		ev, err := s.receive(ctx, 0)
		if err != nil {
			return &ConnectError{Stage: StageSession, Reason: "no session status from gateway", Err: err}
		}

		if ev.Type != refdata.EventSessionStatus {
			s.logger.Debug("skipping event before session start", "event_type", ev.Type)
			continue
		}

		for _, m := range ev.Messages {
			switch m.Type {
			case refdata.MsgSessionStarted:
				return nil
			case refdata.MsgSessionStartupFailed, refdata.MsgSessionTerminated:
				return &ConnectError{Stage: StageSession, Reason: reasonOr(m, m.Type)}
			}
		}
	}
}

func (s *wsSession) openService(ctx context.Context) error {
	cid := uuid.NewString()
	cmd := openServiceCmd{
		Type:          "openService",
		CorrelationID: cid,
		Service:       s.cfg.Service,
	}
	if err := s.write(cmd); err != nil {
		return &ConnectError{Stage: StageOpenService, Reason: "write open service", Err: err}
	}

	for {
		ev, err := s.receive(ctx, 0)
		if err != nil {
			return &ConnectError{Stage: StageOpenService, Reason: "no service status from gateway", Err: err}
		}

		for _, m := range ev.Messages {
			if m.CorrelationID != "" && string(m.CorrelationID) != cid {
				continue
			}
			switch m.Type {
			case refdata.MsgServiceOpened:
				return nil
			case refdata.MsgServiceOpenFailure:
				return &ConnectError{
					Stage:  StageOpenService,
					Reason: fmt.Sprintf("service %s unknown: %s", s.cfg.Service, reasonOr(m, "open failure")),
				}
			case refdata.MsgSessionTerminated:
				return &ConnectError{Stage: StageOpenService, Reason: "session terminated"}
			}
		}

		s.logger.Debug("skipping event while opening service", "event_type", ev.Type)
	}
}

// receive waits for one frame and decodes it. timeout 0 waits indefinitely.
func (s *wsSession) receive(ctx context.Context, timeout time.Duration) (refdata.Event, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case data := <-s.frames:
		return decode(data)
	case err := <-s.errors:
		// readLoop queues every frame before reporting its error.
		select {
		case data := <-s.frames:
			s.errors <- err
			return decode(data)
		default:
		}
		return refdata.Event{}, err
	case <-s.done:
		return refdata.Event{}, ErrAlreadyClosed
	case <-expired:
		return refdata.Event{}, ErrEventTimeout
	case <-ctx.Done():
		return refdata.Event{}, ctx.Err()
	}
}

func decode(data []byte) (refdata.Event, error) {
	ev, err := refdata.DecodeEvent(data)
	if err != nil {
		return refdata.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

func (s *wsSession) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotReady
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames and hands them to receive. Frames are never dropped.
func (s *wsSession) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-s.done:
				return
			default:
			}
			select {
			case s.errors <- err:
			default:
			}
			return
		}

		select {
		case s.frames <- data:
		case <-s.done:
			return
		}
	}
}

func (s *wsSession) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *wsSession) fail(err error) error {
	s.mu.Lock()
	s.state = StateFailed
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	s.logger.Error("session start failed", "error", err)
	return err
}

func reasonOr(m refdata.Message, fallback string) string {
	if m.Reason != "" {
		return m.Reason
	}
	return fallback
}
