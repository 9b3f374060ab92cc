// Package stream decodes the answer stream of a document question-answering
// request into semantic events and drives them into a Sink.
//
// Bytes flow Decoder -> LineFramer -> ParseRecord -> Session. Chunk
// boundaries are invisible past the Decoder, so the event sequence only
// depends on the bytes, never on how the transport split them.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Sink receives the events of one session, in arrival order.
type Sink interface {
	// OnToken is called with the whole answer streamed so far.
	OnToken(running string)
	OnFinalAnswer(text string, citations []Citation)
	OnError(message string)
}

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateErrored
	// StateCancelled means the caller abandoned the session before the
	// server finished. It is not a protocol outcome.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the server side of the exchange is over.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// Outcome is what a session ended with.
type Outcome struct {
	SessionID string
	State     State
	Answer    string
	Citations []Citation
	Finalized bool
	// Err is nil for StateCompleted. Otherwise it is a *TransportError,
	// a *ProtocolError, ErrPrematureTermination or the context error.
	Err error
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Session owns the state of exactly one streamed answer. It is not safe for
// concurrent use and is not reusable: create a new one per question.
type Session struct {
	id     string
	sink   Sink
	logger *log.Logger

	decoder *Decoder
	framer  *LineFramer

	answer    strings.Builder
	citations []Citation
	finalized bool
	state     State
	err       error
}

func NewSession(sink Sink, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		sink:    sink,
		logger:  log.New(io.Discard),
		decoder: NewDecoder(),
		framer:  NewLineFramer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// Consume is shorthand for NewSession(sink, opts...).Consume(ctx, src).
func Consume(ctx context.Context, src ChunkSource, sink Sink, opts ...Option) Outcome {
	return NewSession(sink, opts...).Consume(ctx, src)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

// Consume pulls chunks from src until the session completes, errors, or ctx
// is done. src is closed on every path. Failures are reported to the sink
// and in the Outcome, never as a returned error.
func (s *Session) Consume(ctx context.Context, src ChunkSource) Outcome {
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Debug("closing chunk source", "err", err)
		}
	}()

	if s.state != StateIdle {
		s.logger.Warn("session already used", "state", s.state)
		return s.outcome()
	}
	s.transition(StateStreaming)

	for {
		chunk, err := src.Next(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.abandon(ctxErr)
			return s.outcome()
		}

		if errors.Is(err, io.EOF) {
			if !s.feed(s.decoder.Flush()) {
				if tail := s.framer.Pending(); tail != "" {
					s.logger.Debug("discarding unterminated record", "line", tail)
				}
				s.fail(ErrPrematureTermination)
			}
			return s.outcome()
		}
		if err != nil {
			s.fail(&TransportError{Err: err})
			return s.outcome()
		}

		if s.feed(s.decoder.Feed(chunk)) {
			return s.outcome()
		}
	}
}

// FailTransport ends an idle session whose request could not be
// established. The sink sees a single error and no partial answer.
func (s *Session) FailTransport(err error) Outcome {
	return s.Reject(&TransportError{Err: err})
}

// Reject ends an idle session with err, reported to the sink as is. Use it
// when the request was refused before any answer data, for example by the
// server or by local validation.
func (s *Session) Reject(err error) Outcome {
	if s.state == StateIdle {
		s.fail(err)
	}
	return s.outcome()
}

// feed frames text and handles each complete record. It reports whether the
// session reached a terminal state; remaining records are then left alone.
func (s *Session) feed(text string) bool {
	for _, line := range s.framer.Push(text) {
		ev, err := ParseRecord(line)
		if err != nil {
			s.logger.Debug("dropping malformed record", "err", err, "line", line)
			continue
		}
		if ev == nil {
			continue
		}

		s.handle(ev)
		if s.state.Terminal() {
			return true
		}
	}
	return false
}

func (s *Session) handle(ev *Event) {
	switch ev.Kind {
	case EventToken:
		if s.finalized {
			s.logger.Debug("ignoring token after final answer")
			return
		}
		s.answer.WriteString(ev.Text)
		s.sink.OnToken(s.answer.String())
	case EventFinalAnswer:
		s.answer.Reset()
		s.answer.WriteString(ev.Text)
		s.citations = ev.Citations
		s.finalized = true
		s.sink.OnFinalAnswer(ev.Text, ev.Citations)
	case EventError:
		s.fail(&ProtocolError{Message: ev.Message})
	case EventDone:
		s.transition(StateCompleted)
	}
}

func (s *Session) fail(err error) {
	s.err = err
	s.transition(StateErrored)
	s.sink.OnError(err.Error())
}

func (s *Session) abandon(err error) {
	s.err = err
	s.transition(StateCancelled)
}

func (s *Session) transition(to State) {
	s.logger.Debug("session state", "from", s.state, "to", to)
	s.state = to
}

func (s *Session) outcome() Outcome {
	return Outcome{
		SessionID: s.id,
		State:     s.state,
		Answer:    s.answer.String(),
		Citations: s.citations,
		Finalized: s.finalized,
		Err:       s.err,
	}
}
