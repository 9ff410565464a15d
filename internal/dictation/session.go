package dictation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnsupported is returned by Start when the engine is not available.
var ErrUnsupported = errors.New("speech recognition is not supported on this platform")

// State of a Session.
type State int

const (
	Idle State = iota
	Recording
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink observes a Session. Calls arrive in the order the changes happened,
// one at a time, after the session lock is released. A Sink must not call
// back into the Session.
type Sink interface {
	StateChanged(state State)
	TranscriptChanged(transcript string)
	// Notify reports a transient, non-fatal problem to the user.
	Notify(err error)
}

type nopSink struct{}

func (nopSink) StateChanged(State)       {}
func (nopSink) TranscriptChanged(string) {}
func (nopSink) Notify(error)             {}

// Session drives one Engine. At most one recognition is active per Session;
// the Session owns it from Start until Stop or an engine error.
type Session struct {
	engine   Engine
	language string
	log      zerolog.Logger
	sink     Sink

	mu         sync.Mutex
	emitMu     sync.Mutex
	state      State
	transcript string
	active     *handle
	lastErr    error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithLanguage(lang string) SessionOption {
	return func(s *Session) { s.language = lang }
}

func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithSink(sink Sink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// NewSession creates an idle Session on engine.
func NewSession(engine Engine, opts ...SessionOption) *Session {
	s := &Session{
		engine:   engine,
		language: "en-US",
		log:      zerolog.Nop(),
		sink:     nopSink{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// handle binds engine callbacks to the recognition they belong to. Once a
// handle is no longer the session's active one its events are dropped.
type handle struct {
	s   *Session
	rec Recognition
}

func (h *handle) OnResult(segments []Segment) { h.s.onResult(h, segments) }
func (h *handle) OnError(code ErrorCode)      { h.s.onError(h, code) }

// Start begins a recognition. Starting an already recording session does
// nothing. If the engine is unavailable the session moves to Error and
// ErrUnsupported is returned.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil
	}

	if !s.engine.Available() {
		err := fmt.Errorf("%w (engine %s)", ErrUnsupported, s.engine.Name())
		s.state = Error
		s.lastErr = err
		s.log.Warn().Str("engine", s.engine.Name()).Msg("speech recognition unavailable")
		s.release(func() {
			s.sink.StateChanged(Error)
			s.sink.Notify(err)
		})
		return err
	}

	h := &handle{s: s}
	s.active = h
	s.lastErr = nil
	s.mu.Unlock()

	rec, err := s.engine.Start(Config{
		Language:        s.language,
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	}, h)

	s.mu.Lock()
	if s.active != h {
		// Stopped, or aborted by the engine, while starting.
		s.mu.Unlock()
		if rec != nil {
			return rec.Stop()
		}
		return nil
	}
	if err != nil {
		err = fmt.Errorf("start %s: %w", s.engine.Name(), err)
		s.active = nil
		s.state = Error
		s.lastErr = err
		s.log.Error().Err(err).Msg("dictation failed to start")
		s.release(func() {
			s.sink.StateChanged(Error)
			s.sink.Notify(err)
		})
		return err
	}
	h.rec = rec
	s.state = Recording
	s.log.Info().Str("engine", s.engine.Name()).Str("language", s.language).Msg("dictation started")
	s.release(func() { s.sink.StateChanged(Recording) })
	return nil
}

// Stop ends the active recognition and returns to Idle. The transcript is
// kept. Results that arrive afterwards are ignored.
func (s *Session) Stop() error {
	s.mu.Lock()
	h := s.active
	prev := s.state
	s.active = nil
	s.state = Idle
	s.release(func() {
		if prev != Idle {
			s.sink.StateChanged(Idle)
		}
	})

	if h == nil || h.rec == nil {
		return nil
	}

	s.log.Info().Msg("dictation stopped")
	if err := h.rec.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", s.engine.Name(), err)
	}
	return nil
}

// release unlocks s.mu and runs emit with the sink. Notifications keep the
// order in which their state changes were made.
func (s *Session) release(emit func()) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	emit()
}

func (s *Session) onResult(h *handle, segments []Segment) {
	var b strings.Builder
	for _, seg := range segments {
		if len(seg.Alternatives) > 0 {
			b.WriteString(seg.Alternatives[0].Transcript)
		}
	}
	text := b.String()

	s.mu.Lock()
	if s.active != h {
		s.mu.Unlock()
		s.log.Debug().Msg("dropping result from inactive recognition")
		return
	}
	if s.transcript == text {
		s.mu.Unlock()
		return
	}
	s.transcript = text
	s.release(func() { s.sink.TranscriptChanged(text) })
}

func (s *Session) onError(h *handle, code ErrorCode) {
	s.mu.Lock()
	if s.active != h {
		s.mu.Unlock()
		return
	}
	err := &EngineError{Code: code}
	s.active = nil
	s.state = Idle
	s.lastErr = err
	s.log.Error().Str("code", string(code)).Msg("dictation ended by engine error")
	s.release(func() {
		s.sink.StateChanged(Idle)
		s.sink.Notify(err)
	})
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the current buffer.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Clear empties the buffer, typically after it was saved as a note.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.transcript == "" {
		s.mu.Unlock()
		return
	}
	s.transcript = ""
	s.release(func() { s.sink.TranscriptChanged("") })
}

// Err returns the error behind the last failed Start or engine abort, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Language() string {
	return s.language
}
