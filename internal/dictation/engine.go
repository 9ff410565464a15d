// Package dictation turns a streaming speech recognizer into a live
// transcript buffer.
package dictation

import "fmt"

// Alternative is one ranked transcription hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Segment is one unit of recognizer output. Alternatives are ordered best first.
type Segment struct {
	Alternatives []Alternative `json:"alternatives"`
	Final        bool          `json:"final,omitempty"`
}

// Config is passed to the engine when a recognition starts.
type Config struct {
	Language        string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

// ErrorCode identifies why an engine aborted a recognition.
type ErrorCode string

const (
	ErrorNoSpeech            ErrorCode = "no-speech"
	ErrorAborted             ErrorCode = "aborted"
	ErrorAudioCapture        ErrorCode = "audio-capture"
	ErrorNetwork             ErrorCode = "network"
	ErrorNotAllowed          ErrorCode = "not-allowed"
	ErrorServiceNotAllowed   ErrorCode = "service-not-allowed"
	ErrorLanguageUnsupported ErrorCode = "language-not-supported"
	// ErrorEnded means the engine stopped without being asked to.
	ErrorEnded ErrorCode = "ended"
)

// EngineError is reported when the engine aborts a recognition.
type EngineError struct {
	Code ErrorCode
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("speech engine error: %s", e.Code)
}

// Handler receives the events of a single recognition. Calls for one
// recognition are never concurrent with each other.
type Handler interface {
	OnResult(segments []Segment)
	// OnError reports that the recognition is over. No events follow it and
	// the engine has already released the recognition.
	OnError(code ErrorCode)
}

// Engine is a platform speech recognizer.
//
// Implementations must not call the Handler from inside Start or Stop.
type Engine interface {
	Name() string
	// Available reports whether the recognizer can be used on this machine.
	Available() bool
	Start(cfg Config, h Handler) (Recognition, error)
}

// Recognition is a running recognition owned by whoever started it.
type Recognition interface {
	// Stop ends the recognition and releases its resources. It is safe to
	// call more than once and after OnError.
	Stop() error
}
