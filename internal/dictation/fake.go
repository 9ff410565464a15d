package dictation

import (
	"errors"
	"sync"
)

// FakeEngine is a scriptable Engine. Events are pushed with Emit and Fail
// and go to the most recently started recognition, even after it was
// stopped, so stray late events can be simulated.
type FakeEngine struct {
	mu          sync.Mutex
	unavailable bool
	startErr    error
	configs     []Config
	current     *fakeRecognition
	stops       int
}

// NewFake returns an available FakeEngine.
func NewFake() *FakeEngine {
	return &FakeEngine{}
}

// SetAvailable controls what Available reports.
func (f *FakeEngine) SetAvailable(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = !ok
}

// FailStart makes the next Start calls return err.
func (f *FakeEngine) FailStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

func (f *FakeEngine) Name() string { return "fake" }

func (f *FakeEngine) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unavailable
}

func (f *FakeEngine) Start(cfg Config, h Handler) (Recognition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return nil, errors.New("fake engine unavailable")
	}
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.configs = append(f.configs, cfg)
	f.current = &fakeRecognition{engine: f, handler: h}
	return f.current, nil
}

// Emit delivers one result event with a single-alternative segment per transcript.
func (f *FakeEngine) Emit(transcripts ...string) {
	segs := make([]Segment, len(transcripts))
	for i, t := range transcripts {
		segs[i] = Segment{Alternatives: []Alternative{{Transcript: t, Confidence: 1}}}
	}
	f.EmitSegments(segs)
}

func (f *FakeEngine) EmitSegments(segs []Segment) {
	if h := f.handler(); h != nil {
		h.OnResult(segs)
	}
}

// Fail delivers an engine error.
func (f *FakeEngine) Fail(code ErrorCode) {
	if h := f.handler(); h != nil {
		h.OnError(code)
	}
}

// Starts returns the configs of every successful Start, oldest first.
func (f *FakeEngine) Starts() []Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Config(nil), f.configs...)
}

// Stops counts Stop calls across all recognitions.
func (f *FakeEngine) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *FakeEngine) handler() Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	return f.current.handler
}

type fakeRecognition struct {
	engine  *FakeEngine
	handler Handler
}

func (r *fakeRecognition) Stop() error {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	r.engine.stops++
	return nil
}
