package dictation

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu          sync.Mutex
	states      []State
	transcripts []string
	notices     []error
}

func (r *recordingSink) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingSink) TranscriptChanged(t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, t)
}

func (r *recordingSink) Notify(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, err)
}

func newSession(t *testing.T) (*Session, *FakeEngine, *recordingSink) {
	t.Helper()
	engine := NewFake()
	sink := &recordingSink{}
	return NewSession(engine, WithSink(sink), WithLanguage("pt-BR")), engine, sink
}

func TestStartConfiguresContinuousRecognition(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Start())

	assert.Equal(t, Recording, s.State())
	require.Len(t, engine.Starts(), 1)
	assert.Equal(t, Config{
		Language:        "pt-BR",
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	}, engine.Starts()[0])
	assert.Equal(t, []State{Recording}, sink.states)
}

func TestResultsReplaceTranscript(t *testing.T) {
	s, engine, _ := newSession(t)
	require.NoError(t, s.Start())

	engine.Emit("hello")
	assert.Equal(t, "hello", s.Transcript())
	engine.Emit("hello world")
	assert.Equal(t, "hello world", s.Transcript(), "later results supersede earlier ones")
}

func TestResultsConcatenateTopAlternatives(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Start())

	engine.EmitSegments([]Segment{
		{Alternatives: []Alternative{{Transcript: "buy milk"}, {Transcript: "by milk"}}, Final: true},
		{},
		{Alternatives: []Alternative{{Transcript: " and eggs"}, {Transcript: " and legs"}}},
	})
	assert.Equal(t, "buy milk and eggs", s.Transcript())
	assert.Equal(t, []string{"buy milk and eggs"}, sink.transcripts)
}

func TestStopKeepsTranscriptAndIgnoresStrayResults(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Start())
	engine.Emit("hello")
	engine.Emit("hello world")

	require.NoError(t, s.Stop())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, engine.Stops())

	engine.Emit("hello world and more")
	assert.Equal(t, "hello world", s.Transcript())
	assert.Equal(t, Idle, s.State(), "a late event must not resurrect recording")
	assert.Equal(t, []State{Recording, Idle}, sink.states)
}

func TestStopWhenIdle(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Stop())
	assert.Equal(t, Idle, s.State())
	assert.Zero(t, engine.Stops())
	assert.Empty(t, sink.states)
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	s, engine, _ := newSession(t)
	require.NoError(t, s.Start())
	engine.Emit("draft")

	require.NoError(t, s.Start())
	assert.Len(t, engine.Starts(), 1)
	assert.Zero(t, engine.Stops())
	assert.Equal(t, Recording, s.State())
	assert.Equal(t, "draft", s.Transcript())
}

func TestStartUnsupported(t *testing.T) {
	s, engine, sink := newSession(t)
	engine.SetAvailable(false)

	err := s.Start()
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, Error, s.State())
	assert.Empty(t, engine.Starts(), "no recognition begins")
	assert.NotContains(t, sink.states, Recording)
	require.Len(t, sink.notices, 1)
	assert.ErrorIs(t, sink.notices[0], ErrUnsupported)
	assert.ErrorIs(t, s.Err(), ErrUnsupported)

	// Once the capability shows up, a retry works.
	engine.SetAvailable(true)
	require.NoError(t, s.Start())
	assert.Equal(t, Recording, s.State())
	assert.NoError(t, s.Err())
}

func TestStopFromError(t *testing.T) {
	s, engine, _ := newSession(t)
	engine.SetAvailable(false)
	require.Error(t, s.Start())

	require.NoError(t, s.Stop())
	assert.Equal(t, Idle, s.State())
}

func TestEngineStartFailure(t *testing.T) {
	s, engine, sink := newSession(t)
	boom := errors.New("microphone busy")
	engine.FailStart(boom)

	err := s.Start()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Error, s.State())
	assert.Equal(t, []State{Error}, sink.states)

	engine.FailStart(nil)
	require.NoError(t, s.Start())
	assert.Equal(t, Recording, s.State())
}

func TestEngineErrorFallsBackToIdle(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Start())
	engine.Emit("half a thought")

	engine.Fail(ErrorNetwork)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "half a thought", s.Transcript(), "captured text survives the error")

	var engErr *EngineError
	require.ErrorAs(t, s.Err(), &engErr)
	assert.Equal(t, ErrorNetwork, engErr.Code)
	require.Len(t, sink.notices, 1)
	assert.Equal(t, []State{Recording, Idle}, sink.states)

	engine.Emit("ghost")
	engine.Fail(ErrorAborted)
	assert.Equal(t, "half a thought", s.Transcript())
	assert.Len(t, sink.notices, 1, "events after the error are dropped")

	require.NoError(t, s.Stop())
	assert.Zero(t, engine.Stops(), "engine already released the recognition")
}

func TestRestartAfterStop(t *testing.T) {
	s, engine, _ := newSession(t)
	require.NoError(t, s.Start())
	engine.Emit("first")
	require.NoError(t, s.Stop())
	staleHandler := engine.handler()

	require.NoError(t, s.Start())
	assert.Equal(t, Recording, s.State())
	assert.Len(t, engine.Starts(), 2)

	staleHandler.OnResult([]Segment{{Alternatives: []Alternative{{Transcript: "stale"}}}})
	assert.Equal(t, "first", s.Transcript(), "events from the previous recognition are ignored")

	engine.Emit("second")
	assert.Equal(t, "second", s.Transcript())
}

func TestClear(t *testing.T) {
	s, engine, sink := newSession(t)
	require.NoError(t, s.Start())
	engine.Emit("note to self")
	require.NoError(t, s.Stop())

	s.Clear()
	assert.Empty(t, s.Transcript())
	assert.Equal(t, []string{"note to self", ""}, sink.transcripts)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "State(9)", State(9).String())
}
