package app

import (
	"context"
	"errors"
	"sync"

	"github.com/pbaille/jot/internal/dictation"
	"github.com/pbaille/jot/internal/domain"
)

// ErrRecording is returned by Save while dictation is running.
var ErrRecording = errors.New("stop recording before saving")

const (
	msgSaved       = "Note saved."
	msgUnsupported = "Your system does not support speech recognition."
	msgNotSaved    = "The note could not be saved."
)

// Composer is the state of the new-note form: a draft that is typed or
// dictated, and then saved as a note.
type Composer struct {
	app      *App
	notifier Notifier
	session  *dictation.Session

	mu         sync.Mutex
	draft      string
	onboarding bool
	recording  bool
	watch      func(draft string, recording bool)
}

// NewComposer creates a composer whose dictation runs on engine.
func NewComposer(a *App, engine dictation.Engine, notifier Notifier, opts ...dictation.SessionOption) *Composer {
	c := &Composer{app: a, notifier: notifier, onboarding: true}
	all := append([]dictation.SessionOption{dictation.WithLogger(a.log)}, opts...)
	c.session = dictation.NewSession(engine, append(all, dictation.WithSink(c))...)
	return c
}

// StartEditor switches from the onboarding prompt to the text editor.
func (c *Composer) StartEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onboarding = false
}

// SetDraft replaces the draft with typed text. Clearing it brings the
// onboarding prompt back.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	if text == "" {
		c.onboarding = true
	}
}

// StartRecording begins dictation. Dictated text replaces the draft as it
// arrives.
func (c *Composer) StartRecording() error {
	if err := c.session.Start(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onboarding = false
	return nil
}

// StopRecording ends dictation; the transcript stays in the draft.
func (c *Composer) StopRecording() error {
	return c.session.Stop()
}

// Save creates a note from the draft. An empty draft saves nothing and
// returns the zero Note.
func (c *Composer) Save(ctx context.Context) (domain.Note, error) {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return domain.Note{}, ErrRecording
	}
	draft := c.draft
	c.mu.Unlock()

	if draft == "" {
		return domain.Note{}, nil
	}

	note, err := c.app.OnNoteCreated(ctx, draft)
	if err != nil {
		c.notifier.Error(msgNotSaved)
		return domain.Note{}, err
	}

	c.session.Clear()
	c.mu.Lock()
	c.draft = ""
	c.onboarding = true
	c.mu.Unlock()

	c.notifier.Success(msgSaved)
	return note, nil
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Onboarding reports whether the start prompt is shown instead of the editor.
func (c *Composer) Onboarding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onboarding
}

func (c *Composer) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Composer) Session() *dictation.Session {
	return c.session
}

// Watch registers fn to be called whenever dictation changes the draft or
// the recording flag. fn runs on the engine's goroutine.
func (c *Composer) Watch(fn func(draft string, recording bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watch = fn
}

func (c *Composer) notifyWatch() {
	c.mu.Lock()
	fn, draft, recording := c.watch, c.draft, c.recording
	c.mu.Unlock()
	if fn != nil {
		fn(draft, recording)
	}
}

// StateChanged implements dictation.Sink.
func (c *Composer) StateChanged(state dictation.State) {
	c.mu.Lock()
	c.recording = state == dictation.Recording
	c.mu.Unlock()
	c.notifyWatch()
}

// TranscriptChanged implements dictation.Sink.
func (c *Composer) TranscriptChanged(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
	c.notifyWatch()
}

// Notify implements dictation.Sink.
func (c *Composer) Notify(err error) {
	if errors.Is(err, dictation.ErrUnsupported) {
		c.notifier.Error(msgUnsupported)
		return
	}
	c.notifier.Error(err.Error())
}
