// Package app is the boundary between the note core and a user interface.
// A UI calls the On* methods in response to user actions and renders
// Visible.
package app

import (
	"context"

	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/notes"
	"github.com/pbaille/jot/internal/search"
	"github.com/rs/zerolog"
)

// Notifier shows short, dismissible messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// App holds the note store and the current search text.
type App struct {
	store *notes.Store
	query string
	log   zerolog.Logger
}

// New wraps an initialized store.
func New(store *notes.Store, log zerolog.Logger) *App {
	return &App{store: store, log: log}
}

// OnNoteCreated stores content as a new note. Empty content is ignored.
func (a *App) OnNoteCreated(ctx context.Context, content string) (domain.Note, error) {
	return a.store.Create(ctx, content)
}

// OnNoteDeleted removes the note with id.
func (a *App) OnNoteDeleted(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}

// OnSearchTextChanged sets the query applied by Visible.
func (a *App) OnSearchTextChanged(query string) {
	a.query = query
	a.log.Debug().Str("query", query).Msg("search changed")
}

func (a *App) Query() string {
	return a.query
}

// Visible returns the notes matching the current query, newest first.
func (a *App) Visible() []domain.Note {
	return search.Filter(a.store.List(), a.query)
}

func (a *App) Store() *notes.Store {
	return a.store
}
