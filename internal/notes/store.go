// Package notes owns the note collection and keeps it persisted.
//
// Every mutation rewrites the whole collection under a single key. That is
// fine for a personal notebook but costs O(n) per create or delete.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/kv"
	"github.com/rs/zerolog"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "notes"

// Store holds the notes newest-first and writes them through to a kv.Store.
// It is not safe for concurrent use.
type Store struct {
	kv     kv.Store
	key    string
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
	notes  []domain.Note
	ready  bool
	broken error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a Store backed by backend. Call Initialize before use.
func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:    backend,
		key:   DefaultKey,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the persisted collection. A missing key yields an empty
// collection. Malformed data also yields an empty collection: the raw value is
// copied to "<key>.corrupt" and the problem is reported by Corrupted.
func (s *Store) Initialize(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return &PersistenceError{Op: "load", Key: s.key, Err: err}
	}

	s.notes = nil
	s.broken = nil
	s.ready = true

	if !ok {
		s.log.Debug().Str("key", s.key).Msg("no stored notes, starting empty")
		return nil
	}

	notes, err := decode(raw)
	if err != nil {
		s.broken = err
		s.log.Warn().Err(err).Str("key", s.key).Msg("stored notes are corrupt, starting empty")
		backup := s.key + ".corrupt"
		if err := s.kv.Set(ctx, backup, raw); err != nil {
			return &PersistenceError{Op: "save", Key: backup, Err: err}
		}
		s.log.Info().Str("key", backup).Msg("corrupt notes backed up")
		return nil
	}

	s.notes = notes
	s.log.Debug().Int("count", len(notes)).Msg("notes loaded")
	return nil
}

// Corrupted returns the decode error found by the last Initialize, or nil.
func (s *Store) Corrupted() error {
	return s.broken
}

// Create prepends a new note and persists the collection. Empty content is
// ignored: the zero Note and a nil error are returned and nothing is written.
func (s *Store) Create(ctx context.Context, content string) (domain.Note, error) {
	if content == "" {
		return domain.Note{}, nil
	}
	if err := s.checkReady(); err != nil {
		return domain.Note{}, err
	}

	note := domain.Note{
		ID:        s.newID(),
		CreatedAt: s.now().UTC().Round(0),
		Content:   content,
	}

	next := make([]domain.Note, 0, len(s.notes)+1)
	next = append(next, note)
	next = append(next, s.notes...)

	if err := s.commit(ctx, next); err != nil {
		return domain.Note{}, err
	}
	s.log.Info().Str("id", note.ID).Int("count", len(s.notes)).Msg("note created")
	return note, nil
}

// Delete removes the note with the given id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := make([]domain.Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:idx]...)
	next = append(next, s.notes[idx+1:]...)

	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Int("count", len(s.notes)).Msg("note deleted")
	return nil
}

// List returns a copy of the collection, newest first.
func (s *Store) List() []domain.Note {
	out := make([]domain.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Store) Len() int {
	return len(s.notes)
}

// Get returns the note with exactly this id.
func (s *Store) Get(id string) (domain.Note, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.notes[i], true
	}
	return domain.Note{}, false
}

// Resolve finds the single note whose id starts with prefix. An exact id
// match always wins.
func (s *Store) Resolve(prefix string) (domain.Note, error) {
	if prefix == "" {
		return domain.Note{}, ErrNotFound
	}
	if n, ok := s.Get(prefix); ok {
		return n, nil
	}

	var found []domain.Note
	for _, n := range s.notes {
		if strings.HasPrefix(n.ID, prefix) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return domain.Note{}, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return domain.Note{}, fmt.Errorf("%w: %s matches %d notes", ErrAmbiguous, prefix, len(found))
	}
}

func (s *Store) indexOf(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) checkReady() error {
	if !s.ready {
		return errors.New("notes: store not initialized")
	}
	return nil
}

// commit persists next and only then makes it the current collection.
func (s *Store) commit(ctx context.Context, next []domain.Note) error {
	data, err := json.Marshal(next)
	if err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: fmt.Errorf("encode notes: %w", err)}
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to persist notes")
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	s.notes = next
	return nil
}

// decode parses a stored collection and checks its invariants.
func decode(raw string) ([]domain.Note, error) {
	var notes []domain.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	if notes == nil {
		// Only a JSON null leaves the slice nil; an empty collection is "[]".
		return nil, errors.New("decode notes: null collection")
	}

	seen := make(map[string]struct{}, len(notes))
	for i, n := range notes {
		if n.ID == "" {
			return nil, fmt.Errorf("note %d: empty id", i)
		}
		if n.Content == "" {
			return nil, fmt.Errorf("note %s: empty content", n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("note %s: duplicate id", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return notes, nil
}
