// Package search narrows a note list by free text.
package search

import (
	"strings"

	"github.com/pbaille/jot/internal/domain"
	"golang.org/x/text/cases"
)

// Filter returns the notes whose content contains query, ignoring case.
// Order is preserved. An empty query returns notes itself.
//
// There is no index; every call scans all notes.
func Filter(notes []domain.Note, query string) []domain.Note {
	if query == "" {
		return notes
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(fold.String(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}
