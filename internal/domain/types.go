package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Note is a user-authored text entry. Notes are never edited after creation.
type Note struct {
	ID        string    `yaml:"id"`
	CreatedAt time.Time `yaml:"createdAt"`
	Content   string    `yaml:"content"`
}

// noteRecord is the persisted shape of a Note.
type noteRecord struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Content   string `json:"content"`
}

// MarshalJSON writes CreatedAt as an RFC 3339 UTC string so that a reload
// yields the same time.Time that was stored.
func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(noteRecord{
		ID:        n.ID,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Content:   n.Content,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (n *Note) UnmarshalJSON(data []byte) error {
	var rec noteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("parse createdAt: %w", err)
	}
	n.ID = rec.ID
	n.Content = rec.Content
	n.CreatedAt = createdAt.UTC()
	return nil
}
