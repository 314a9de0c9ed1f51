// Package models defines the domain types for tasklist.
package models

import (
	"strings"
	"time"
)

// Item is a single to-do entry. ID and both timestamps are owned by the store.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemPatch is the allow-list of fields an update may replace.
// A nil field is left untouched.
type ItemPatch struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

// Normalize returns a copy of p with the title trimmed.
func (p ItemPatch) Normalize() ItemPatch {
	if p.Title != nil {
		t := NormalizeTitle(*p.Title)
		p.Title = &t
	}
	return p
}

// NormalizeTitle trims leading and trailing white space.
func NormalizeTitle(s string) string {
	return strings.TrimSpace(s)
}
