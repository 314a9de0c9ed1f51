package api

import "github.com/starford/tasklist/internal/models"

// Item is the item response type (aliased from the domain layer).
type Item = models.Item

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Title string `json:"title" example:"Buy milk" validate:"required"`
}

// UpdateItemRequest is the request body for a partial update. Absent fields
// are left untouched; unknown fields are ignored.
type UpdateItemRequest struct {
	Title *string `json:"title,omitempty" example:"Buy oat milk"`
	Done  *bool   `json:"done,omitempty" example:"true"`
}
