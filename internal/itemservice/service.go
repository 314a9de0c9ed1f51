// Package itemservice validates and normalises item operations before they
// reach the store. Each operation issues exactly one store call.
package itemservice

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
)

// MaxTitleLength bounds a title in runes.
const MaxTitleLength = 500

var titleRules = []validation.Rule{
	validation.Required.Error("title is required"),
	validation.RuneLength(0, MaxTitleLength).Error(fmt.Sprintf("title must be at most %d characters", MaxTitleLength)),
}

// Service coordinates validation and persistence of items.
type Service struct {
	store store.Store
}

// NewService creates a new item service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// ListItems returns every item, newest first.
func (s *Service) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// GetItem returns one item by id.
func (s *Service) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return s.store.Get(ctx, id)
}

// CreateItem trims and validates title, then persists a pending item.
func (s *Service) CreateItem(ctx context.Context, title string) (*models.Item, error) {
	title = models.NormalizeTitle(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, title)
}

// UpdateItem applies a partial update. An empty patch still bumps updatedAt.
func (s *Service) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	patch = patch.Normalize()
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	return s.store.Update(ctx, id, patch)
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func validateTitle(title string) error {
	if err := validation.Validate(title, titleRules...); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}
	return nil
}
