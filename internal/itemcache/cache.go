// Package itemcache folds the results of API calls into a locally held list
// of items, so a client can reflect a mutation without fetching the list again.
package itemcache

import "github.com/starford/tasklist/internal/models"

// Action is one event applied to the cached list.
type Action interface {
	apply(items []models.Item) []models.Item
}

// Loaded replaces the whole list with a fresh server copy.
type Loaded struct{ Items []models.Item }

// Created prepends a newly created item, matching the server's newest-first order.
type Created struct{ Item models.Item }

// Updated replaces the item with the same id. Unknown ids are ignored.
type Updated struct{ Item models.Item }

// Deleted removes the item with the given id.
type Deleted struct{ ID string }

// Reduce returns the list that results from applying a to items. The input
// slice is never modified.
func Reduce(items []models.Item, a Action) []models.Item {
	return a.apply(items)
}

func (a Loaded) apply(_ []models.Item) []models.Item {
	out := make([]models.Item, len(a.Items))
	copy(out, a.Items)
	return out
}

func (a Created) apply(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items)+1)
	out = append(out, a.Item)
	return append(out, items...)
}

func (a Updated) apply(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		if it.ID == a.Item.ID {
			it = a.Item
		}
		out[i] = it
	}
	return out
}

func (a Deleted) apply(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if it.ID != a.ID {
			out = append(out, it)
		}
	}
	return out
}

// Index returns the position of id in items, or -1.
func Index(items []models.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
