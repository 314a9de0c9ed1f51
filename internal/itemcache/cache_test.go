package itemcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/tasklist/internal/models"
)

func items(ids ...string) []models.Item {
	out := make([]models.Item, len(ids))
	for i, id := range ids {
		out[i] = models.Item{ID: id, Title: "t" + id}
	}
	return out
}

func ids(list []models.Item) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.ID
	}
	return out
}

func TestLoadedReplacesList(t *testing.T) {
	server := items("c", "b")
	got := Reduce(items("x"), Loaded{Items: server})
	assert.Equal(t, []string{"c", "b"}, ids(got))

	got[0].Title = "changed"
	assert.Equal(t, "tc", server[0].Title, "result must not alias the loaded slice")
}

func TestCreatedPrepends(t *testing.T) {
	in := items("b", "a")
	got := Reduce(in, Created{Item: models.Item{ID: "c"}})
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
	assert.Equal(t, []string{"b", "a"}, ids(in))
}

func TestCreatedOnEmpty(t *testing.T) {
	got := Reduce(nil, Created{Item: models.Item{ID: "a"}})
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestUpdatedReplacesInPlace(t *testing.T) {
	in := items("c", "b", "a")
	got := Reduce(in, Updated{Item: models.Item{ID: "b", Title: "new", Done: true}})
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
	assert.Equal(t, "new", got[1].Title)
	assert.True(t, got[1].Done)
	assert.Equal(t, "tb", in[1].Title)
}

func TestUpdatedUnknownIsNoop(t *testing.T) {
	in := items("a")
	got := Reduce(in, Updated{Item: models.Item{ID: "zzz"}})
	assert.Equal(t, in, got)
}

func TestDeletedFilters(t *testing.T) {
	in := items("c", "b", "a")
	got := Reduce(in, Deleted{ID: "b"})
	assert.Equal(t, []string{"c", "a"}, ids(got))
	assert.Equal(t, []string{"c", "b", "a"}, ids(in))

	assert.Equal(t, []string{"c", "a"}, ids(Reduce(got, Deleted{ID: "missing"})))
}

func TestIndex(t *testing.T) {
	list := items("c", "b")
	assert.Equal(t, 1, Index(list, "b"))
	assert.Equal(t, -1, Index(list, "x"))
}
