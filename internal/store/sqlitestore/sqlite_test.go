package sqlitestore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
	"github.com/starford/tasklist/internal/store/storetest"
)

func testDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "tasklist-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name(), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

// fakeClock advances by one second on every read.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return testDB(t)
	})
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("items table missing: %v", err)
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	f, err := os.CreateTemp("", "tasklist-reopen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Create(context.Background(), "persisted"); err != nil {
		t.Fatal(err)
	}
	db.Close(context.Background())

	db, err = Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close(context.Background())
	items, err := db.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "persisted" {
		t.Errorf("items = %+v", items)
	}
}

func TestTimestampsFollowClock(t *testing.T) {
	clock := &fakeClock{cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	db := testDB(t, WithClock(clock.Now))
	ctx := context.Background()

	created, err := db.Create(ctx, "clocked")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC); !created.CreatedAt.Equal(want) {
		t.Errorf("createdAt = %v, want %v", created.CreatedAt, want)
	}

	done := true
	updated, err := db.Update(ctx, created.ID, models.ItemPatch{Done: &done})
	if err != nil {
		t.Fatal(err)
	}
	if want := created.CreatedAt.Add(time.Second); !updated.UpdatedAt.Equal(want) {
		t.Errorf("updatedAt = %v, want %v", updated.UpdatedAt, want)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
}

func TestSameMillisecondKeepsInsertOrder(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db := testDB(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		if _, err := db.Create(ctx, title); err != nil {
			t.Fatal(err)
		}
	}
	items, err := db.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{items[0].Title, items[1].Title, items[2].Title}
	want := []string{"third", "second", "first"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBlankTitleRejectedBySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Create(context.Background(), "   "); err == nil {
		t.Fatal("expected CHECK constraint failure for blank title")
	}
}

func TestUpdateAdvancesWithFrozenClock(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db := testDB(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	it, err := db.Create(ctx, "frozen")
	if err != nil {
		t.Fatal(err)
	}
	prev := it.UpdatedAt
	for i := 0; i < 3; i++ {
		done := i%2 == 0
		next, err := db.Update(ctx, it.ID, models.ItemPatch{Done: &done})
		if err != nil {
			t.Fatal(err)
		}
		if !next.UpdatedAt.After(prev) {
			t.Fatalf("update %d: updatedAt = %v, previous %v", i, next.UpdatedAt, prev)
		}
		prev = next.UpdatedAt
	}
}
