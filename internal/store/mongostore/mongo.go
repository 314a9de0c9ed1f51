// Package mongostore is the MongoDB item store. Ids are ObjectIDs in their
// 24 character hex form; anything else is rejected as malformed.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
)

type document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Done      bool               `bson:"done"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d document) item() *models.Item {
	return &models.Item{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Done:      d.Done,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// newestFirst also orders by _id so items created within the same
// millisecond keep their insertion order.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// Store implements store.Store on a single MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Verify *Store satisfies store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Connect dials uri, checks the primary is reachable and makes sure the
// listing index exists.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}
	coll := client.Database(database).Collection(collection)
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: newestFirst}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: create index: %w", err)
	}
	return &Store{client: client, coll: coll}, nil
}

// List returns all items, newest first.
func (s *Store) List(ctx context.Context) ([]models.Item, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongodb: find items: %w", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode items: %w", err)
	}
	out := make([]models.Item, len(docs))
	for i, d := range docs {
		out[i] = *d.item()
	}
	return out, nil
}

// Get returns a single item.
func (s *Store) Get(ctx context.Context, id string) (*models.Item, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc document
	err = s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: find item: %w", err)
	}
	return doc.item(), nil
}

// Create inserts a new pending item.
func (s *Store) Create(ctx context.Context, title string) (*models.Item, error) {
	now := timestamp()
	doc := document{
		ID:        primitive.NewObjectID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongodb: insert item: %w", err)
	}
	return doc.item(), nil
}

// Update sets the patched fields and returns the document after the write.
// It runs as an aggregation pipeline so updatedAt can be moved at least one
// millisecond past its stored value in the same atomic write.
func (s *Store) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.D{{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
		timestamp(),
		bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
	}}}}}
	// Values are wrapped in $literal so a title starting with "$" is not
	// read as a field path.
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: bson.D{{Key: "$literal", Value: *patch.Title}}})
	}
	if patch.Done != nil {
		set = append(set, bson.E{Key: "done", Value: bson.D{{Key: "$literal", Value: *patch.Done}}})
	}

	var doc document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: update item: %w", err)
	}
	return doc.item(), nil
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongodb: delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}

// timestamp is truncated to what a BSON datetime can hold.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return oid, nil
}
