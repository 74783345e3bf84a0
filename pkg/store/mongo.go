package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/quiverkit/pkg/errors"
)

// Mongo defaults.
const (
	DefaultDatabase   = "quiverkit"
	DefaultCollection = "diagrams"
)

// MongoStore keeps diagrams in a MongoDB collection. Expiry is delegated to
// a TTL index on expires_at; Get still checks it because the server only
// sweeps about once a minute.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// document is the stored form of a Diagram. A nil ExpiresAt is left out so
// that the TTL index ignores the document.
type document struct {
	ID        string     `bson:"_id"`
	Title     string     `bson:"title,omitempty"`
	Data      []byte     `bson:"data"`
	CreatedAt time.Time  `bson:"created_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

func toDocument(d *Diagram) document {
	doc := document{ID: d.ID, Title: d.Title, Data: []byte(d.Data), CreatedAt: d.CreatedAt}
	if !d.ExpiresAt.IsZero() {
		at := d.ExpiresAt
		doc.ExpiresAt = &at
	}
	return doc
}

func (doc document) diagram() *Diagram {
	d := &Diagram{ID: doc.ID, Title: doc.Title, Data: json.RawMessage(doc.Data), CreatedAt: doc.CreatedAt}
	if doc.ExpiresAt != nil {
		d.ExpiresAt = *doc.ExpiresAt
	}
	return d
}

// NewMongoStore connects to uri and prepares the diagrams collection in
// database (DefaultDatabase when empty).
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if database == "" {
		database = DefaultDatabase
	}
	s, err := NewMongoStoreFromCollection(ctx, client.Database(database).Collection(DefaultCollection))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.client = client
	s.owned = true
	return s, nil
}

// NewMongoStoreFromCollection wraps an existing collection, creating the TTL
// index if needed. Close does not disconnect the collection's client.
func NewMongoStoreFromCollection(ctx context.Context, coll *mongo.Collection) (*MongoStore, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &MongoStore{client: coll.Database().Client(), coll: coll}, nil
}

func (s *MongoStore) Save(ctx context.Context, d *Diagram) error {
	if err := errors.ValidateDiagramID(d.ID); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, toDocument(d), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save diagram: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Diagram, error) {
	if err := errors.ValidateDiagramID(id); err != nil {
		return nil, err
	}
	var doc document
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("find diagram: %w", err)
	}
	d := doc.diagram()
	if d.IsExpired() {
		return nil, notFound(id)
	}
	return d, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateDiagramID(id); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	return nil
}

// Cleanup removes expired diagrams the TTL monitor has not reached yet.
func (s *MongoStore) Cleanup(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return fmt.Errorf("delete expired diagrams: %w", err)
	}
	return nil
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
