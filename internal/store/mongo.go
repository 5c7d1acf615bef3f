package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beekhof/calwatch/internal/event"
)

// MongoRepository implements Repository over a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// Connect dials MongoDB, verifies the connection, and returns a
// repository over the named database and collection. A unique index on
// uid enforces the one-document-per-uid invariant.
func Connect(ctx context.Context, uri, database, collection string) (*MongoRepository, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure uid index: %w", err)
	}

	return &MongoRepository{coll: coll}, client, nil
}

// NewMongoRepository wraps an existing collection, for callers that
// manage the client themselves.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) MatchingUIDs(ctx context.Context, uids []string) (map[string]struct{}, error) {
	if len(uids) == 0 {
		return map[string]struct{}{}, nil
	}

	cursor, err := r.coll.Find(ctx,
		bson.M{"uid": bson.M{"$in": uids}},
		options.Find().SetProjection(bson.M{"uid": 1, "_id": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query matching uids: %w", err)
	}
	defer cursor.Close(ctx)

	found := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc struct {
			UID string `bson:"uid"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode uid document: %w", err)
		}
		found[doc.UID] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while reading uids: %w", err)
	}
	return found, nil
}

func (r *MongoRepository) AllUIDs(ctx context.Context) (map[string]struct{}, error) {
	cursor, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"uid": 1, "_id": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query all uids: %w", err)
	}
	defer cursor.Close(ctx)

	all := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc struct {
			UID string `bson:"uid"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode uid document: %w", err)
		}
		all[doc.UID] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while reading uids: %w", err)
	}
	return all, nil
}

func (r *MongoRepository) FindByUIDs(ctx context.Context, uids []string) ([]event.Stored, error) {
	if len(uids) == 0 {
		return []event.Stored{}, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"uid": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []event.Stored
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

func (r *MongoRepository) DeleteByUIDs(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"uid": bson.M{"$in": uids}}); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (r *MongoRepository) UpdateFields(ctx context.Context, uid string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %q: %w", uid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to update %q: %w", uid, ErrNotFound)
	}
	return nil
}

func (r *MongoRepository) InsertIfAbsent(ctx context.Context, ev event.Event) error {
	err := r.coll.FindOne(ctx, bson.M{"uid": ev.UID}).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to check for %q: %w", ev.UID, err)
	}

	if _, err := r.coll.InsertOne(ctx, ev.ToStored()); err != nil {
		// A concurrent run may have inserted the same uid between the
		// lookup and the insert; the unique index makes that a no-op.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert %q: %w", ev.UID, err)
	}
	return nil
}
