// Package mongo implements docstore.Store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/blacklink/accounts/docstore"
)

// compile-time interface check
var _ docstore.Store = (*Store)(nil)

// Store implements docstore.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Get reads a single document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.M
	err := s.mdb.Collection(collection).
		FindOne(ctx, bson.M{"_id": id}).
		Decode(&raw)
	if err != nil {
		if isNoDocuments(err) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("accounts/mongo: get %s/%s: %w", collection, id, err)
	}
	return toDocument(id, raw), nil
}

// Set writes a document. A merge set only touches the given fields; a
// plain set replaces the whole document.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	col := s.mdb.Collection(collection)

	if merge {
		_, err := col.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M(fields)},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("accounts/mongo: set %s/%s: %w", collection, id, err)
		}
		return nil
	}

	doc := make(bson.M, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	_, err := col.ReplaceOne(ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("accounts/mongo: replace %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Absent documents are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.mdb.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("accounts/mongo: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query returns documents matching all filters, up to limit.
func (s *Store) Query(ctx context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	filter := bson.M{}
	for _, f := range filters {
		switch f.Op {
		case docstore.OpEqual, docstore.OpArrayContains:
			// Mongo equality on an array field already matches membership.
			filter[f.Field] = f.Value
		default:
			return nil, fmt.Errorf("accounts/mongo: unsupported filter op %q", f.Op)
		}
	}

	findOpts := options.Find()
	if limit > 0 {
		findOpts = findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.mdb.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("accounts/mongo: query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []docstore.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("accounts/mongo: decode %s: %w", collection, err)
		}
		id, _ := raw["_id"].(string)
		docs = append(docs, toDocument(id, raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("accounts/mongo: query %s: %w", collection, err)
	}
	return docs, nil
}

// RunTransaction executes fn inside a driver session transaction. Writes
// buffered by the Tx are applied after fn succeeds, within the same
// transaction, so the commit stays atomic.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	client := s.mdb.Collection(docstore.Users).Database().Client()

	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("accounts/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		fnErr = nil
		tx := &mongoTx{store: s, sc: sc}
		if err := fn(tx); err != nil {
			fnErr = err
			return nil, err
		}
		if err := tx.flush(sc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		return fmt.Errorf("accounts/mongo: transaction: %w: %v", docstore.ErrConflict, err)
	}
	return nil
}

// Migrate creates indexes for the account collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("accounts/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// txBackend is the slice of Store a transaction operates through.
type txBackend interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
}

// mongoTx buffers transaction writes until the function returns. All
// operations run on the session context so reads pin the transaction
// snapshot and participate in write-conflict detection.
type mongoTx struct {
	store  txBackend
	sc     context.Context
	writes []bufferedWrite
}

type bufferedWrite struct {
	collection string
	id         string
	fields     map[string]any
	merge      bool
	delete     bool
}

func (t *mongoTx) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	_ = ctx
	return t.store.Get(t.sc, collection, id)
}

func (t *mongoTx) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) {
	_ = ctx
	t.writes = append(t.writes, bufferedWrite{
		collection: collection,
		id:         id,
		fields:     fields,
		merge:      merge,
	})
}

func (t *mongoTx) Delete(ctx context.Context, collection, id string) {
	_ = ctx
	t.writes = append(t.writes, bufferedWrite{
		collection: collection,
		id:         id,
		delete:     true,
	})
}

func (t *mongoTx) flush(ctx context.Context) error {
	for _, w := range t.writes {
		if w.delete {
			if err := t.store.Delete(ctx, w.collection, w.id); err != nil {
				return err
			}
			continue
		}
		if err := t.store.Set(ctx, w.collection, w.id, w.fields, w.merge); err != nil {
			return err
		}
	}
	return nil
}

// toDocument converts a decoded bson map into a Document, dropping the id
// field and normalizing driver types so accessors behave uniformly.
func toDocument(id string, raw bson.M) docstore.Document {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalize(v)
	}
	return docstore.Document{ID: id, Fields: fields}
}

// normalize converts bson container and timestamp types into the plain Go
// types the Document accessors expect.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case bson.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the account collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		docstore.Users: {
			{Keys: bson.D{{Key: "username", Value: 1}}},
			{Keys: bson.D{{Key: "organization", Value: 1}}},
		},
		docstore.Usernames: {
			{Keys: bson.D{{Key: "uid", Value: 1}}},
		},
		docstore.Organizations: {
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		docstore.Shortcuts: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		docstore.Tokens: {
			{Keys: bson.D{{Key: "lastUsedAt", Value: -1}}},
		},
	}
}
