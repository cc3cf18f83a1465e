package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on a MongoDB collection. Entity
// repositories wrap it with their own model type and named logger.
type MongoRepository[T Document] struct {
	col    *mongo.Collection
	logger Logger
}

var _ Repository[AbstractDocument] = (*MongoRepository[AbstractDocument])(nil)

// NewMongoRepository binds a repository to col. A nil logger discards traces.
func NewMongoRepository[T Document](col *mongo.Collection, l Logger) *MongoRepository[T] {
	return &MongoRepository[T]{col: col, logger: loggerOrNop(l)}
}

// Collection exposes the underlying collection for entity-specific queries
// (indexes, aggregations) that the generic surface does not cover.
func (r *MongoRepository[T]) Collection() *mongo.Collection { return r.col }

func (r *MongoRepository[T]) Create(ctx context.Context, doc T) (out *T, err error) {
	defer r.observe(opCreate, time.Now(), &err)
	r.logger.Debugf("Creating document %s", describe(doc))

	d, err := prepareInsert(doc)
	if err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, d); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return decode[T](d)
}

func (r *MongoRepository[T]) FindOne(ctx context.Context, filter any) (out *T, err error) {
	defer r.observe(opFindOne, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := r.col.FindOne(ctx, f).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debugf("No document found with filter %s", describe(f))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

func (r *MongoRepository[T]) FindOneAndUpdate(ctx context.Context, filter any, update any) (out *T, err error) {
	defer r.observe(opFindOneAndUpdate, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	u, err := normalizeUpdate(update)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Updating document with filter %s: %s", describe(f), describe(u))

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc T
	if err := r.col.FindOneAndUpdate(ctx, f, u, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debugf("No document found with filter %s", describe(f))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return &doc, nil
}

func (r *MongoRepository[T]) FindMany(ctx context.Context, filter any) (out []T, err error) {
	defer r.observe(opFindMany, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := r.col.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)

	out = []T{}
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *MongoRepository[T]) FindOneAndDelete(ctx context.Context, filter any) (out *T, err error) {
	defer r.observe(opFindOneAndDelete, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Deleting document with filter %s", describe(f))

	var doc T
	if err := r.col.FindOneAndDelete(ctx, f).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debugf("Nothing deleted for filter %s", describe(f))
			return nil, nil
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return &doc, nil
}

func (r *MongoRepository[T]) observe(op string, started time.Time, err *error) {
	observe(r.col.Name(), op, started, *err)
}
