package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahqrt/chatter-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the CRUD surface shared by every entity repository. Filters
// and updates are anything the bson package can marshal as a document
// (bson.M, bson.D, tagged structs). Returned values are detached copies.
type Repository[T Document] interface {
	// Create stores doc under a freshly generated _id and returns the stored form.
	Create(ctx context.Context, doc T) (*T, error)
	// FindOne returns the first match or ErrNotFound.
	FindOne(ctx context.Context, filter any) (*T, error)
	// FindOneAndUpdate applies update to the first match and returns the
	// updated document, or ErrNotFound.
	FindOneAndUpdate(ctx context.Context, filter any, update any) (*T, error)
	// FindMany returns every match. No match is an empty slice, not an error.
	FindMany(ctx context.Context, filter any) ([]T, error)
	// FindOneAndDelete removes the first match and returns it as it was
	// before deletion. When nothing matches it returns nil without error.
	FindOneAndDelete(ctx context.Context, filter any) (*T, error)
}

// Logger receives debug traces emitted before mutations and lookup failures.
type Logger interface {
	Debugf(format string, v ...interface{})
}

const (
	opCreate           = "create"
	opFindOne          = "findOne"
	opFindOneAndUpdate = "findOneAndUpdate"
	opFindMany         = "findMany"
	opFindOneAndDelete = "findOneAndDelete"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

func loggerOrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

func observe(collection, op string, started time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRepository(collection, op, outcome, started)
}

// toBSON converts any document-shaped value into a fresh bson.D. A nil value
// becomes an empty document so that a nil filter matches everything.
func toBSON(v any) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if d == nil {
		d = bson.D{}
	}
	return d, nil
}

func decode[T any](v any) (*T, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

func normalizeFilter(filter any) (bson.D, error) {
	d, err := toBSON(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return d, nil
}

// prepareInsert drops any caller-supplied _id and puts a new ObjectID first.
func prepareInsert(doc any) (bson.D, error) {
	d, err := toBSON(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out := make(bson.D, 0, len(d)+1)
	out = append(out, bson.E{Key: "_id", Value: primitive.NewObjectID()})
	for _, e := range d {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// normalizeUpdate turns a plain partial document into {$set: fields} with _id
// stripped. Operator documents pass through untouched.
func normalizeUpdate(update any) (bson.D, error) {
	d, err := toBSON(update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	operators := 0
	for _, e := range d {
		if strings.HasPrefix(e.Key, "$") {
			operators++
		}
	}
	if operators > 0 {
		if operators != len(d) {
			return nil, fmt.Errorf("%w: operators mixed with plain fields", ErrInvalidUpdate)
		}
		return d, nil
	}
	fields := make(bson.D, 0, len(d))
	for _, e := range d {
		if e.Key == "_id" {
			continue
		}
		fields = append(fields, e)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidUpdate)
	}
	return bson.D{{Key: "$set", Value: fields}}, nil
}

// describe renders v as relaxed extended JSON for log lines.
func describe(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
