package database

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryRepository is an in-process Repository used by unit tests and as the
// fallback store when MongoDB is not configured. Documents are kept as BSON in
// insertion order, so "first match" means the oldest matching document.
type MemoryRepository[T Document] struct {
	mu     sync.RWMutex
	name   string
	logger Logger
	docs   []bson.D
}

var _ Repository[AbstractDocument] = (*MemoryRepository[AbstractDocument])(nil)

// NewMemoryRepository creates an empty store. name plays the role of the
// collection name in metrics.
func NewMemoryRepository[T Document](name string, l Logger) *MemoryRepository[T] {
	return &MemoryRepository[T]{name: name, logger: loggerOrNop(l)}
}

func (m *MemoryRepository[T]) Create(ctx context.Context, doc T) (out *T, err error) {
	defer m.observe(opCreate, time.Now(), &err)
	m.logger.Debugf("Creating document %s", describe(doc))

	d, err := prepareInsert(doc)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.docs = append(m.docs, d)
	m.mu.Unlock()
	return decode[T](d)
}

func (m *MemoryRepository[T]) FindOne(ctx context.Context, filter any) (out *T, err error) {
	defer m.observe(opFindOne, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	idx, err := m.first(f)
	var d bson.D
	if idx >= 0 {
		d = m.docs[idx]
	}
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		m.logger.Debugf("No document found with filter %s", describe(f))
		return nil, ErrNotFound
	}
	return decode[T](d)
}

func (m *MemoryRepository[T]) FindOneAndUpdate(ctx context.Context, filter any, update any) (out *T, err error) {
	defer m.observe(opFindOneAndUpdate, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	u, err := normalizeUpdate(update)
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("Updating document with filter %s: %s", describe(f), describe(u))

	m.mu.Lock()
	idx, err := m.first(f)
	if err != nil || idx < 0 {
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
		m.logger.Debugf("No document found with filter %s", describe(f))
		return nil, ErrNotFound
	}
	next, err := applyUpdate(m.docs[idx], u)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.docs[idx] = next
	m.mu.Unlock()
	return decode[T](next)
}

func (m *MemoryRepository[T]) FindMany(ctx context.Context, filter any) (out []T, err error) {
	defer m.observe(opFindMany, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	matched := make([]bson.D, 0)
	for _, d := range m.docs {
		ok, err := matches(d, f)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, d)
		}
	}
	m.mu.RUnlock()

	out = make([]T, 0, len(matched))
	for _, d := range matched {
		doc, err := decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (m *MemoryRepository[T]) FindOneAndDelete(ctx context.Context, filter any) (out *T, err error) {
	defer m.observe(opFindOneAndDelete, time.Now(), &err)
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("Deleting document with filter %s", describe(f))

	m.mu.Lock()
	idx, err := m.first(f)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if idx < 0 {
		m.mu.Unlock()
		m.logger.Debugf("Nothing deleted for filter %s", describe(f))
		return nil, nil
	}
	d := m.docs[idx]
	m.docs = append(m.docs[:idx], m.docs[idx+1:]...)
	m.mu.Unlock()
	return decode[T](d)
}

// Len returns the number of stored documents.
func (m *MemoryRepository[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// first returns the index of the first match or -1. Callers hold the lock.
func (m *MemoryRepository[T]) first(f bson.D) (int, error) {
	for i, d := range m.docs {
		ok, err := matches(d, f)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

func (m *MemoryRepository[T]) observe(op string, started time.Time, err *error) {
	observe(m.name, op, started, *err)
}
