package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ahqrt/chatter-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type widget struct {
	AbstractDocument `bson:",inline"`
	Name             string   `bson:"name"`
	Count            int      `bson:"count"`
	Tags             []string `bson:"tags,omitempty"`
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debugf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestMemoryRepository_Scenario(t *testing.T) {
	ctx := context.Background()
	logs := &recordingLogger{}
	repo := NewMemoryRepository[widget]("widgets_scenario", logs)

	created, err := repo.Create(ctx, widget{Name: "a"})
	require.NoError(t, err)
	require.False(t, created.ID.IsZero())
	require.Equal(t, "a", created.Name)
	require.True(t, logs.contains(`Creating document {"name":"a"`))

	got, err := repo.FindOne(ctx, bson.M{"_id": created.ID})
	require.NoError(t, err)
	require.Equal(t, *created, *got)

	updated, err := repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.M{"name": "b"})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "b", updated.Name)

	deleted, err := repo.FindOneAndDelete(ctx, bson.M{"_id": created.ID})
	require.NoError(t, err)
	require.NotNil(t, deleted)
	require.Equal(t, "b", deleted.Name)

	_, err = repo.FindOne(ctx, bson.M{"_id": created.ID})
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, logs.contains("No document found with filter"))
}

func TestMemoryRepository_CreateReplacesCallerID(t *testing.T) {
	repo := NewMemoryRepository[widget]("widgets_create", nil)
	stale := primitive.NewObjectID()

	created, err := repo.Create(context.Background(), widget{AbstractDocument: AbstractDocument{ID: stale}, Name: "x"})
	require.NoError(t, err)
	require.NotEqual(t, stale, created.ID)

	_, err = repo.FindOne(context.Background(), bson.M{"_id": stale})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_update", nil)
	created, err := repo.Create(ctx, widget{Name: "a", Count: 3, Tags: []string{"red"}})
	require.NoError(t, err)

	updated, err := repo.FindOneAndUpdate(ctx, bson.M{"name": "a"}, bson.M{"count": 5, "_id": primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "plain updates must not move _id")
	assert.Equal(t, "a", updated.Name)
	assert.Equal(t, 5, updated.Count)
	assert.Equal(t, []string{"red"}, updated.Tags)

	updated, err = repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.M{"$push": bson.M{"tags": "blue"}, "$unset": bson.M{"count": ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, updated.Tags)
	assert.Equal(t, 0, updated.Count)
}

func TestMemoryRepository_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_update_errors", nil)
	created, err := repo.Create(ctx, widget{Name: "a"})
	require.NoError(t, err)

	_, err = repo.FindOneAndUpdate(ctx, bson.M{"name": "missing"}, bson.M{"name": "b"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.M{"$set": bson.M{"_id": primitive.NewObjectID()}})
	require.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.D{{Key: "$set", Value: bson.M{"name": "b"}}, {Key: "count", Value: 1}})
	require.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.M{"$inc": bson.M{"count": 1}})
	require.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = repo.FindOneAndUpdate(ctx, bson.M{"_id": created.ID}, bson.M{"$push": bson.M{"tags": bson.M{"$each": bson.A{"x", "y"}}}})
	require.ErrorIs(t, err, ErrUnsupportedQuery)

	// failed updates leave the stored document alone
	got, err := repo.FindOne(ctx, bson.M{"_id": created.ID})
	require.NoError(t, err)
	require.Equal(t, "a", got.Name)
}

func TestMemoryRepository_FindMany(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_find_many", nil)

	none, err := repo.FindMany(ctx, bson.M{"name": "nobody"})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	for _, w := range []widget{
		{Name: "a", Tags: []string{"red", "blue"}},
		{Name: "b", Tags: []string{"blue"}},
		{Name: "c"},
	} {
		_, err := repo.Create(ctx, w)
		require.NoError(t, err)
	}

	all, err := repo.FindMany(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a", all[0].Name)

	blue, err := repo.FindMany(ctx, bson.M{"tags": "blue"})
	require.NoError(t, err)
	require.Len(t, blue, 2)

	in, err := repo.FindMany(ctx, bson.M{"name": bson.M{"$in": bson.A{"a", "c"}}})
	require.NoError(t, err)
	require.Len(t, in, 2)

	untagged, err := repo.FindMany(ctx, bson.M{"tags": bson.M{"$exists": false}})
	require.NoError(t, err)
	require.Len(t, untagged, 1)
	require.Equal(t, "c", untagged[0].Name)

	_, err = repo.FindMany(ctx, bson.M{"$or": bson.A{bson.M{"name": "a"}}})
	require.ErrorIs(t, err, ErrUnsupportedQuery)
}

func TestMemoryRepository_FindManyNotEqual(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_find_ne", nil)
	for _, w := range []widget{
		{Name: "a", Tags: []string{"red"}},
		{Name: "b", Tags: []string{"blue", "red"}},
		{Name: "c"},
	} {
		_, err := repo.Create(ctx, w)
		require.NoError(t, err)
	}

	notA, err := repo.FindMany(ctx, bson.M{"name": bson.M{"$ne": "a"}})
	require.NoError(t, err)
	require.Len(t, notA, 2)
	assert.Equal(t, "b", notA[0].Name)
	assert.Equal(t, "c", notA[1].Name)

	// a missing field is not equal to anything, and arrays holding the value are excluded
	notRed, err := repo.FindMany(ctx, bson.M{"tags": bson.M{"$ne": "red"}})
	require.NoError(t, err)
	require.Len(t, notRed, 1)
	assert.Equal(t, "c", notRed[0].Name)

	withTags, err := repo.FindMany(ctx, bson.M{"tags": bson.M{"$ne": nil}})
	require.NoError(t, err)
	require.Len(t, withTags, 2)
}

func TestMemoryRepository_LargeIntegerFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_large_ints", nil)
	const big = 1 << 53
	_, err := repo.Create(ctx, widget{Name: "big", Count: big})
	require.NoError(t, err)

	_, err = repo.FindOne(ctx, bson.M{"count": int64(big + 1)})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.FindOne(ctx, bson.M{"count": int64(big)})
	require.NoError(t, err)
	require.Equal(t, "big", got.Name)
}

func TestMemoryRepository_FindOneAndDeleteRemovesAtMostOne(t *testing.T) {
	ctx := context.Background()
	logs := &recordingLogger{}
	repo := NewMemoryRepository[widget]("widgets_delete", logs)

	first, err := repo.Create(ctx, widget{Name: "dup", Count: 1})
	require.NoError(t, err)
	_, err = repo.Create(ctx, widget{Name: "dup", Count: 2})
	require.NoError(t, err)

	deleted, err := repo.FindOneAndDelete(ctx, bson.M{"name": "dup"})
	require.NoError(t, err)
	require.Equal(t, first.ID, deleted.ID)
	require.Equal(t, 1, repo.Len())

	missing, err := repo.FindOneAndDelete(ctx, bson.M{"name": "nobody"})
	require.NoError(t, err)
	require.Nil(t, missing)
	require.Equal(t, 1, repo.Len())
	require.True(t, logs.contains("Nothing deleted for filter"))
}

func TestMemoryRepository_ReturnsDetachedCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_detached", nil)
	created, err := repo.Create(ctx, widget{Name: "a", Tags: []string{"red"}})
	require.NoError(t, err)

	created.Tags[0] = "mutated"
	got, err := repo.FindOne(ctx, bson.M{"_id": created.ID})
	require.NoError(t, err)
	require.Equal(t, []string{"red"}, got.Tags)
}

func TestMemoryRepository_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_concurrent", nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, widget{Name: "w", Count: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := repo.FindMany(ctx, bson.M{"name": "w"})
	require.NoError(t, err)
	require.Len(t, all, n)
	seen := map[primitive.ObjectID]bool{}
	for _, w := range all {
		seen[w.ID] = true
	}
	require.Len(t, seen, n)
}

func TestMemoryRepository_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository[widget]("widgets_metrics", nil)

	_, err := repo.Create(ctx, widget{Name: "a"})
	require.NoError(t, err)
	_, err = repo.FindOne(ctx, bson.M{"name": "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.RepositoryOperations.WithLabelValues("widgets_metrics", opCreate, metrics.OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.RepositoryOperations.WithLabelValues("widgets_metrics", opFindOne, metrics.OutcomeNotFound)))
}
