package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/asaidimu/go-griot/core/fault"
	"github.com/asaidimu/go-griot/core/query"
	"github.com/asaidimu/go-griot/core/schema"
)

// setupIntegration connects to the store named by MONGODB_URI and returns a
// model over an empty collection. Skips when no store is available.
func setupIntegration(t *testing.T) (*Model[account], context.Context) {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	client := NewClient()
	require.NoError(t, client.Init(ctx, uri))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	m, err := NewModel[account](client, accountSchema(t))
	require.NoError(t, err)

	_, err = m.Clear(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = m.Clear(context.Background()) })

	return m, ctx
}

func seedAccount(t *testing.T, m *Model[account], ctx context.Context, name, email string, age int64) primitive.ObjectID {
	t.Helper()
	rec, err := m.Builder().
		Set("name", name).
		Set("email", email).
		Set("age", age).
		Record()
	require.NoError(t, err)
	id, err := m.Save(ctx, rec)
	require.NoError(t, err)
	return id
}

func TestIntegrationSaveAssignsIdentifier(t *testing.T) {
	m, ctx := setupIntegration(t)

	rec := m.New()
	rec.Name = "ada"
	rec.Email = "ada@example.com"

	id, err := m.Save(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, primitive.NilObjectID, id)
	require.NotNil(t, rec.ID)
	assert.Equal(t, id, *rec.ID)

	found, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ada", found.Name)
	assert.Equal(t, "free", found.Plan)
}

func TestIntegrationSaveKeepsCallerAssignedID(t *testing.T) {
	m, ctx := setupIntegration(t)

	chosen := primitive.NewObjectID()
	rec, err := m.Builder().
		Set("name", "ada").
		Set("email", "ada@example.com").
		Set("id", chosen).
		Record()
	require.NoError(t, err)

	id, err := m.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, chosen, id)
	assert.Equal(t, chosen, *rec.ID)
}

func TestIntegrationFindAndFilters(t *testing.T) {
	m, ctx := setupIntegration(t)

	seedAccount(t, m, ctx, "ada", "ada@example.com", 30)
	seedAccount(t, m, ctx, "grace", "grace@example.com", 45)
	seedAccount(t, m, ctx, "alan", "alan@example.com", 41)

	all, err := m.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	over40, err := m.Find(ctx, query.Filter().Where("age").Gt(40).Build())
	require.NoError(t, err)
	assert.Len(t, over40, 2)

	one, err := m.FindOne(ctx, bson.M{"name": "grace"})
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, int64(45), one.Age)

	missing, err := m.FindOne(ctx, bson.M{"name": "nobody"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIntegrationUpdateCounts(t *testing.T) {
	m, ctx := setupIntegration(t)

	seedAccount(t, m, ctx, "ada", "ada@example.com", 30)
	seedAccount(t, m, ctx, "grace", "grace@example.com", 45)
	id := seedAccount(t, m, ctx, "alan", "alan@example.com", 41)

	res, err := m.Update(ctx, nil, query.Update().Set("plan", "pro").Build())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.MatchedCount)
	assert.Equal(t, int64(3), res.ModifiedCount)

	res, err = m.UpdateOne(ctx, bson.M{"name": "ada"}, query.Update().Inc("age", 1).Build())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	res, err = m.UpdateByID(ctx, id, query.Update().Set("age", 42).Build())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)

	alan, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, alan)
	assert.Equal(t, int64(42), alan.Age)
	assert.Equal(t, "pro", alan.Plan)
}

func TestIntegrationDeleteCountExists(t *testing.T) {
	m, ctx := setupIntegration(t)

	seedAccount(t, m, ctx, "ada", "ada@example.com", 30)
	seedAccount(t, m, ctx, "grace", "grace@example.com", 45)
	id := seedAccount(t, m, ctx, "alan", "alan@example.com", 41)

	n, err := m.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := m.Exists(ctx, bson.M{"name": "grace"})
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := m.DeleteByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	res, err = m.DeleteOne(ctx, bson.M{"name": "grace"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	res, err = m.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	ok, err = m.Exists(ctx, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegrationAggregate(t *testing.T) {
	m, ctx := setupIntegration(t)

	seedAccount(t, m, ctx, "ada", "ada@example.com", 30)
	seedAccount(t, m, ctx, "grace", "grace@example.com", 45)
	seedAccount(t, m, ctx, "alan", "alan@example.com", 41)

	pipeline := []bson.M{
		{"$match": bson.M{"age": bson.M{"$gt": 35}}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$age"}}},
	}
	cur, err := m.Aggregate(ctx, pipeline)
	require.NoError(t, err)
	defer cur.Close(ctx)

	var rows []schema.Document
	require.NoError(t, cur.All(ctx, &rows))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 86, rows[0]["total"])
}

func TestIntegrationInitIsSetOnce(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := NewClient()
	require.NoError(t, client.Init(ctx, uri))
	defer client.Disconnect(context.Background())

	err := client.Init(ctx, uri)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindClientInit))
}

func TestIntegrationOperationEvents(t *testing.T) {
	m, ctx := setupIntegration(t)

	done := make(chan OperationEvent, 1)
	id := m.RegisterSubscription(RegisterSubscriptionOptions{
		Event: EventOperationSucceeded,
		Callback: func(ctx context.Context, event OperationEvent) error {
			select {
			case done <- event:
			default:
			}
			return nil
		},
	})
	defer m.UnregisterSubscription(id)

	seedAccount(t, m, ctx, "ada", "ada@example.com", 30)

	select {
	case event := <-done:
		assert.Equal(t, EventOperationSucceeded, event.Type)
		assert.Equal(t, "accounts", event.Collection)
		assert.Nil(t, event.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("no operation event observed")
	}
}
