package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type user struct {
	ID     *primitive.ObjectID `bson:"_id,omitempty"`
	Name   string              `bson:"name"`
	Age    int64               `bson:"age"`
	Active bool                `bson:"active"`
	Status string              `bson:"status"`
	Bio    *string             `bson:"bio"`
}

func userSchema(t *testing.T) *BoundSchema {
	t.Helper()
	s, err := New("app", "users").
		ID().
		Field("name", TypeString).NonEmpty().
		Field("age", TypeInt).NonNegative().
		Field("active", TypeBool).Default(true).
		Field("status", TypeEnum).Values("pending", "active", "banned").
		Field("bio", TypeString).Optional().
		Build()
	require.NoError(t, err)
	bound, err := Bind(s, reflect.TypeFor[user]())
	require.NoError(t, err)
	return bound
}

func TestNewRecordAppliesDefaults(t *testing.T) {
	bound := userSchema(t)

	rec := bound.NewRecord().(*user)
	assert.Nil(t, rec.ID)
	assert.Equal(t, "", rec.Name)
	assert.Equal(t, int64(0), rec.Age)
	assert.True(t, rec.Active)
	// An enum without a declared default takes the first declared value.
	assert.Equal(t, "pending", rec.Status)
	assert.Nil(t, rec.Bio)
}

func TestBuilderSetAndLastWins(t *testing.T) {
	bound := userSchema(t)

	rec, err := bound.Builder().
		Set("name", "ada").
		Set("age", 30).
		Set("age", 31).
		Set("status", "active").
		Set("bio", "mathematician").
		Record()
	require.NoError(t, err)

	u := rec.(*user)
	assert.Equal(t, "ada", u.Name)
	assert.Equal(t, int64(31), u.Age)
	assert.Equal(t, "active", u.Status)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "mathematician", *u.Bio)
	// Untouched fields keep their defaults.
	assert.True(t, u.Active)
}

func TestBuilderSetIdentifier(t *testing.T) {
	bound := userSchema(t)
	id := primitive.NewObjectID()

	rec, err := bound.Builder().
		Set("name", "ada").
		Set("id", id).
		Record()
	require.NoError(t, err)
	u := rec.(*user)
	require.NotNil(t, u.ID)
	assert.Equal(t, id, *u.ID)
}

func TestBuilderSetIdentifierWrongType(t *testing.T) {
	bound := userSchema(t)

	_, err := bound.Builder().Set("id", "not-an-object-id").Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects a primitive.ObjectID")
}

func TestBuilderCustomIDSetter(t *testing.T) {
	s, err := New("app", "users").
		IDSetter("user_id").
		Field("name", TypeString).
		Build()
	require.NoError(t, err)
	bound, err := Bind(s, reflect.TypeFor[struct {
		ID   *primitive.ObjectID `bson:"_id,omitempty"`
		Name string              `bson:"name"`
	}]())
	require.NoError(t, err)

	id := primitive.NewObjectID()
	rec, err := bound.Builder().Set("user_id", id).Record()
	require.NoError(t, err)
	got, ok := bound.Identifier(rec)
	require.True(t, ok)
	assert.Equal(t, id, got)

	// The default setter name is gone.
	_, err = bound.Builder().Set("id", id).Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no settable field "id"`)
}

func TestBuilderErrors(t *testing.T) {
	bound := userSchema(t)

	_, err := bound.Builder().Set("nope", 1).Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no settable field "nope"`)

	_, err = bound.Builder().Set("age", "thirty").Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not assignable")

	// The first error latches; later setters cannot clear it.
	_, err = bound.Builder().
		Set("nope", 1).
		Set("name", "ada").
		Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no settable field "nope"`)
}

func TestAssignIdentifierNeverOverwrites(t *testing.T) {
	bound := userSchema(t)

	rec := bound.NewRecord().(*user)
	first := primitive.NewObjectID()
	bound.AssignIdentifier(rec, first)
	require.NotNil(t, rec.ID)
	assert.Equal(t, first, *rec.ID)

	bound.AssignIdentifier(rec, primitive.NewObjectID())
	assert.Equal(t, first, *rec.ID)
}

func TestIdentifierLookup(t *testing.T) {
	bound := userSchema(t)

	rec := bound.NewRecord().(*user)
	_, ok := bound.Identifier(rec)
	assert.False(t, ok)

	id := primitive.NewObjectID()
	rec.ID = &id
	got, ok := bound.Identifier(rec)
	require.True(t, ok)
	assert.Equal(t, id, got)
}
