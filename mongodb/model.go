package mongodb

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/asaidimu/go-griot/core/fault"
	"github.com/asaidimu/go-griot/core/schema"
)

// Model translates operations on records of type T into commands against the
// schema's collection. It holds no per-call mutable state: every method is
// one round trip (or one cursor) to the store, safe for concurrent use.
//
// Validation is a Save-time boundary: Update operations apply caller-supplied
// operator documents untouched and do not re-validate.
type Model[T any] struct {
	schema    *schema.RecordSchema
	bound     *schema.BoundSchema
	validator *schema.Validator
	client    *Client
	logger    *zap.Logger
	events    *subscriptions

	idxMu   sync.Mutex
	idxDone bool
}

// ModelOption configures a Model.
type ModelOption func(*modelConfig)

type modelConfig struct {
	logger *zap.Logger
}

// WithLogger sets the model's logger.
func WithLogger(logger *zap.Logger) ModelOption {
	return func(c *modelConfig) { c.logger = logger }
}

// NewModel binds a record schema to the struct type T and the given client
// handle. Binding mismatches between schema and struct are reported here, at
// declaration time.
func NewModel[T any](client *Client, s *schema.RecordSchema, opts ...ModelOption) (*Model[T], error) {
	cfg := &modelConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	bound, err := schema.Bind(s, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	subs, err := newSubscriptions()
	if err != nil {
		return nil, err
	}

	return &Model[T]{
		schema:    s,
		bound:     bound,
		validator: schema.NewValidator(bound),
		client:    client,
		logger:    cfg.logger,
		events:    subs,
	}, nil
}

// Schema returns the model's record schema.
func (m *Model[T]) Schema() *schema.RecordSchema { return m.schema }

// New constructs a record with every declared default applied; fields without
// a default keep their zero value.
func (m *Model[T]) New() *T {
	return m.bound.NewRecord().(*T)
}

// Default is behaviorally identical to New.
func (m *Model[T]) Default() *T {
	return m.New()
}

// RecordBuilder builds a record of type T field by field.
type RecordBuilder[T any] struct {
	inner *schema.RecordBuilder
}

// Builder starts a record builder seeded with the schema's defaults.
func (m *Model[T]) Builder() *RecordBuilder[T] {
	return &RecordBuilder[T]{inner: m.bound.Builder()}
}

// Set assigns a value to the named field and returns the builder for
// chaining. Only the final assignment per field matters.
func (rb *RecordBuilder[T]) Set(name string, value any) *RecordBuilder[T] {
	rb.inner.Set(name, value)
	return rb
}

// Record returns the built record or the first setter error.
func (rb *RecordBuilder[T]) Record() (*T, error) {
	rec, err := rb.inner.Record()
	if err != nil {
		return nil, err
	}
	return rec.(*T), nil
}

// Validate checks the record against every declared rule, failing fast on the
// first violation.
func (m *Model[T]) Validate(rec *T) error {
	return m.validator.Validate(rec)
}

// Collection resolves the model's collection handle from the injected client.
// An uninitialized client fails immediately with a client_missing fault.
func (m *Model[T]) Collection() (*mongo.Collection, error) {
	db, err := m.client.Database(m.schema.Database())
	if err != nil {
		return nil, err
	}
	return db.Collection(m.schema.Collection()), nil
}

// ensureIndexes provisions the schema's index specifications at most
// meaningfully once per process. The latch only closes on success, so a
// failed attempt aborts the triggering save and the next save tries again.
// Concurrent first-writers are safe because create-index is idempotent on
// the store side.
func (m *Model[T]) ensureIndexes(ctx context.Context, col *mongo.Collection) error {
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	if m.idxDone {
		return nil
	}
	models := compileIndexes(m.schema)
	if len(models) > 0 {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fault.Wrap(fault.KindIndex, err, "failed to create indexes on %s", m.schema.Collection()).
				WithHint("Check the index specifications against existing indexes on the collection.")
		}
		m.logger.Debug("indexes ensured",
			zap.String("collection", m.schema.Collection()),
			zap.Int("count", len(models)))
	}
	m.idxDone = true
	return nil
}

// Save validates the record, provisions indexes once, serializes and inserts
// it. The returned identifier is also written back to the record when it had
// none; a caller-assigned identifier is never overwritten.
func (m *Model[T]) Save(ctx context.Context, rec *T) (primitive.ObjectID, error) {
	return run(m, "save", func() (primitive.ObjectID, error) {
		if err := m.validator.Validate(rec); err != nil {
			return primitive.NilObjectID, err
		}
		col, err := m.Collection()
		if err != nil {
			return primitive.NilObjectID, err
		}
		if err := m.ensureIndexes(ctx, col); err != nil {
			return primitive.NilObjectID, err
		}

		doc, err := bson.Marshal(rec)
		if err != nil {
			return primitive.NilObjectID, fault.Wrap(fault.KindSerialization, err, "failed to serialize record").
				WithHint("Are all field types encodable as BSON?")
		}

		res, err := col.InsertOne(ctx, bson.Raw(doc))
		if err != nil {
			return primitive.NilObjectID, fault.Wrap(fault.KindConnection, err, "failed to insert document")
		}

		id, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return primitive.NilObjectID, fault.New(fault.KindSerialization, "inserted id is not an ObjectID").
				WithHint("This can happen when a custom _id value of another type is used.")
		}
		m.bound.AssignIdentifier(rec, id)
		return id, nil
	})
}

// Find returns every record matching the filter, in store-returned order.
// A nil filter matches all documents.
func (m *Model[T]) Find(ctx context.Context, filter any) ([]T, error) {
	return run(m, "find", func() ([]T, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		cur, err := col.Find(ctx, normalize(filter))
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "failed to execute find")
		}
		defer cur.Close(ctx)

		var out []T
		for cur.Next(ctx) {
			var rec T
			if err := cur.Decode(&rec); err != nil {
				return nil, fault.Wrap(fault.KindSerialization, err, "failed to deserialize document").
					WithHint("Check field types and optionality on the record struct.")
			}
			out = append(out, rec)
		}
		if err := cur.Err(); err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "cursor failed mid-stream")
		}
		return out, nil
	})
}

// FindOne returns the first record matching the filter, or nil when nothing
// matches.
func (m *Model[T]) FindOne(ctx context.Context, filter any) (*T, error) {
	return run(m, "find_one", func() (*T, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		res := col.FindOne(ctx, normalize(filter))
		if err := res.Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, nil
			}
			return nil, fault.Wrap(fault.KindConnection, err, "failed to execute find_one")
		}
		var rec T
		if err := res.Decode(&rec); err != nil {
			return nil, fault.Wrap(fault.KindSerialization, err, "failed to deserialize document")
		}
		return &rec, nil
	})
}

// FindByID returns the record with the given identifier, or nil.
func (m *Model[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return m.FindOne(ctx, bson.M{"_id": id})
}

// Update applies the update document to every record matching the filter and
// reports matched and modified counts.
func (m *Model[T]) Update(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return run(m, "update", func() (*mongo.UpdateResult, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		res, err := col.UpdateMany(ctx, normalize(filter), update)
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "failed to update documents").
				WithHint("Check the update operators and filter structure.")
		}
		return res, nil
	})
}

// UpdateOne applies the update document to the first record matching the
// filter.
func (m *Model[T]) UpdateOne(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
	return run(m, "update_one", func() (*mongo.UpdateResult, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		res, err := col.UpdateOne(ctx, normalize(filter), update)
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "failed to update document")
		}
		return res, nil
	})
}

// UpdateByID applies the update document to the record with the given
// identifier.
func (m *Model[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, update any) (*mongo.UpdateResult, error) {
	return m.UpdateOne(ctx, bson.M{"_id": id}, update)
}

// Delete removes every record matching the filter.
func (m *Model[T]) Delete(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return run(m, "delete", func() (*mongo.DeleteResult, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		res, err := col.DeleteMany(ctx, normalize(filter))
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "failed to delete documents")
		}
		return res, nil
	})
}

// DeleteOne removes the first record matching the filter.
func (m *Model[T]) DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return run(m, "delete_one", func() (*mongo.DeleteResult, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		res, err := col.DeleteOne(ctx, normalize(filter))
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, err, "failed to delete document")
		}
		return res, nil
	})
}

// DeleteByID removes the record with the given identifier.
func (m *Model[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) (*mongo.DeleteResult, error) {
	return m.DeleteOne(ctx, bson.M{"_id": id})
}

// Count returns the number of records matching the filter.
func (m *Model[T]) Count(ctx context.Context, filter any) (int64, error) {
	return run(m, "count", func() (int64, error) {
		col, err := m.Collection()
		if err != nil {
			return 0, err
		}
		n, err := col.CountDocuments(ctx, normalize(filter))
		if err != nil {
			return 0, fault.Wrap(fault.KindConnection, err, "failed to count documents")
		}
		return n, nil
	})
}

// Exists reports whether at least one record matches the filter.
func (m *Model[T]) Exists(ctx context.Context, filter any) (bool, error) {
	rec, err := m.FindOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Clear removes every record in the collection.
func (m *Model[T]) Clear(ctx context.Context) (*mongo.DeleteResult, error) {
	return m.Delete(ctx, bson.M{})
}

// Aggregate executes an aggregation pipeline and returns the raw cursor. The
// output shape is caller-defined, so documents are not deserialized into T;
// decode them into schema.Document or a caller type.
func (m *Model[T]) Aggregate(ctx context.Context, pipeline any) (*mongo.Cursor, error) {
	return run(m, "aggregate", func() (*mongo.Cursor, error) {
		col, err := m.Collection()
		if err != nil {
			return nil, err
		}
		if pipeline == nil {
			pipeline = mongo.Pipeline{}
		}
		cur, err := col.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fault.Wrap(fault.KindAggregation, err, "failed to run aggregation").
				WithHint("Check that every pipeline stage is a valid document.")
		}
		return cur, nil
	})
}

// RegisterSubscription registers a callback for an operation lifecycle event
// and returns an id for unregistering it later.
func (m *Model[T]) RegisterSubscription(options RegisterSubscriptionOptions) string {
	return m.events.register(options)
}

// UnregisterSubscription removes a subscription by id.
func (m *Model[T]) UnregisterSubscription(id string) {
	m.events.unregister(id)
}

// Subscriptions returns the currently registered subscriptions.
func (m *Model[T]) Subscriptions() []SubscriptionInfo {
	return m.events.list()
}

// run wraps an operation with started/succeeded/failed event emission.
func run[T, R any](m *Model[T], operation string, fn func() (R, error)) (R, error) {
	start := time.Now()
	m.emit(EventOperationStarted, operation, nil, start)

	out, err := fn()
	if err != nil {
		msg := err.Error()
		m.emit(EventOperationFailed, operation, &msg, start)
		return out, err
	}
	m.emit(EventOperationSucceeded, operation, nil, start)
	return out, nil
}

func (m *Model[T]) emit(t EventType, operation string, errMsg *string, start time.Time) {
	m.events.emit(OperationEvent{
		Type:       t,
		Operation:  operation,
		Collection: m.schema.Collection(),
		Error:      errMsg,
		Duration:   time.Since(start),
		Timestamp:  start,
	})
}

// normalize maps a nil filter to the match-all document; everything else
// passes through untouched.
func normalize(filter any) any {
	if filter == nil {
		return bson.M{}
	}
	return filter
}
