// Package mongodb is the document-store adapter: a set-once client handle,
// the index specification compiler, and the generic Model translating typed
// records into collection commands.
package mongodb

import (
	"context"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/asaidimu/go-griot/core/fault"
)

// Client is the process-wide store client handle, injected into every model.
// It is initialized exactly once; a second Init attempt fails rather than
// replacing the handle. After initialization it is read concurrently by any
// number of in-flight operations without further synchronization.
type Client struct {
	mu     sync.Mutex
	client atomic.Pointer[mongo.Client]
	logger *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger used for connection lifecycle messages.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates an uninitialized client handle.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init connects to the store at the given URI and verifies the connection
// with a ping. Calling Init on an already-initialized handle fails with a
// client_init fault.
func (c *Client) Init(ctx context.Context, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client.Load() != nil {
		return fault.New(fault.KindClientInit, "client already initialized").
			WithHint("Init must be called exactly once; reuse the existing handle instead.")
	}

	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fault.Wrap(fault.KindConnection, err, "failed to connect to store")
	}
	if err := cl.Ping(ctx, nil); err != nil {
		_ = cl.Disconnect(ctx)
		return fault.Wrap(fault.KindConnection, err, "failed to reach store").
			WithHint("Check that the server is running and the connection string is correct.")
	}

	c.client.Store(cl)
	c.logger.Info("store client initialized")
	return nil
}

// Mongo returns the underlying driver client, or a client_missing fault when
// Init has not succeeded yet.
func (c *Client) Mongo() (*mongo.Client, error) {
	cl := c.client.Load()
	if cl == nil {
		return nil, fault.New(fault.KindClientMissing, "store client not initialized").
			WithHint("Call Init before performing any model operation.")
	}
	return cl, nil
}

// Database resolves a database handle from the initialized client.
func (c *Client) Database(name string) (*mongo.Database, error) {
	cl, err := c.Mongo()
	if err != nil {
		return nil, err
	}
	return cl.Database(name), nil
}

// Disconnect tears down the connection. A handle that was never initialized
// disconnects as a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl := c.client.Load()
	if cl == nil {
		return nil
	}
	if err := cl.Disconnect(ctx); err != nil {
		return fault.Wrap(fault.KindConnection, err, "failed to disconnect from store")
	}
	c.logger.Info("store client disconnected")
	return nil
}
