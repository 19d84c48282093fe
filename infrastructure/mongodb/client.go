package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultConnectTimeout is the maximum time to wait for the initial connection.
const DefaultConnectTimeout = 5 * time.Second

// Config holds the configuration for creating a Mongo client.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration // optional, defaults to DefaultConnectTimeout
}

// Client wraps the mongo driver client scoped to the application database.
// This is the ContentStore engine: single-document writes, no cross-document
// locking.
type Client struct {
	inner    *mongo.Client
	database *mongo.Database
}

func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	inner, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := inner.Ping(ctx, readpref.Primary()); err != nil {
		_ = inner.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo (timeout: %v): %w", timeout, err)
	}

	return &Client{
		inner:    inner,
		database: inner.Database(cfg.Database),
	}, nil
}

// Collection returns a handle to a collection in the application database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

func (c *Client) Close(ctx context.Context) error {
	return c.inner.Disconnect(ctx)
}

// Ping tests the connection with a caller-controlled context.
func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx, readpref.Primary())
}

// IsConnected reports connection health using a short internal timeout.
func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.Ping(ctx) == nil
}
