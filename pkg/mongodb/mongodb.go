package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultMaxConnIdleTime = 5 * time.Minute
	defaultMaxPoolSize     = 100
)

type Option func(*options.ClientOptions)

func WithConnectTimeout(d time.Duration) Option {
	return func(opts *options.ClientOptions) {
		if d > 0 {
			opts.SetConnectTimeout(d)
		}
	}
}

func WithMaxConnIdleTime(d time.Duration) Option {
	return func(opts *options.ClientOptions) {
		if d > 0 {
			opts.SetMaxConnIdleTime(d)
		}
	}
}

func WithMaxPoolSize(n uint64) Option {
	return func(opts *options.ClientOptions) {
		if n > 0 {
			opts.SetMaxPoolSize(n)
		}
	}
}

func WithMinPoolSize(n uint64) Option {
	return func(opts *options.ClientOptions) {
		if n > 0 {
			opts.SetMinPoolSize(n)
		}
	}
}

// clientOptions layers the defaults, then the settings carried by uri, then opts.
func clientOptions(uri string, opts ...Option) *options.ClientOptions {
	clientOpts := options.Client().
		SetConnectTimeout(defaultConnectTimeout).
		SetMaxConnIdleTime(defaultMaxConnIdleTime).
		SetMaxPoolSize(defaultMaxPoolSize).
		ApplyURI(uri)

	for _, opt := range opts {
		opt(clientOpts)
	}

	return clientOpts
}

// New connects to the deployment at uri and verifies the connection with a ping to the primary.
// Options in uri override the defaults; zero option values keep whatever uri or the defaults set.
func New(ctx context.Context, uri string, opts ...Option) (*mongo.Client, error) {
	const op = "mongodb.New"

	clientOpts := clientOptions(uri, opts...)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return client, nil
}
