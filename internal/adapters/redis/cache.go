package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/horizons/pkg/domain"
)

// ErrMiss is returned by Get when no cached table exists for the key.
var ErrMiss = errors.New("artifact not cached")

// Cache stores retrieved ephemeris tables keyed by a request fingerprint,
// so the HTTP mode can answer a repeated request without holding a second
// dialogue with the remote service.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration for cached tables. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache backed by its own Redis client.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "horizons:artifact:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint derives the cache key for a request. Identical parameters
// and overrides always produce the same key; any differing field changes
// it.
func Fingerprint(req domain.Request, ov domain.Overrides) string {
	payload, _ := json.Marshal(struct {
		Request   domain.Request   `json:"request"`
		Overrides domain.Overrides `json:"overrides"`
	}{req, ov})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) key(fingerprint string) string {
	return c.prefix + fingerprint
}

// Get returns the cached table for the fingerprint, or ErrMiss.
func (c *Cache) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return val, nil
}

// Set stores a table under the fingerprint, applying the configured TTL.
func (c *Cache) Set(ctx context.Context, fingerprint string, table []byte) error {
	if err := c.client.Set(ctx, c.key(fingerprint), table, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
