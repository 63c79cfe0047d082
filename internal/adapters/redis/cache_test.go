package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/horizons/pkg/domain"
)

func setupCache(t *testing.T, opts ...Option) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	c := NewFromClient(client, opts...)
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestCache_RoundTrip(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	table := []byte("$$SOE\ndata\n$$EOE\n")
	require.NoError(t, c.Set(ctx, "abc", table))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestCache_Miss(t *testing.T) {
	_, c := setupCache(t)

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_TTL(t *testing.T) {
	mr, c := setupCache(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", []byte("data")))

	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFingerprint(t *testing.T) {
	req := domain.Request{Object: "Test", Elements: "EC=.5", Center: "@399", Start: "a", Stop: "b", Step: "1d", Quantities: "1"}
	ov := domain.Overrides{TimeZone: "+00:00"}

	assert.Equal(t, Fingerprint(req, ov), Fingerprint(req, ov), "fingerprint must be stable")

	other := req
	other.Step = "2d"
	assert.NotEqual(t, Fingerprint(req, ov), Fingerprint(other, ov))
	assert.NotEqual(t, Fingerprint(req, ov), Fingerprint(req, domain.Overrides{}))
}
