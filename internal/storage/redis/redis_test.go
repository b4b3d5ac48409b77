//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/freshcart/internal/guest"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start redis: %v\n", err)
		return 1
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	endpoint, err := c.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis endpoint: %v\n", err)
		return 1
	}

	testClient, err = Dial(ctx, "redis://"+endpoint+"/0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer func() { _ = testClient.Close() }()

	return m.Run()
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(testClient, time.Hour)
	sid := t.Name()

	v, err := s.Get(ctx, sid, guest.KeyCart)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Put(ctx, sid, guest.KeyCart, []byte(`[{"price":"4","count":2}]`)))
	require.NoError(t, s.Put(ctx, sid, guest.KeyWishlist, []byte(`[{"id":"p1"}]`)))

	v, err = s.Get(ctx, sid, guest.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"price":"4","count":2}]`, string(v))

	ttl, err := testClient.TTL(ctx, dataKey(sid, guest.KeyCart)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	assert.Equal(t, sid, sessions[0].ID)
	assert.Equal(t, 2, sessions[0].CartUnits)
	assert.Equal(t, 1, sessions[0].WishlistItems)

	require.NoError(t, s.Delete(ctx, sid, guest.Keys...))
	score, err := testClient.ZScore(ctx, indexKey, sid).Result()
	require.ErrorIs(t, err, redis.Nil, "score %v", score)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := New(testClient, 0)
	sid := t.Name()
	now := time.Now()

	s.now = func() time.Time { return now.Add(-72 * time.Hour) }
	require.NoError(t, s.Put(ctx, sid, guest.KeyCart, []byte(`[]`)))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := s.Get(ctx, sid, guest.KeyCart)
	require.NoError(t, err)
	assert.Nil(t, v)
}
