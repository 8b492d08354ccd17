//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/application/alert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisSweepLocker_Contention(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	first := NewRedisSweepLocker(client, time.Minute, nil)
	second := NewRedisSweepLocker(client, time.Minute, nil)

	release, err := first.Obtain(ctx)
	require.NoError(t, err)

	_, err = second.Obtain(ctx)
	assert.ErrorIs(t, err, alert.ErrSweepInProgress)

	release()

	again, err := second.Obtain(ctx)
	require.NoError(t, err)
	again()
}

func TestRedisSweepLocker_Expires(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	crashed := NewRedisSweepLocker(client, 200*time.Millisecond, nil)
	_, err := crashed.Obtain(ctx)
	require.NoError(t, err)

	other := NewRedisSweepLocker(client, time.Minute, nil)
	require.Eventually(t, func() bool {
		release, err := other.Obtain(ctx)
		if err != nil {
			return false
		}
		release()
		return true
	}, 3*time.Second, 50*time.Millisecond)
}
