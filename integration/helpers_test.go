//go:build integration

package integration

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/artifactcache"
	"github.com/meigma/artifactcache/auth"
	"github.com/meigma/artifactcache/store"
	redisstore "github.com/meigma/artifactcache/store/redis"
)

const (
	testSecret     = "integration-secret"
	testReadToken  = "integration-ro"
	testWriteToken = "integration-rw"
)

// --- Redis Container Setup ---

var (
	redisOnce sync.Once
	redisURL  string
	redisErr  error
)

// getRedis returns the shared Redis URL, starting the container if needed.
// The container is shared across all tests for performance.
func getRedis(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	redisOnce.Do(func() {
		ctx := context.Background()
		redisURL, redisErr = startRedisContainer(ctx)
	})

	if redisErr != nil {
		tb.Fatalf("start redis container: %v", redisErr)
	}

	return redisURL
}

// startRedisContainer starts a redis:7 container and returns a redis:// URL.
func startRedisContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start redis container: %w", err)
	}

	// Note: Container cleanup is handled by testcontainers Reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve redis port: %w", err)
	}

	return fmt.Sprintf("redis://%s:%s", host, port.Port()), nil
}

// --- Test Engine Factory ---

// newTestStore connects to the shared Redis instance.
func newTestStore(tb testing.TB) store.Client {
	tb.Helper()

	kv, err := redisstore.New(context.Background(), redisstore.Config{URL: getRedis(tb)})
	require.NoError(tb, err, "connect to redis")
	tb.Cleanup(func() { _ = kv.Close() })
	return kv
}

// newTestEngine creates an engine against the shared Redis instance. Each
// test gets a unique key prefix so tests never see each other's entries.
func newTestEngine(tb testing.TB, opts ...artifactcache.Option) *artifactcache.Engine {
	tb.Helper()

	prefix := fmt.Sprintf("it:%s:", uuid.NewString())
	verifier := auth.NewVerifier(testSecret, testReadToken, testWriteToken)
	return artifactcache.New(newTestStore(tb), prefix, verifier, opts...)
}

// --- Test Data Helpers ---

// makeRandomContent creates random binary content.
func makeRandomContent(tb testing.TB, size int) []byte {
	tb.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(tb, err)
	return data
}

// hashOf returns the hex sha256 of content, for realistic cache keys.
func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
