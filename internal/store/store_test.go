package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laptoptracker/laptop-tracker/internal/testutil"
)

// exerciseStore runs the shared Store contract.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, []string{"B2", "A1"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "B2"}, got)

	require.NoError(t, s.Save(ctx, []string{"A1", "B2", "C3"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "B2", "C3"}, got)

	require.NoError(t, s.Save(ctx, nil))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "notified.json")))
}

func TestFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), []string{"OLD123", "OLD456"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"OLD123\",\n  \"OLD456\"\n]", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_UnwritableDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing", "notified.json"))
	assert.Error(t, s.Save(context.Background(), []string{"A"}))
	assert.Error(t, s.Ping(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{FilePath: filepath.Join(t.TempDir(), "n.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Options{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "TEST_REDIS_URL")
	ctx := context.Background()

	opt, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	require.NoError(t, testutil.FlushRedis(ctx, client))

	s := NewRedisStoreFromClient(client, testutil.UniqueID("notified"))
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	databaseURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	defer pool.Close()

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	require.NoError(t, err)
	defer unlock()

	require.NoError(t, testutil.DropNotifiedSchema(ctx, pool))

	s := NewPostgresStoreFromPool(pool, nil)
	require.NoError(t, s.EnsureSchema(ctx))
	exerciseStore(t, s)
}
