package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/config"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rs, err := NewRedisStore(mr.Addr(), "", 0, "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	return rs, mr
}

// --- Contract shared by every backend ---

func TestKV_Contract(t *testing.T) {
	backends := map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV { return NewMemoryStore() },
		"file": func(t *testing.T) KV {
			fs, err := NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
			require.NoError(t, err)
			return fs
		},
		"redis": func(t *testing.T) KV {
			rs, _ := newTestRedisStore(t)
			return rs
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := open(t)

			_, found, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found, "absent key means no value")

			require.NoError(t, kv.Set(ctx, "theme", "dark"))
			v, found, err := kv.Get(ctx, "theme")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "dark", v)

			require.NoError(t, kv.Set(ctx, "theme", "light"))
			v, _, _ = kv.Get(ctx, "theme")
			assert.Equal(t, "light", v)

			require.NoError(t, kv.Delete(ctx, "theme"))
			_, found, err = kv.Get(ctx, "theme")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, kv.Delete(ctx, "never-set"), "deleting a missing key is not an error")
		})
	}
}

// --- File store ---

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "wedding_access_token", "tok-1"))
	require.NoError(t, fs.Set(ctx, "wedding_user", `{"id":1}`))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, found, err := reopened.Get(ctx, "wedding_access_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok-1", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json"), 0o600))

	_, err := NewFileStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFileStore_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	_, found, _ := fs.Get(context.Background(), "any")
	assert.False(t, found)
}

func TestFileStore_NullFileIsEmptyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	_, found, _ := fs.Get(ctx, "any")
	assert.False(t, found)

	require.NoError(t, fs.Set(ctx, "k", "v"))
	v, found, err := fs.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)
}

func TestFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

// --- Redis store ---

func TestRedisStore_UsesPrefix(t *testing.T) {
	ctx := context.Background()
	rs, mr := newTestRedisStore(t)

	require.NoError(t, rs.Set(ctx, "wedding_refresh_token", "r-1"))

	v, err := mr.Get("test:wedding_refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "r-1", v)
	assert.False(t, mr.Exists("wedding_refresh_token"))
}

func TestRedisStore_HealthCheck(t *testing.T) {
	rs, _ := newTestRedisStore(t)
	require.NoError(t, rs.HealthCheck(context.Background()))
}

func TestRedisStore_HealthCheckNil(t *testing.T) {
	rs := &RedisStore{}
	err := rs.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis not initialized")
	assert.NoError(t, rs.Close())
}

func TestRedisStore_Down(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rs := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	mr.Close()

	err = rs.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")

	_, _, err = rs.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(addr, "", 0, "")
	require.Error(t, err)
}

// --- Open ---

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "file", cfg: config.Config{StorageBackend: config.StorageFile, StoragePath: filepath.Join(t.TempDir(), "s.json")}},
		{name: "memory", cfg: config.Config{StorageBackend: config.StorageMemory}},
		{name: "redis", cfg: config.Config{StorageBackend: config.StorageRedis, RedisAddr: mr.Addr()}},
		{name: "unknown", cfg: config.Config{StorageBackend: "etcd"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := Open(&tt.cfg, zap.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, kv)
			if c, ok := kv.(Closer); ok {
				_ = c.Close()
			}
		})
	}
}
