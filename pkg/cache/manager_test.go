package cache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestManager_SetGet(t *testing.T) {
	redisClient := setupTestRedis(t)
	m := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Host: "pubchem.ncbi.nlm.nih.gov", Endpoint: "/rest/pug/compound/cid/2244/property/InChIKey/JSON"}
	entry := NewEntry([]byte(`{"PropertyTable": {}}`), http.StatusOK, 1*time.Hour)

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %q, want %q", got.Data, entry.Data)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
}

func TestManager_GetMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	m := NewManager(redisClient)

	_, err := m.Get(context.Background(), Key{Endpoint: "/no/such/key"})
	if err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_ExpiredEntryIsMiss(t *testing.T) {
	redisClient := setupTestRedis(t)
	m := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Endpoint: "/expires/soon"}
	entry := NewEntry([]byte(`data`), http.StatusOK, 50*time.Millisecond)

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	_, err := m.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Delete(t *testing.T) {
	redisClient := setupTestRedis(t)
	m := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Endpoint: "/delete/me"}
	entry := NewEntry([]byte(`data`), http.StatusOK, 1*time.Hour)

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := m.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_SetExpiredEntryIsNoop(t *testing.T) {
	redisClient := setupTestRedis(t)
	m := NewManager(redisClient)
	ctx := context.Background()

	key := Key{Endpoint: "/already/expired"}
	entry := &Entry{
		Data:     []byte(`data`),
		CachedAt: time.Now().Add(-2 * time.Hour),
		Expires:  time.Now().Add(-1 * time.Hour),
	}

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	_, err := m.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss (expired entries not stored)", err)
	}
}
