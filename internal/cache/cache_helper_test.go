package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheHelper(client, "patient:"), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	in := payload{ID: 7, Name: "Alex"}
	if err := helper.Set(ctx, "id:7", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out payload
	if err := helper.Get(ctx, "id:7", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestCacheHelper_GetMiss(t *testing.T) {
	helper, _ := newTestCache(t)

	var out map[string]any
	err := helper.Get(context.Background(), "id:missing", &out)
	if err != ErrCacheNotFound {
		t.Errorf("got %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "patient:")
	ctx := context.Background()

	if err := helper.Set(ctx, "id:1", "x", time.Minute); err != nil {
		t.Errorf("Set with nil client: %v", err)
	}
	if err := helper.Delete(ctx, "id:1"); err != nil {
		t.Errorf("Delete with nil client: %v", err)
	}

	var out string
	if err := helper.Get(ctx, "id:1", &out); err != ErrCacheNotAvailable {
		t.Errorf("got %v, want ErrCacheNotAvailable", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, mr := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"caregiver:1:list", "caregiver:1:count", "caregiver:2:list"} {
		if err := helper.Set(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "caregiver:1:*"); err != nil {
		t.Fatalf("InvalidatePattern: %v", err)
	}

	if mr.Exists("patient:caregiver:1:list") || mr.Exists("patient:caregiver:1:count") {
		t.Error("caregiver 1 keys should have been removed")
	}
	if !mr.Exists("patient:caregiver:2:list") {
		t.Error("caregiver 2 key should have survived")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"score": 42}, nil
	}

	var out map[string]int
	if err := helper.CacheOrExecute(ctx, "id:9", &out, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
	if out["score"] != 42 {
		t.Errorf("got %v, want score 42", out)
	}

	// Second call should come from cache once the async set lands.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := helper.Exists(ctx, "id:9"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var out2 map[string]int
	if err := helper.CacheOrExecute(ctx, "id:9", &out2, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute second call: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times after cached read, want 1", calls)
	}
}

func TestCacheManager_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)

	if err := cm.HealthCheck(context.Background()); err != ErrCacheNotAvailable {
		t.Errorf("got %v, want ErrCacheNotAvailable", err)
	}
	if err := cm.InvalidatePatient(context.Background(), 1); err != nil {
		t.Errorf("InvalidatePatient with nil client: %v", err)
	}
}
