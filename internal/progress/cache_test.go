package progress

import (
	"testing"
	"time"
)

func TestCacheSetGetClear(t *testing.T) {
	t.Parallel()

	cache := NewCache(time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Error("unknown token must read as absent")
	}

	cache.Set("job", 35)
	if got, ok := cache.Get("job"); !ok || got != 35 {
		t.Errorf("Get() = %d, %v; want 35, true", got, ok)
	}

	cache.Set("job", 85)
	if got, _ := cache.Get("job"); got != 85 {
		t.Errorf("Get() after update = %d, want 85", got)
	}

	cache.Clear("job")
	if _, ok := cache.Get("job"); ok {
		t.Error("cleared token must read as absent")
	}
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := NewCache(time.Minute)
	current := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Set("old", 50)
	current = current.Add(2 * time.Minute)
	cache.Set("fresh", 10)

	if _, ok := cache.Get("old"); ok {
		t.Error("expired token must read as absent")
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Error("fresh token must still be readable")
	}

	if removed := cache.Purge(); removed != 1 {
		t.Errorf("Purge() = %d, want 1", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() after purge = %d, want 1", cache.Len())
	}
}
