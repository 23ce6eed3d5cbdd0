package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCatalogCache(client, time.Minute), mr
}

func TestCatalogCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	key, err := c.Key(map[string]string{"sort": "price_asc"})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != `catalog:{"sort":"price_asc"}` {
		t.Fatalf("unexpected key %q", key)
	}

	var got []string
	hit, err := c.Get(ctx, key, &got)
	if err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, key, []string{"a", "b"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err = c.Get(ctx, key, &got)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected value %v", got)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	hit, _ = c.Get(ctx, key, &got)
	if hit {
		t.Fatalf("entry should have expired")
	}
}

func TestCatalogCacheInvalidateOnlyCatalogKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		if err := mr.Set("catalog:"+string(rune('a'+i%26))+string(rune('0'+i/26)), "x"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := mr.Set("session:1", "keep"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, k := range mr.Keys() {
		if len(k) >= len(CatalogPrefix) && k[:len(CatalogPrefix)] == CatalogPrefix {
			t.Fatalf("catalog key %q survived invalidation", k)
		}
	}
	if !mr.Exists("session:1") {
		t.Fatalf("non-catalog key was removed")
	}
}
