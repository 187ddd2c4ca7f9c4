package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// testCache skips unless SHOPVOICE_TEST_REDIS_ADDR is set, matching the
// teacher's env-var-gated integration test pattern for external services.
func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("SHOPVOICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPVOICE_TEST_REDIS_ADDR not set")
	}
	c := New(addr, 10, time.Minute, time.Minute)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_GetOrLoad_MissThenHit(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	calls := 0
	load := func(ctx context.Context) (any, error) {
		calls++
		return map[string]any{"name": "Rahul"}, nil
	}

	var first map[string]any
	if err := c.GetOrLoad(ctx, "customer:rahul", &first, load); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if first["name"] != "Rahul" {
		t.Fatalf("got %v", first)
	}

	var second map[string]any
	if err := c.GetOrLoad(ctx, "customer:rahul", &second, load); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if calls != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "customer:bharat", map[string]any{"balance": 500}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.InvalidatePrefix(ctx, "customer:"); err != nil {
		t.Fatalf("InvalidatePrefix: %v", err)
	}

	calls := 0
	load := func(ctx context.Context) (any, error) {
		calls++
		return map[string]any{"balance": 500}, nil
	}
	var dest map[string]any
	if err := c.GetOrLoad(ctx, "customer:bharat", &dest, load); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if calls != 1 {
		t.Fatal("expected a fresh load after invalidation")
	}
}

func TestCache_SetWithTTLAndGet(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	type otp struct {
		Code string
	}
	want := otp{Code: "483921"}
	if err := c.SetWithTTL(ctx, "otp:cust-1", want, 10*time.Minute); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}

	var got otp
	ok, err := c.Get(ctx, "otp:cust-1", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != want {
		t.Fatalf("got (%v, %v), want (%v, true)", got, ok, want)
	}
}

func TestCache_GetMissingKey(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	var dest map[string]any
	ok, err := c.Get(ctx, "does-not-exist", &dest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}
