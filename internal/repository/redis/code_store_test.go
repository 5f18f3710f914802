package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*CodeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCodeStore(client), mr
}

func TestCodeStoreSetGetDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "sms:code:13800138000:login"); err != nil || found {
		t.Fatalf("Get on empty store: found=%v err=%v", found, err)
	}

	if err := store.Set(ctx, "sms:code:13800138000:login", "042319", 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, found, err := store.Get(ctx, "sms:code:13800138000:login")
	if err != nil || !found || value != "042319" {
		t.Fatalf("Get = (%q, %v, %v)", value, found, err)
	}

	if err := store.Delete(ctx, "sms:code:13800138000:login", "missing-key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := store.Get(ctx, "sms:code:13800138000:login"); found {
		t.Fatalf("key survived delete")
	}
}

func TestCodeStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sms:code:13800138000:login", "042319", 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mr.FastForward(10*time.Minute + time.Second)

	if _, found, err := store.Get(ctx, "sms:code:13800138000:login"); err != nil || found {
		t.Fatalf("expired key still readable: found=%v err=%v", found, err)
	}
}

func TestCodeStoreSetNX(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "sms:rate:13800138000", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = (%v, %v)", ok, err)
	}

	ok, err = store.SetNX(ctx, "sms:rate:13800138000", "1", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX = (%v, %v), want blocked", ok, err)
	}
}

func TestCodeStoreIncrementKeepsWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Increment(ctx, "sms:daily:13800138000", 24*time.Hour)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Fatalf("Increment = %d, want %d", got, want)
		}
	}

	// TTL is set on creation only; later increments must not extend it.
	before := mr.TTL("sms:daily:13800138000")
	mr.FastForward(time.Hour)
	if _, err := store.Increment(ctx, "sms:daily:13800138000", 24*time.Hour); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	after := mr.TTL("sms:daily:13800138000")
	if after > before {
		t.Fatalf("ttl extended by increment: before=%v after=%v", before, after)
	}
}

func TestCodeStoreTTL(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if ttl, err := store.TTL(ctx, "absent"); err != nil || ttl != 0 {
		t.Fatalf("TTL absent = (%v, %v)", ttl, err)
	}

	if err := store.Set(ctx, "sms:rate:13800138000", "1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ttl, err := store.TTL(ctx, "sms:rate:13800138000")
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v, want within (0, 1m]", ttl)
	}
}
