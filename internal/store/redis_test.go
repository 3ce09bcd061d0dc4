package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	backend := NewRedisWithClient(client, "transcripts")
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestRedis_GetMissingKey(t *testing.T) {
	backend := newTestRedis(t)

	_, found, err := backend.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestRedis_SetThenGet(t *testing.T) {
	backend := newTestRedis(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "https://example.com/a.mp3", []byte(`{"transcript":"hi"}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	data, found, err := backend.Get(ctx, "https://example.com/a.mp3")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist")
	}
	if string(data) != `{"transcript":"hi"}` {
		t.Errorf("unexpected value: %s", data)
	}
}

func TestRedis_KeyPrefixIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	a := NewRedisWithClient(client, "prefix-a")
	b := NewRedisWithClient(client, "prefix-b")
	ctx := context.Background()

	if err := a.Set(ctx, "shared-key", []byte("a-value")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	_, found, err := b.Get(ctx, "shared-key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected prefixes to isolate keys")
	}
}

func TestStore_OnRedisBackend(t *testing.T) {
	s := New(newTestRedis(t))
	ctx := context.Background()
	url := "https://example.com/redis-ep.mp3"

	if err := s.Save(ctx, url, "T1", "S1", nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Save(ctx, url, "T2", "", nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	rec, found, err := s.Load(ctx, url)
	if err != nil || !found {
		t.Fatalf("load failed: found=%v err=%v", found, err)
	}
	if rec.Transcript != "T2" || rec.Summary != "S1" {
		t.Errorf("unexpected record after upsert: %+v", rec)
	}
}
