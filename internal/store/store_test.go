package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryExports(0)
	data := []byte(`[{"index":0}]`)

	if err := m.Put(ctx, "iron-grid-1.json", data); err != nil {
		t.Fatalf("put: %v", err)
	}
	data[0] = 'x'

	got, err := m.Get(ctx, "iron-grid-1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"index":0}]` {
		t.Fatalf("stored data aliased the caller's slice: %s", got)
	}

	if _, err := m.Get(ctx, "iron-grid-2.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1000, 0)
	m := NewMemoryExports(time.Minute)
	m.now = func() time.Time { return clock }

	if err := m.Put(ctx, "a.json", []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock = clock.Add(59 * time.Second)
	if _, err := m.Get(ctx, "a.json"); err != nil {
		t.Fatalf("export expired early: %v", err)
	}
	clock = clock.Add(time.Second)
	if _, err := m.Get(ctx, "a.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	if err := m.Put(ctx, "b.json", []byte("b")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := m.entries["a.json"]; ok {
		t.Fatal("expired entry should be swept on put")
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", "../secret", "a/b.json", `a\b.json`} {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
	if err := ValidateName("iron-grid-1700000000123.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := NewMemoryExports(0)
	if err := m.Put(context.Background(), "../x", nil); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("put should validate names, got %v", err)
	}
}
