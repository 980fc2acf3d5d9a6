package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/medtrack/internal/database"
)

func setupKVTestDB(t *testing.T) *KVStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKVStore(db)
}

func TestKVGetNotFound(t *testing.T) {
	kv := setupKVTestDB(t)

	_, err := kv.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestKVPutGet(t *testing.T) {
	kv := setupKVTestDB(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("value = %q, want %q", got, "first")
	}

	// Overwrite
	if err := kv.Put(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	got, err = kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("value = %q, want %q", got, "second")
	}
}

func TestKVDelete(t *testing.T) {
	kv := setupKVTestDB(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}

func TestKVClosedDB(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	kv := NewKVStore(db)
	db.Close()

	if _, err := kv.Get(context.Background(), "k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("get on closed db: err = %v, want backend error", err)
	}
	if err := kv.Put(context.Background(), "k", []byte("v")); err == nil {
		t.Error("put on closed db: expected error, got nil")
	}
}
