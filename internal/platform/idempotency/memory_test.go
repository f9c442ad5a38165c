package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreReservationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	res, err := store.Reserve(ctx, "order-1", "fp", now, time.Hour)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected new reservation, got %+v (%v)", res, err)
	}
	if res, _ = store.Reserve(ctx, "order-1", "fp", now, time.Hour); res.State != ReservationStatePending {
		t.Fatalf("expected pending reservation, got %v", res.State)
	}
	if _, err := store.Reserve(ctx, "order-1", "other", now, time.Hour); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected fingerprint mismatch, got %v", err)
	}

	if err := store.SaveResponse(ctx, "order-1", "fp", Response{Status: 201, Body: []byte(`{}`)}, now, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, _ = store.Reserve(ctx, "order-1", "fp", now.Add(time.Minute), time.Hour)
	if res.State != ReservationStateCompleted || res.Record.ResponseStatus != 201 {
		t.Fatalf("expected completed replay, got %+v", res)
	}

	if res, _ = store.Reserve(ctx, "order-1", "other", now.Add(2*time.Hour), time.Hour); res.State != ReservationStateNew {
		t.Fatalf("expected expired key to be reusable, got %v", res.State)
	}
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, _ = store.Reserve(ctx, "short", "fp", now, time.Minute)
	_, _ = store.Reserve(ctx, "long", "fp", now, time.Hour)

	if purged := store.PurgeExpired(now.Add(10 * time.Minute)); purged != 1 {
		t.Fatalf("expected one purged record, got %d", purged)
	}
	if err := store.Release(ctx, "long"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if purged := store.PurgeExpired(now.Add(2 * time.Hour)); purged != 0 {
		t.Fatalf("expected empty store, got %d purged", purged)
	}
}
