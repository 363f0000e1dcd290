package memory

import (
	"context"
	"testing"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

func TestAPYHistoryStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewAPYHistoryStore()

	points := []*domain.APYPoint{
		{PoolID: "p1", APY: 5.0, TVLUsd: 1_000_000, TimestampMs: 300},
		{PoolID: "p1", APY: 4.0, TVLUsd: 900_000, TimestampMs: 100},
		{PoolID: "p1", APY: 4.5, TVLUsd: 950_000, TimestampMs: 200},
		{PoolID: "p2", APY: 12.0, TVLUsd: 50_000, TimestampMs: 100},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByPoolID(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("GetByPoolID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	if got[0].TimestampMs != 100 || got[2].TimestampMs != 300 {
		t.Errorf("expected ascending order, got %d..%d", got[0].TimestampMs, got[2].TimestampMs)
	}
}

func TestAPYHistoryStoreLimitKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store := NewAPYHistoryStore()

	store.InsertBulk(ctx, []*domain.APYPoint{
		{PoolID: "p1", APY: 1, TimestampMs: 100},
		{PoolID: "p1", APY: 2, TimestampMs: 200},
		{PoolID: "p1", APY: 3, TimestampMs: 300},
	})

	got, _ := store.GetByPoolID(ctx, "p1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].TimestampMs != 200 || got[1].TimestampMs != 300 {
		t.Errorf("limit must keep the newest points, got %d, %d", got[0].TimestampMs, got[1].TimestampMs)
	}
}

func TestAPYHistoryStoreUnknownPool(t *testing.T) {
	store := NewAPYHistoryStore()
	got, err := store.GetByPoolID(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("GetByPoolID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestAPYHistoryStoreInvalidInput(t *testing.T) {
	store := NewAPYHistoryStore()
	err := store.InsertBulk(context.Background(), []*domain.APYPoint{{APY: 5}})
	if err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
