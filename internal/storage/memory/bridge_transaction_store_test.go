package memory

import (
	"context"
	"testing"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

func testBridgeTx(id, address string, createdAt int64) *domain.BridgeTransaction {
	return &domain.BridgeTransaction{
		ID:        id,
		Address:   address,
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "USDC",
		Amount:    "1000000",
		FeeUSD:    1.25,
		Status:    domain.BridgePending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestBridgeTransactionStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewBridgeTransactionStore()

	tx := testBridgeTx("tx-1", "0xabc", 100)
	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Token != "USDC" || got.Status != domain.BridgePending {
		t.Errorf("unexpected transaction: %+v", got)
	}

	// Mutating the returned copy must not affect the store
	got.Status = domain.BridgeFailed
	again, _ := store.GetByID(ctx, "tx-1")
	if again.Status != domain.BridgePending {
		t.Error("store returned aliased memory")
	}
}

func TestBridgeTransactionStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewBridgeTransactionStore()

	tx := testBridgeTx("tx-1", "0xabc", 100)
	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, tx); err != storage.ErrDuplicateKey {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestBridgeTransactionStoreInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewBridgeTransactionStore()

	if err := store.Insert(ctx, nil); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.BridgeTransaction{}); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestBridgeTransactionStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewBridgeTransactionStore()

	if err := store.Insert(ctx, testBridgeTx("tx-1", "0xabc", 100)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.UpdateStatus(ctx, "tx-1", domain.BridgeConfirmed, "0xhash", 200); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "tx-1")
	if got.Status != domain.BridgeConfirmed || got.TxHash != "0xhash" || got.UpdatedAt != 200 {
		t.Errorf("unexpected transaction after update: %+v", got)
	}

	if err := store.UpdateStatus(ctx, "missing", domain.BridgeFailed, "", 300); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBridgeTransactionStoreGetByAddress(t *testing.T) {
	ctx := context.Background()
	store := NewBridgeTransactionStore()

	store.Insert(ctx, testBridgeTx("tx-1", "0xAbC", 100))
	store.Insert(ctx, testBridgeTx("tx-2", "0xabc", 300))
	store.Insert(ctx, testBridgeTx("tx-3", "0xabc", 200))
	store.Insert(ctx, testBridgeTx("tx-4", "0xother", 400))

	result, err := store.GetByAddress(ctx, "0xABC", 0)
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(result))
	}
	if result[0].ID != "tx-2" || result[1].ID != "tx-3" || result[2].ID != "tx-1" {
		t.Errorf("expected newest-first order, got %s %s %s", result[0].ID, result[1].ID, result[2].ID)
	}

	limited, _ := store.GetByAddress(ctx, "0xabc", 2)
	if len(limited) != 2 || limited[0].ID != "tx-2" {
		t.Errorf("limit not applied, got %d", len(limited))
	}
}
