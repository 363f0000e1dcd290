package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
	"apyhub/internal/storage/postgres"
)

func createTestBridgeTx(id, address string, createdAt int64) *domain.BridgeTransaction {
	return &domain.BridgeTransaction{
		ID:        id,
		IntentID:  "intent-" + id,
		Address:   address,
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "USDC",
		Amount:    "250.50",
		FeeUSD:    1.1275,
		Status:    domain.BridgePending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestBridgeTransactionStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBridgeTransactionStore(pool)

	tx := createTestBridgeTx("tx-001", "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", 1700000000000)
	require.NoError(t, store.Insert(ctx, tx))

	retrieved, err := store.GetByID(ctx, "tx-001")
	require.NoError(t, err)

	assert.Equal(t, tx.ID, retrieved.ID)
	assert.Equal(t, tx.IntentID, retrieved.IntentID)
	assert.Equal(t, tx.Address, retrieved.Address)
	assert.Equal(t, tx.FromChain, retrieved.FromChain)
	assert.Equal(t, tx.ToChain, retrieved.ToChain)
	assert.Equal(t, tx.Token, retrieved.Token)
	assert.Equal(t, tx.Amount, retrieved.Amount)
	assert.InDelta(t, tx.FeeUSD, retrieved.FeeUSD, 0.0001)
	assert.Equal(t, domain.BridgePending, retrieved.Status)
	assert.Equal(t, tx.CreatedAt, retrieved.CreatedAt)
}

func TestBridgeTransactionStore_DuplicateInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBridgeTransactionStore(pool)

	tx := createTestBridgeTx("tx-001", "0xabc", 100)
	require.NoError(t, store.Insert(ctx, tx))

	err := store.Insert(ctx, tx)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBridgeTransactionStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewBridgeTransactionStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBridgeTransactionStore_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBridgeTransactionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestBridgeTx("tx-001", "0xabc", 100)))

	err := store.UpdateStatus(ctx, "tx-001", domain.BridgeConfirmed, "0xdeadbeef", 200)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "tx-001")
	require.NoError(t, err)
	assert.Equal(t, domain.BridgeConfirmed, retrieved.Status)
	assert.Equal(t, "0xdeadbeef", retrieved.TxHash)
	assert.Equal(t, int64(200), retrieved.UpdatedAt)

	// Empty hash keeps the stored one
	require.NoError(t, store.UpdateStatus(ctx, "tx-001", domain.BridgeCompleted, "", 300))
	retrieved, err = store.GetByID(ctx, "tx-001")
	require.NoError(t, err)
	assert.Equal(t, domain.BridgeCompleted, retrieved.Status)
	assert.Equal(t, "0xdeadbeef", retrieved.TxHash)

	err = store.UpdateStatus(ctx, "missing", domain.BridgeFailed, "", 400)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBridgeTransactionStore_GetByAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBridgeTransactionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestBridgeTx("tx-1", "0xAbC", 100)))
	require.NoError(t, store.Insert(ctx, createTestBridgeTx("tx-2", "0xabc", 300)))
	require.NoError(t, store.Insert(ctx, createTestBridgeTx("tx-3", "0xabc", 200)))
	require.NoError(t, store.Insert(ctx, createTestBridgeTx("tx-4", "0xother", 400)))

	// Case-insensitive match, newest first
	result, err := store.GetByAddress(ctx, "0xABC", 0)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "tx-2", result[0].ID)
	assert.Equal(t, "tx-3", result[1].ID)
	assert.Equal(t, "tx-1", result[2].ID)

	limited, err := store.GetByAddress(ctx, "0xabc", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "tx-2", limited[0].ID)

	empty, err := store.GetByAddress(ctx, "0xunknown", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
