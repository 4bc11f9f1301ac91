package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

func testCurve(mint string) *domain.Curve {
	return &domain.Curve{
		Mint:                  mint,
		Creator:               "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		SeedVirtualSol:        30_000_000_000,
		SeedVirtualToken:      1_073_000_000,
		VirtualSolLiquidity:   30_000_000_000,
		VirtualTokenLiquidity: 1_073_000_000,
		RealSolReserve:        0,
		TokensSold:            0,
		IsActive:              true,
		CreatedAt:             1_700_000_000_000,
		UpdatedAt:             1_700_000_000_000,
	}
}

func TestCurveStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	c := testCurve("mint-create-1")
	require.NoError(t, store.Create(ctx, c))

	got, err := store.Get(ctx, "mint-create-1")
	require.NoError(t, err)
	assert.Equal(t, c.Mint, got.Mint)
	assert.Equal(t, c.Creator, got.Creator)
	assert.Equal(t, c.SeedVirtualSol, got.SeedVirtualSol)
	assert.Equal(t, c.SeedVirtualToken, got.SeedVirtualToken)
	assert.Equal(t, c.VirtualSolLiquidity, got.VirtualSolLiquidity)
	assert.Equal(t, c.VirtualTokenLiquidity, got.VirtualTokenLiquidity)
	assert.Equal(t, c.RealSolReserve, got.RealSolReserve)
	assert.Equal(t, c.TokensSold, got.TokensSold)
	assert.True(t, got.IsActive)
}

func TestCurveStore_CreateSeedsEmptyVault(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	require.NoError(t, store.Create(ctx, testCurve("mint-vault-1")))

	vault, err := store.GetVault(ctx, "mint-vault-1")
	require.NoError(t, err)
	assert.Equal(t, "mint-vault-1", vault.Mint)
	assert.Equal(t, uint64(0), vault.Balance)
}

func TestCurveStore_CreateDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	require.NoError(t, store.Create(ctx, testCurve("mint-dup-1")))

	err := store.Create(ctx, testCurve("mint-dup-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCurveStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	_, err := store.Get(ctx, "missing-mint")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetVault(ctx, "missing-mint")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCurveStore_UpdatePair(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	c := testCurve("mint-update-1")
	require.NoError(t, store.Create(ctx, c))

	c.VirtualSolLiquidity = 31_000_000_000
	c.VirtualTokenLiquidity = 1_038_387_097
	c.RealSolReserve = 1_000_000_000
	c.TokensSold = 34_612_903
	c.UpdatedAt = 1_700_000_050_000
	v := &domain.Vault{Mint: c.Mint, Balance: 1_000_000_000}

	require.NoError(t, store.Update(ctx, c, v))

	gotCurve, err := store.Get(ctx, c.Mint)
	require.NoError(t, err)
	assert.Equal(t, c.VirtualSolLiquidity, gotCurve.VirtualSolLiquidity)
	assert.Equal(t, c.VirtualTokenLiquidity, gotCurve.VirtualTokenLiquidity)
	assert.Equal(t, c.RealSolReserve, gotCurve.RealSolReserve)
	assert.Equal(t, c.TokensSold, gotCurve.TokensSold)
	assert.Equal(t, c.UpdatedAt, gotCurve.UpdatedAt)

	gotVault, err := store.GetVault(ctx, c.Mint)
	require.NoError(t, err)
	assert.Equal(t, gotCurve.RealSolReserve, gotVault.Balance)
}

func TestCurveStore_UpdateNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	c := testCurve("mint-ghost-1")
	v := &domain.Vault{Mint: c.Mint, Balance: 0}
	err := store.Update(ctx, c, v)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCurveStore_UpdateMintMismatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCurveStore(pool)

	c := testCurve("mint-a")
	require.NoError(t, store.Create(ctx, c))

	err := store.Update(ctx, c, &domain.Vault{Mint: "mint-b", Balance: 1})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
