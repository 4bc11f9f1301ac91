package memory

import (
	"context"
	"errors"
	"testing"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

func testCurve(mint string) *domain.Curve {
	return &domain.Curve{
		Mint:                  mint,
		Creator:               "creator123",
		SeedVirtualSol:        30_000_000_000,
		SeedVirtualToken:      1_073_000_000,
		VirtualSolLiquidity:   30_000_000_000,
		VirtualTokenLiquidity: 1_073_000_000,
		IsActive:              true,
		CreatedAt:             1704067200000,
		UpdatedAt:             1704067200000,
	}
}

func TestCurveStore_CreateAndGet(t *testing.T) {
	store := NewCurveStore()
	ctx := context.Background()

	if err := store.Create(ctx, testCurve("mint1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Creator != "creator123" {
		t.Errorf("Creator mismatch: got %s", got.Creator)
	}
	if !got.IsActive {
		t.Errorf("New curve should be active")
	}

	// Paired vault is created empty
	vault, err := store.GetVault(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetVault failed: %v", err)
	}
	if vault.Balance != 0 {
		t.Errorf("New vault balance = %d, want 0", vault.Balance)
	}
	if vault.Mint != "mint1" {
		t.Errorf("Vault mint = %s, want mint1", vault.Mint)
	}
}

func TestCurveStore_DuplicateMint(t *testing.T) {
	store := NewCurveStore()
	ctx := context.Background()

	if err := store.Create(ctx, testCurve("mint1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := store.Create(ctx, testCurve("mint1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestCurveStore_NotFound(t *testing.T) {
	store := NewCurveStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got %v", err)
	}
	if _, err := store.GetVault(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetVault, got %v", err)
	}
	err := store.Update(ctx, testCurve("nonexistent"), &domain.Vault{Mint: "nonexistent"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Update, got %v", err)
	}
}

func TestCurveStore_UpdatePair(t *testing.T) {
	store := NewCurveStore()
	ctx := context.Background()

	if err := store.Create(ctx, testCurve("mint1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	c, _ := store.Get(ctx, "mint1")
	v, _ := store.GetVault(ctx, "mint1")

	c.VirtualSolLiquidity += 500
	c.RealSolReserve += 500
	c.TokensSold += 42
	v.Balance += 500

	if err := store.Update(ctx, c, v); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	gotC, _ := store.Get(ctx, "mint1")
	gotV, _ := store.GetVault(ctx, "mint1")
	if gotC.RealSolReserve != 500 || gotV.Balance != 500 {
		t.Errorf("Pair not updated together: reserve=%d balance=%d", gotC.RealSolReserve, gotV.Balance)
	}
	if gotC.TokensSold != 42 {
		t.Errorf("TokensSold = %d, want 42", gotC.TokensSold)
	}
}

func TestCurveStore_UpdateMismatchedMint(t *testing.T) {
	store := NewCurveStore()
	ctx := context.Background()

	if err := store.Create(ctx, testCurve("mint1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	c, _ := store.Get(ctx, "mint1")
	err := store.Update(ctx, c, &domain.Vault{Mint: "mint2"})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for mismatched mints, got %v", err)
	}
}
