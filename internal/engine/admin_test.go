package engine

import (
	"context"
	"errors"
	"testing"

	"solana-curve-engine/internal/domain"
)

func TestInitProtocol(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	p, err := e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100)
	if err != nil {
		t.Fatalf("InitProtocol() error = %v", err)
	}
	if p.Authority != testAuthority || p.Paused {
		t.Errorf("unexpected protocol record: %+v", p)
	}

	// Exactly once.
	_, err = e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100)
	if !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Errorf("second init: error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitProtocolValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.InitProtocol(ctx, "bogus", 30, 1_000_000_000, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad authority: error = %v, want ErrInvalidInput", err)
	}
	if _, err := e.InitProtocol(ctx, testAuthority, 0, 1_000_000_000, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero virtual sol: error = %v, want ErrInvalidInput", err)
	}
	// Token liquidity at or under the supply cap leaves no room to price
	// a clamped buy.
	if _, err := e.InitProtocol(ctx, testAuthority, 30, domain.SupplyCap, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("token liquidity at cap: error = %v, want ErrInvalidInput", err)
	}
	if _, err := e.InitProtocol(ctx, testAuthority, 30, 1_000_000_000, 10_001); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("fee over 100%%: error = %v, want ErrInvalidInput", err)
	}
}

func TestLaunchCoin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Launching before init fails.
	_, err := e.LaunchCoin(ctx, testCreator, testMint, 0, 0)
	if !errors.Is(err, domain.ErrProtocolNotInitialized) {
		t.Fatalf("launch before init: error = %v, want ErrProtocolNotInitialized", err)
	}

	if _, err := e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100); err != nil {
		t.Fatalf("InitProtocol() error = %v", err)
	}

	curve, err := e.LaunchCoin(ctx, testCreator, testMint, 0, 0)
	if err != nil {
		t.Fatalf("LaunchCoin() error = %v", err)
	}
	if curve.VirtualSolLiquidity != 30_000_000_000 || curve.VirtualTokenLiquidity != 1_073_000_000 {
		t.Errorf("defaults not applied: %+v", curve)
	}
	if curve.SeedVirtualSol != curve.VirtualSolLiquidity || curve.SeedVirtualToken != curve.VirtualTokenLiquidity {
		t.Errorf("seed reserves differ from launch reserves: %+v", curve)
	}
	if !curve.IsActive || curve.TokensSold != 0 || curve.RealSolReserve != 0 {
		t.Errorf("unexpected launch state: %+v", curve)
	}

	// The paired vault exists and is empty.
	vault, err := e.Vault(ctx, testMint)
	if err != nil {
		t.Fatalf("Vault() error = %v", err)
	}
	if vault.Balance != 0 {
		t.Errorf("vault balance = %d, want 0", vault.Balance)
	}

	// One curve per mint.
	_, err = e.LaunchCoin(ctx, testCreator, testMint, 0, 0)
	if !errors.Is(err, domain.ErrDuplicateLaunch) {
		t.Errorf("duplicate launch: error = %v, want ErrDuplicateLaunch", err)
	}

	// Seed overrides are honored.
	curve, err = e.LaunchCoin(ctx, testCreator, testMint2, 42_000_000_000, 2_000_000_000)
	if err != nil {
		t.Fatalf("LaunchCoin() with overrides error = %v", err)
	}
	if curve.VirtualSolLiquidity != 42_000_000_000 || curve.VirtualTokenLiquidity != 2_000_000_000 {
		t.Errorf("overrides not applied: %+v", curve)
	}
}

func TestLaunchCoinPaused(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100); err != nil {
		t.Fatalf("InitProtocol() error = %v", err)
	}
	if err := e.SetPaused(ctx, testAuthority, true); err != nil {
		t.Fatalf("SetPaused() error = %v", err)
	}

	_, err := e.LaunchCoin(ctx, testCreator, testMint, 0, 0)
	if !errors.Is(err, domain.ErrProtocolPaused) {
		t.Errorf("launch while paused: error = %v, want ErrProtocolPaused", err)
	}

	if err := e.SetPaused(ctx, testAuthority, false); err != nil {
		t.Fatalf("SetPaused(false) error = %v", err)
	}
	if _, err := e.LaunchCoin(ctx, testCreator, testMint, 0, 0); err != nil {
		t.Errorf("launch after unpause: error = %v", err)
	}
}

func TestPauseDoesNotBlockTrades(t *testing.T) {
	e := newTestEngine(t)
	launchTestCurve(t, e, 30_000_000_000, 1_073_000_000)
	ctx := context.Background()

	if err := e.SetPaused(ctx, testAuthority, true); err != nil {
		t.Fatalf("SetPaused() error = %v", err)
	}

	if _, err := e.Buy(ctx, testTrader, testMint, 1_000_000_000, 0); err != nil {
		t.Errorf("buy while paused: error = %v", err)
	}
	if _, err := e.Sell(ctx, testTrader, testMint, 1_000_000, 0); err != nil {
		t.Errorf("sell while paused: error = %v", err)
	}
}

func TestSetPausedAuthorization(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.SetPaused(ctx, testAuthority, true); !errors.Is(err, domain.ErrProtocolNotInitialized) {
		t.Errorf("pause before init: error = %v, want ErrProtocolNotInitialized", err)
	}

	if _, err := e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100); err != nil {
		t.Fatalf("InitProtocol() error = %v", err)
	}

	if err := e.SetPaused(ctx, testTrader, true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("pause by non-authority: error = %v, want ErrUnauthorized", err)
	}
	p, err := e.Protocol(ctx)
	if err != nil {
		t.Fatalf("Protocol() error = %v", err)
	}
	if p.Paused {
		t.Error("pause flag set by unauthorized caller")
	}
}

func TestUpdateDefaults(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.InitProtocol(ctx, testAuthority, 30_000_000_000, 1_073_000_000, 100); err != nil {
		t.Fatalf("InitProtocol() error = %v", err)
	}

	if err := e.UpdateDefaults(ctx, testTrader, 40_000_000_000, 2_000_000_000, 50); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("update by non-authority: error = %v, want ErrUnauthorized", err)
	}

	if err := e.UpdateDefaults(ctx, testAuthority, 40_000_000_000, 2_000_000_000, 50); err != nil {
		t.Fatalf("UpdateDefaults() error = %v", err)
	}
	p, err := e.Protocol(ctx)
	if err != nil {
		t.Fatalf("Protocol() error = %v", err)
	}
	if p.DefaultVirtualSol != 40_000_000_000 || p.DefaultVirtualToken != 2_000_000_000 || p.FeeBasisPoints != 50 {
		t.Errorf("defaults not updated: %+v", p)
	}

	// New launches pick up the new defaults.
	curve, err := e.LaunchCoin(ctx, testCreator, testMint, 0, 0)
	if err != nil {
		t.Fatalf("LaunchCoin() error = %v", err)
	}
	if curve.VirtualSolLiquidity != 40_000_000_000 {
		t.Errorf("launch used stale defaults: %+v", curve)
	}
}

func TestWithdrawFunds(t *testing.T) {
	e := newTestEngine(t)
	launchTestCurve(t, e, 30_000_000_000, 1_073_000_000)
	ctx := context.Background()

	if _, err := e.Buy(ctx, testTrader, testMint, 1_000_000_000, 0); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	// Only the creator may withdraw, and a failed attempt changes nothing.
	err := e.WithdrawFunds(ctx, testTrader, testMint, 100)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("withdraw by non-creator: error = %v, want ErrUnauthorized", err)
	}
	vault, err := e.Vault(ctx, testMint)
	if err != nil {
		t.Fatalf("Vault() error = %v", err)
	}
	if vault.Balance != 1_000_000_000 {
		t.Errorf("vault balance = %d after rejected withdrawal, want 1000000000", vault.Balance)
	}

	if err := e.WithdrawFunds(ctx, testCreator, testMint, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero amount: error = %v, want ErrInvalidInput", err)
	}
	if err := e.WithdrawFunds(ctx, testCreator, testMint, 2_000_000_000); !errors.Is(err, domain.ErrInsufficientEscrow) {
		t.Errorf("over-withdrawal: error = %v, want ErrInsufficientEscrow", err)
	}

	if err := e.WithdrawFunds(ctx, testCreator, testMint, 400_000_000); err != nil {
		t.Fatalf("WithdrawFunds() error = %v", err)
	}
	checkEscrowConsistency(t, e)
	vault, err = e.Vault(ctx, testMint)
	if err != nil {
		t.Fatalf("Vault() error = %v", err)
	}
	if vault.Balance != 600_000_000 {
		t.Errorf("vault balance = %d, want 600000000", vault.Balance)
	}
}

func TestWithdrawAfterDeactivation(t *testing.T) {
	e := newTestEngine(t)
	launchTestCurve(t, e, 30_000_000_000, 1_073_000_000)
	ctx := context.Background()

	// Drive the curve to the cap.
	res, err := e.Buy(ctx, testTrader, testMint, 500_000_000_000, 0)
	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}
	curve, err := e.Curve(ctx, testMint)
	if err != nil {
		t.Fatalf("Curve() error = %v", err)
	}
	if curve.IsActive {
		t.Fatal("curve still active after cap")
	}

	// Withdrawal stays legal on a deactivated curve.
	if err := e.WithdrawFunds(ctx, testCreator, testMint, res.AmountIn); err != nil {
		t.Fatalf("withdraw after deactivation: error = %v", err)
	}
	checkEscrowConsistency(t, e)
}
