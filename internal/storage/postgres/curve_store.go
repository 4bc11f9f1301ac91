package postgres

import (
	"context"
	"fmt"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// CurveStore implements storage.CurveStore using PostgreSQL.
// Curve and vault rows are created and updated inside one transaction with
// row locks, so the escrow invariant is never observable half-applied.
type CurveStore struct {
	pool *Pool
}

// NewCurveStore creates a new CurveStore.
func NewCurveStore(pool *Pool) *CurveStore {
	return &CurveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CurveStore = (*CurveStore)(nil)

// Create inserts a new curve with an empty paired vault.
func (s *CurveStore) Create(ctx context.Context, c *domain.Curve) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	curveQuery := `
		INSERT INTO curves (
			mint, creator, seed_virtual_sol, seed_virtual_token,
			virtual_sol_liquidity, virtual_token_liquidity,
			real_sol_reserve, tokens_sold, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, curveQuery,
		c.Mint, c.Creator, int64(c.SeedVirtualSol), int64(c.SeedVirtualToken),
		int64(c.VirtualSolLiquidity), int64(c.VirtualTokenLiquidity),
		int64(c.RealSolReserve), int64(c.TokensSold), c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert curve: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO vaults (mint, balance) VALUES ($1, 0)`, c.Mint); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vault: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a curve by mint.
func (s *CurveStore) Get(ctx context.Context, mint string) (*domain.Curve, error) {
	query := `
		SELECT mint, creator, seed_virtual_sol, seed_virtual_token,
		       virtual_sol_liquidity, virtual_token_liquidity,
		       real_sol_reserve, tokens_sold, is_active, created_at, updated_at
		FROM curves
		WHERE mint = $1
	`

	var c domain.Curve
	var seedVsol, seedVtok, vsol, vtok, reserve, sold int64
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&c.Mint, &c.Creator, &seedVsol, &seedVtok, &vsol, &vtok, &reserve, &sold,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select curve: %w", err)
	}
	c.SeedVirtualSol = uint64(seedVsol)
	c.SeedVirtualToken = uint64(seedVtok)
	c.VirtualSolLiquidity = uint64(vsol)
	c.VirtualTokenLiquidity = uint64(vtok)
	c.RealSolReserve = uint64(reserve)
	c.TokensSold = uint64(sold)
	return &c, nil
}

// GetVault retrieves the vault paired with the mint's curve.
func (s *CurveStore) GetVault(ctx context.Context, mint string) (*domain.Vault, error) {
	var v domain.Vault
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT mint, balance FROM vaults WHERE mint = $1`, mint).
		Scan(&v.Mint, &balance)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select vault: %w", err)
	}
	v.Balance = uint64(balance)
	return &v, nil
}

// Update persists the curve and its vault atomically.
func (s *CurveStore) Update(ctx context.Context, c *domain.Curve, v *domain.Vault) error {
	if c == nil || v == nil || c.Mint == "" || c.Mint != v.Mint {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both rows before writing.
	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM curves WHERE mint = $1 FOR UPDATE`, c.Mint).Scan(&one); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock curve: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT 1 FROM vaults WHERE mint = $1 FOR UPDATE`, c.Mint).Scan(&one); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock vault: %w", err)
	}

	curveQuery := `
		UPDATE curves
		SET virtual_sol_liquidity = $2, virtual_token_liquidity = $3,
		    real_sol_reserve = $4, tokens_sold = $5, is_active = $6, updated_at = $7
		WHERE mint = $1
	`
	if _, err := tx.Exec(ctx, curveQuery,
		c.Mint, int64(c.VirtualSolLiquidity), int64(c.VirtualTokenLiquidity),
		int64(c.RealSolReserve), int64(c.TokensSold), c.IsActive, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update curve: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE vaults SET balance = $2 WHERE mint = $1`, v.Mint, int64(v.Balance)); err != nil {
		return fmt.Errorf("update vault: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
