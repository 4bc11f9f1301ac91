package domain

// SupplyCap is the maximum raw token units a curve ever sells.
// Reaching it deactivates the curve permanently.
const SupplyCap uint64 = 800_000_000

// Curve is the per-mint bonding curve record. Virtual reserves exist only
// for pricing and are never withdrawable; RealSolReserve tracks lamports
// actually collected from buyers and mirrors the paired vault balance.
// Quotes divide the fixed launch product SeedVirtualSol*SeedVirtualToken
// rather than the current reserve product, so truncation from earlier
// trades never compounds into a payout the escrow cannot cover.
type Curve struct {
	Mint                  string // base58 mint reference, unique per curve
	Creator               string // base58 identity entitled to withdraw
	SeedVirtualSol        uint64 // launch-time virtual SOL, fixes the pricing constant
	SeedVirtualToken      uint64 // launch-time virtual tokens, fixes the pricing constant
	VirtualSolLiquidity   uint64 // lamports, pricing state
	VirtualTokenLiquidity uint64 // raw token units, pricing state
	RealSolReserve        uint64 // lamports collected, <= vault balance
	TokensSold            uint64 // cumulative units issued, <= SupplyCap
	IsActive              bool   // false once TokensSold == SupplyCap, terminal
	CreatedAt             int64  // unix ms
	UpdatedAt             int64  // unix ms
}

// Clone returns a copy callers can mutate without affecting the stored record.
func (c *Curve) Clone() *Curve {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// RemainingSupply returns how many raw token units the curve may still sell.
func (c *Curve) RemainingSupply() uint64 {
	if c.TokensSold >= SupplyCap {
		return 0
	}
	return SupplyCap - c.TokensSold
}
