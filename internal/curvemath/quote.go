// Package curvemath implements the constant-product quote functions for
// bonding curves over virtual reserves. All amounts are u64 raw units and
// every quote divides the fixed invariant k established at launch, computed
// at full precision, so results are range-checked and the functions fail
// with domain.ErrArithmeticOverflow instead of wrapping.
//
// Dividing the launch invariant instead of the current reserve product
// keeps the reserve product at or below k forever: truncation from one
// trade never compounds into the next, a full buy-then-sell round trip
// returns at most its cost, and the escrow always covers every payout.
package curvemath

import (
	"math"
	"math/big"

	"solana-curve-engine/internal/domain"
)

// Invariant returns the pricing constant k for a curve launched with the
// given virtual reserves.
func Invariant(seedVsol, seedVtok uint64) *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(seedVsol),
		new(big.Int).SetUint64(seedVtok),
	)
}

// QuoteBuy returns the token units delivered for solIn lamports.
// Formula: tokensOut = vtok - floor(k / (vsol + solIn)).
// The quote can be zero for dust inputs once truncation has left the
// reserve product below k.
func QuoteBuy(k *big.Int, vsol, vtok, solIn uint64) (uint64, error) {
	if solIn == 0 || vsol == 0 || vtok == 0 || k == nil || k.Sign() <= 0 {
		return 0, domain.ErrInvalidInput
	}
	newVsol, err := checkedAdd(vsol, solIn)
	if err != nil {
		return 0, err
	}
	remaining, err := divFloor(k, newVsol)
	if err != nil {
		return 0, err
	}
	if remaining > vtok {
		// k does not belong to these reserves.
		return 0, domain.ErrInvalidInput
	}
	return vtok - remaining, nil
}

// QuoteSell returns the lamports paid out for tokIn token units.
// Formula: solOut = vsol - floor(k / (vtok + tokIn)).
func QuoteSell(k *big.Int, vsol, vtok, tokIn uint64) (uint64, error) {
	if tokIn == 0 || vsol == 0 || vtok == 0 || k == nil || k.Sign() <= 0 {
		return 0, domain.ErrInvalidInput
	}
	newVtok, err := checkedAdd(vtok, tokIn)
	if err != nil {
		return 0, err
	}
	remaining, err := divFloor(k, newVtok)
	if err != nil {
		return 0, err
	}
	if remaining > vsol {
		return 0, domain.ErrInvalidInput
	}
	return vsol - remaining, nil
}

// BuyCostForTokens is the inverse of QuoteBuy: the lamports required to buy
// exactly tokensOut units. The division rounds up so the curve is never
// under-collateralized. Used to reprice a buy clamped at the supply cap.
// Formula: solIn = ceil(k / (vtok - tokensOut)) - vsol.
func BuyCostForTokens(k *big.Int, vsol, vtok, tokensOut uint64) (uint64, error) {
	if tokensOut == 0 || vsol == 0 || vtok == 0 || k == nil || k.Sign() <= 0 {
		return 0, domain.ErrInvalidInput
	}
	if tokensOut >= vtok {
		// The curve can never deliver its entire virtual token liquidity.
		return 0, domain.ErrInvalidInput
	}
	required, err := divCeil(k, vtok-tokensOut)
	if err != nil {
		return 0, err
	}
	if required <= vsol {
		return 0, nil
	}
	return required - vsol, nil
}

// checkedAdd adds two u64 amounts, failing instead of wrapping.
func checkedAdd(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, domain.ErrArithmeticOverflow
	}
	return a + b, nil
}

// divFloor computes floor(k/den). Fails if the quotient does not fit in u64.
func divFloor(k *big.Int, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrInvalidInput
	}
	q := new(big.Int).Quo(k, new(big.Int).SetUint64(den))
	if !q.IsUint64() {
		return 0, domain.ErrArithmeticOverflow
	}
	return q.Uint64(), nil
}

// divCeil computes ceil(k/den). Fails if the quotient does not fit in u64.
func divCeil(k *big.Int, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrInvalidInput
	}
	d := new(big.Int).SetUint64(den)
	q, r := new(big.Int).QuoRem(k, d, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsUint64() {
		return 0, domain.ErrArithmeticOverflow
	}
	return q.Uint64(), nil
}
