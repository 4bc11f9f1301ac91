// Package main drives a randomized buy/sell sequence against an in-memory
// engine and verifies the curve invariants after every trade. Useful for
// shaking out arithmetic edge cases without a database or HTTP stack.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"os"
	"time"

	"solana-curve-engine/internal/curvemath"
	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/engine"
	"solana-curve-engine/internal/storage/memory"
)

var traderKeys = []string{
	"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
	"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
	"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
}

const (
	simAuthority = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	simCreator   = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	simMint      = "So11111111111111111111111111111111111111112"
)

// summary is the run report printed at the end.
type summary struct {
	Trades         int    `json:"trades"`
	Buys           int    `json:"buys"`
	Sells          int    `json:"sells"`
	Rejected       int    `json:"rejected"`
	DustRejected   int    `json:"dust_rejected"`
	InactiveAfter  int    `json:"inactive_after"`
	CapReached     bool   `json:"cap_reached"`
	TokensSold     uint64 `json:"tokens_sold"`
	RealSolReserve uint64 `json:"real_sol_reserve"`
	VaultBalance   uint64 `json:"vault_balance"`
	DurationMs     int64  `json:"duration_ms"`
	Seed           int64  `json:"seed"`
}

func main() {
	steps := flag.Int("steps", 10_000, "Number of trade attempts")
	seed := flag.Int64("seed", time.Now().UnixNano(), "PRNG seed (default: current time)")
	launchVSol := flag.Uint64("launch-vsol", 30_000_000_000, "Seed virtual SOL liquidity (lamports)")
	launchVTok := flag.Uint64("launch-vtok", 1_073_000_000, "Seed virtual token liquidity (raw units)")
	maxBuy := flag.Uint64("max-buy", 5_000_000_000, "Maximum lamports per buy")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	eng, err := engine.New(ctx, engine.Config{
		Protocols: memory.NewProtocolStore(),
		Curves:    memory.NewCurveStore(),
		Trades:    memory.NewTradeLogStore(),
	})
	if err != nil {
		logger.Fatalf("create engine: %v", err)
	}

	if _, err := eng.InitProtocol(ctx, simAuthority, *launchVSol, *launchVTok, 0); err != nil {
		logger.Fatalf("init protocol: %v", err)
	}
	if _, err := eng.LaunchCoin(ctx, simCreator, simMint, 0, 0); err != nil {
		logger.Fatalf("launch coin: %v", err)
	}

	k := curvemath.Invariant(*launchVSol, *launchVTok)
	holdings := make(map[string]uint64)
	sum := summary{Seed: *seed}
	start := time.Now()

	logger.Printf("Running %d steps: launch=(%d, %d) seed=%d", *steps, *launchVSol, *launchVTok, *seed)

	for i := 0; i < *steps; i++ {
		trader := traderKeys[rng.Intn(len(traderKeys))]
		sum.Trades++

		// Sell roughly a third of the time, when the trader holds anything.
		if rng.Intn(3) == 0 && holdings[trader] > 0 {
			amount := uint64(rng.Int63n(int64(holdings[trader]))) + 1
			res, err := eng.Sell(ctx, trader, simMint, amount, 0)
			switch {
			case err == nil:
				sum.Sells++
				holdings[trader] -= res.AmountIn
			case errors.Is(err, domain.ErrInvalidInput):
				sum.DustRejected++
			case errors.Is(err, domain.ErrCurveInactive):
				sum.InactiveAfter++
			case errors.Is(err, domain.ErrInsufficientEscrow):
				logger.Fatalf("step %d: escrow guard tripped selling held tokens: %v", i, err)
			default:
				sum.Rejected++
			}
		} else {
			amount := uint64(rng.Int63n(int64(*maxBuy))) + 1
			res, err := eng.Buy(ctx, trader, simMint, amount, 0)
			switch {
			case err == nil:
				sum.Buys++
				holdings[trader] += res.AmountOut
			case errors.Is(err, domain.ErrInvalidInput):
				sum.DustRejected++
			case errors.Is(err, domain.ErrCurveInactive):
				sum.InactiveAfter++
			default:
				sum.Rejected++
			}
		}

		if err := checkInvariants(ctx, eng, k); err != nil {
			logger.Fatalf("step %d: invariant violated: %v", i, err)
		}
	}

	curve, err := eng.Curve(ctx, simMint)
	if err != nil {
		logger.Fatalf("read curve: %v", err)
	}
	vault, err := eng.Vault(ctx, simMint)
	if err != nil {
		logger.Fatalf("read vault: %v", err)
	}
	sum.CapReached = !curve.IsActive
	sum.TokensSold = curve.TokensSold
	sum.RealSolReserve = curve.RealSolReserve
	sum.VaultBalance = vault.Balance
	sum.DurationMs = time.Since(start).Milliseconds()

	if *outputJSON {
		out, _ := json.MarshalIndent(sum, "", "  ")
		fmt.Println(string(out))
	} else {
		printSummary(&sum)
	}
}

// checkInvariants verifies the structural invariants that must hold after
// every committed trade.
func checkInvariants(ctx context.Context, eng *engine.Engine, k *big.Int) error {
	curve, err := eng.Curve(ctx, simMint)
	if err != nil {
		return fmt.Errorf("read curve: %w", err)
	}
	vault, err := eng.Vault(ctx, simMint)
	if err != nil {
		return fmt.Errorf("read vault: %w", err)
	}

	product := new(big.Int).Mul(
		new(big.Int).SetUint64(curve.VirtualSolLiquidity),
		new(big.Int).SetUint64(curve.VirtualTokenLiquidity),
	)
	// A clamped cap-crossing buy reprices above the launch product and
	// deactivates the curve in the same operation, so only active curves
	// are held to the bound.
	if curve.IsActive && product.Cmp(k) > 0 {
		return fmt.Errorf("reserve product %s exceeds launch invariant %s", product, k)
	}
	if vault.Balance != curve.RealSolReserve {
		return fmt.Errorf("vault balance %d != real reserve %d", vault.Balance, curve.RealSolReserve)
	}
	if curve.TokensSold > domain.SupplyCap {
		return fmt.Errorf("tokens sold %d exceeds supply cap", curve.TokensSold)
	}
	if curve.TokensSold == domain.SupplyCap && curve.IsActive {
		return fmt.Errorf("curve still active at supply cap")
	}
	return nil
}

func printSummary(s *summary) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Trades attempted:   %d\n", s.Trades)
	fmt.Printf("Buys executed:      %d\n", s.Buys)
	fmt.Printf("Sells executed:     %d\n", s.Sells)
	fmt.Printf("Dust rejected:      %d\n", s.DustRejected)
	fmt.Printf("Inactive rejected:  %d\n", s.InactiveAfter)
	fmt.Printf("Other rejected:     %d\n", s.Rejected)
	fmt.Println()
	fmt.Printf("Cap reached:        %v\n", s.CapReached)
	fmt.Printf("Tokens sold:        %d\n", s.TokensSold)
	fmt.Printf("Real SOL reserve:   %d\n", s.RealSolReserve)
	fmt.Printf("Vault balance:      %d\n", s.VaultBalance)
	fmt.Println()
	fmt.Printf("Duration:           %dms\n", s.DurationMs)
	fmt.Printf("Seed:               %d\n", s.Seed)
}
