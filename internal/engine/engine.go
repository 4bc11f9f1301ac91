// Package engine implements the bonding-curve trade engine: quoting and
// executing buys and sells against per-mint curves, enforcing the supply
// cap, and keeping the escrow vault equal to the curve's real reserve.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solana-curve-engine/internal/curvemath"
	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/observability"
	"solana-curve-engine/internal/storage"
)

// Publisher broadcasts executed trades to feed subscribers.
type Publisher interface {
	Publish(e *domain.TradeEvent)
}

// Config wires the engine's stores and optional sinks.
type Config struct {
	Protocols storage.ProtocolStore
	Curves    storage.CurveStore
	Trades    storage.TradeLogStore   // optional, best-effort trade log
	Feed      Publisher               // optional
	Metrics   *observability.Metrics  // optional
	Logger    *zap.Logger             // optional, defaults to no-op
}

// Engine executes all curve mutations. A per-mint mutex serializes
// mutations for one curve; distinct mints proceed in parallel.
type Engine struct {
	protocols storage.ProtocolStore
	curves    storage.CurveStore
	trades    storage.TradeLogStore
	feed      Publisher
	metrics   *observability.Metrics
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	protoMu sync.Mutex
	seq     atomic.Uint64
	nowFn   func() int64
}

// New creates an engine over the given stores. When a trade log is
// configured the sequence counter resumes from the highest logged value,
// so trade IDs stay unique across restarts.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Protocols == nil || cfg.Curves == nil {
		return nil, errors.New("engine: protocol and curve stores are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		protocols: cfg.Protocols,
		curves:    cfg.Curves,
		trades:    cfg.Trades,
		feed:      cfg.Feed,
		metrics:   cfg.Metrics,
		log:       logger,
		locks:     make(map[string]*sync.Mutex),
		nowFn:     func() int64 { return time.Now().UnixMilli() },
	}
	if cfg.Trades != nil {
		maxSeq, err := cfg.Trades.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("recover trade sequence: %w", err)
		}
		e.seq.Store(maxSeq)
	}
	return e, nil
}

// SetNowFunc overrides the time source. Intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().UnixMilli() }
		return
	}
	e.nowFn = now
}

// mintLock returns the mutex serializing mutations for one mint.
func (e *Engine) mintLock(mint string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.locks[mint]
	if !ok {
		m = &sync.Mutex{}
		e.locks[mint] = m
	}
	return m
}

// Trade dispatches to Buy or Sell by direction.
func (e *Engine) Trade(ctx context.Context, caller, mint string, direction domain.Direction, amountIn, minAmountOut uint64) (*domain.TradeResult, error) {
	switch direction {
	case domain.DirectionBuy:
		return e.Buy(ctx, caller, mint, amountIn, minAmountOut)
	case domain.DirectionSell:
		return e.Sell(ctx, caller, mint, amountIn, minAmountOut)
	default:
		return nil, domain.ErrInvalidInput
	}
}

// Buy spends solIn lamports on the mint's curve. When the quoted amount
// would cross the supply cap, the buy is clamped to the remaining supply,
// repriced with the inverse quote, and the difference refunded. The curve
// deactivates exactly when TokensSold reaches the cap.
func (e *Engine) Buy(ctx context.Context, caller, mint string, solIn, minTokensOut uint64) (*domain.TradeResult, error) {
	start := time.Now()
	res, err := e.buy(ctx, caller, mint, solIn, minTokensOut)
	e.observeTrade(domain.DirectionBuy, start, err)
	return res, err
}

func (e *Engine) buy(ctx context.Context, caller, mint string, solIn, minTokensOut uint64) (*domain.TradeResult, error) {
	if err := domain.ValidateAddress(caller); err != nil {
		return nil, err
	}
	if mint == "" || solIn == 0 {
		return nil, domain.ErrInvalidInput
	}

	lock := e.mintLock(mint)
	lock.Lock()
	defer lock.Unlock()

	curve, vault, err := e.loadPair(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !curve.IsActive {
		return nil, domain.ErrCurveInactive
	}

	k := curvemath.Invariant(curve.SeedVirtualSol, curve.SeedVirtualToken)
	quoted, err := curvemath.QuoteBuy(k, curve.VirtualSolLiquidity, curve.VirtualTokenLiquidity, solIn)
	if err != nil {
		return nil, err
	}
	if quoted == 0 {
		// Dust input rounds to zero tokens; taking the lamports anyway
		// would charge the buyer for nothing.
		return nil, domain.ErrInvalidInput
	}

	tokensOut := quoted
	solSpent := solIn
	var refund uint64
	if remaining := curve.RemainingSupply(); tokensOut > remaining {
		// Clamp at the cap and reprice: the buyer pays only for the
		// tokens actually delivered and the rest comes back.
		tokensOut = remaining
		solSpent, err = curvemath.BuyCostForTokens(k, curve.VirtualSolLiquidity, curve.VirtualTokenLiquidity, tokensOut)
		if err != nil {
			return nil, err
		}
		refund = solIn - solSpent
	}

	if tokensOut < minTokensOut {
		return nil, domain.ErrSlippageExceeded
	}

	newVsol, err := checkedAdd(curve.VirtualSolLiquidity, solSpent)
	if err != nil {
		return nil, err
	}
	newReserve, err := checkedAdd(curve.RealSolReserve, solSpent)
	if err != nil {
		return nil, err
	}
	newBalance, err := checkedAdd(vault.Balance, solSpent)
	if err != nil {
		return nil, err
	}

	now := e.nowFn()
	curve.VirtualSolLiquidity = newVsol
	curve.VirtualTokenLiquidity -= tokensOut
	curve.RealSolReserve = newReserve
	curve.TokensSold += tokensOut
	curve.UpdatedAt = now
	vault.Balance = newBalance

	deactivated := false
	if curve.TokensSold >= domain.SupplyCap {
		curve.IsActive = false
		deactivated = true
	}

	if err := e.curves.Update(ctx, curve, vault); err != nil {
		return nil, fmt.Errorf("persist buy: %w", mapStorageErr(err))
	}

	result := &domain.TradeResult{
		Mint:      mint,
		Direction: domain.DirectionBuy,
		AmountIn:  solSpent,
		AmountOut: tokensOut,
		Refund:    refund,
	}
	result.TradeID = e.record(ctx, caller, curve, result, now)

	if deactivated {
		if e.metrics != nil {
			e.metrics.CurvesDeactivated.Inc()
		}
		e.log.Info("curve deactivated at supply cap",
			zap.String("mint", mint),
			zap.Uint64("tokens_sold", curve.TokensSold))
	}
	if refund > 0 && e.metrics != nil {
		e.metrics.RefundsIssued.Inc()
		e.metrics.RefundLamports.Add(float64(refund))
	}
	e.log.Debug("buy executed",
		zap.String("mint", mint),
		zap.String("caller", caller),
		zap.Uint64("sol_in", solIn),
		zap.Uint64("sol_spent", solSpent),
		zap.Uint64("tokens_out", tokensOut),
		zap.Uint64("refund", refund))
	return result, nil
}

// Sell returns tokensIn units to the mint's curve for lamports. Selling is
// rejected once the curve is deactivated.
func (e *Engine) Sell(ctx context.Context, caller, mint string, tokensIn, minSolOut uint64) (*domain.TradeResult, error) {
	start := time.Now()
	res, err := e.sell(ctx, caller, mint, tokensIn, minSolOut)
	e.observeTrade(domain.DirectionSell, start, err)
	return res, err
}

func (e *Engine) sell(ctx context.Context, caller, mint string, tokensIn, minSolOut uint64) (*domain.TradeResult, error) {
	if err := domain.ValidateAddress(caller); err != nil {
		return nil, err
	}
	if mint == "" || tokensIn == 0 {
		return nil, domain.ErrInvalidInput
	}

	lock := e.mintLock(mint)
	lock.Lock()
	defer lock.Unlock()

	curve, vault, err := e.loadPair(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !curve.IsActive {
		return nil, domain.ErrCurveInactive
	}

	k := curvemath.Invariant(curve.SeedVirtualSol, curve.SeedVirtualToken)
	solOut, err := curvemath.QuoteSell(k, curve.VirtualSolLiquidity, curve.VirtualTokenLiquidity, tokensIn)
	if err != nil {
		return nil, err
	}
	if solOut == 0 {
		// Dust sale rounds to zero lamports; taking the tokens anyway
		// would burn them for nothing.
		return nil, domain.ErrInvalidInput
	}
	if solOut < minSolOut {
		return nil, domain.ErrSlippageExceeded
	}
	if solOut > curve.RealSolReserve || solOut > vault.Balance {
		// The floor rounding on buys guarantees every payout is covered,
		// so reaching this means the escrow invariant was broken.
		e.log.Error("sell payout exceeds escrow",
			zap.String("mint", mint),
			zap.Uint64("sol_out", solOut),
			zap.Uint64("real_reserve", curve.RealSolReserve),
			zap.Uint64("vault_balance", vault.Balance))
		return nil, domain.ErrInsufficientEscrow
	}

	newVtok, err := checkedAdd(curve.VirtualTokenLiquidity, tokensIn)
	if err != nil {
		return nil, err
	}

	now := e.nowFn()
	curve.VirtualSolLiquidity -= solOut
	curve.VirtualTokenLiquidity = newVtok
	curve.RealSolReserve -= solOut
	if tokensIn >= curve.TokensSold {
		curve.TokensSold = 0
	} else {
		curve.TokensSold -= tokensIn
	}
	curve.UpdatedAt = now
	vault.Balance -= solOut

	if err := e.curves.Update(ctx, curve, vault); err != nil {
		return nil, fmt.Errorf("persist sell: %w", mapStorageErr(err))
	}

	result := &domain.TradeResult{
		Mint:      mint,
		Direction: domain.DirectionSell,
		AmountIn:  tokensIn,
		AmountOut: solOut,
	}
	result.TradeID = e.record(ctx, caller, curve, result, now)

	e.log.Debug("sell executed",
		zap.String("mint", mint),
		zap.String("caller", caller),
		zap.Uint64("tokens_in", tokensIn),
		zap.Uint64("sol_out", solOut))
	return result, nil
}

// record appends the trade to the log and the feed. Both sinks are
// best-effort; the curve mutation is already committed.
func (e *Engine) record(ctx context.Context, caller string, curve *domain.Curve, res *domain.TradeResult, executedAt int64) string {
	seq := e.seq.Add(1)
	event := &domain.TradeEvent{
		TradeID:    domain.ComputeTradeID(res.Mint, res.Direction, caller, seq),
		Mint:       res.Mint,
		Caller:     caller,
		Direction:  res.Direction,
		AmountIn:   res.AmountIn,
		AmountOut:  res.AmountOut,
		Refund:     res.Refund,
		VirtualSol: curve.VirtualSolLiquidity,
		VirtualTok: curve.VirtualTokenLiquidity,
		RealSol:    curve.RealSolReserve,
		TokensSold: curve.TokensSold,
		IsActive:   curve.IsActive,
		Seq:        seq,
		ExecutedAt: executedAt,
	}

	if e.trades != nil {
		if err := e.trades.Insert(ctx, event); err != nil {
			e.log.Warn("trade log insert failed",
				zap.String("trade_id", event.TradeID),
				zap.Error(err))
		}
	}
	if e.feed != nil {
		e.feed.Publish(event)
	}
	if e.metrics != nil {
		e.metrics.EscrowBalance.WithLabelValues(curve.Mint).Set(float64(curve.RealSolReserve))
		e.metrics.TokensSold.WithLabelValues(curve.Mint).Set(float64(curve.TokensSold))
	}
	return event.TradeID
}

// observeTrade records trade outcome metrics.
func (e *Engine) observeTrade(direction domain.Direction, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	if err != nil {
		e.metrics.TradeFailures.WithLabelValues(failureReason(err)).Inc()
		return
	}
	e.metrics.TradesExecuted.WithLabelValues(string(direction)).Inc()
	e.metrics.TradeLatency.WithLabelValues(string(direction)).Observe(time.Since(start).Seconds())
}

// failureReason maps an error to a bounded metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, domain.ErrCurveInactive):
		return "inactive"
	case errors.Is(err, domain.ErrCurveNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, domain.ErrInsufficientEscrow):
		return "insufficient_escrow"
	default:
		return "other"
	}
}

// loadPair loads the curve and its vault under the mint lock.
func (e *Engine) loadPair(ctx context.Context, mint string) (*domain.Curve, *domain.Vault, error) {
	curve, err := e.curves.Get(ctx, mint)
	if err != nil {
		return nil, nil, mapStorageErr(err)
	}
	vault, err := e.curves.GetVault(ctx, mint)
	if err != nil {
		return nil, nil, mapStorageErr(err)
	}
	return curve, vault, nil
}

// Protocol returns the protocol record.
func (e *Engine) Protocol(ctx context.Context) (*domain.Protocol, error) {
	p, err := e.protocols.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrProtocolNotInitialized
		}
		return nil, err
	}
	return p, nil
}

// Curve returns the curve record for a mint.
func (e *Engine) Curve(ctx context.Context, mint string) (*domain.Curve, error) {
	c, err := e.curves.Get(ctx, mint)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return c, nil
}

// Vault returns the escrow vault for a mint.
func (e *Engine) Vault(ctx context.Context, mint string) (*domain.Vault, error) {
	v, err := e.curves.GetVault(ctx, mint)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return v, nil
}

// CurveState returns the curve and its vault as one snapshot. The read
// holds the mint lock so the pair can never straddle a trade, and the
// vault balance always matches the curve's real reserve.
func (e *Engine) CurveState(ctx context.Context, mint string) (*domain.Curve, *domain.Vault, error) {
	if mint == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	lock := e.mintLock(mint)
	lock.Lock()
	defer lock.Unlock()
	return e.loadPair(ctx, mint)
}

// TradesByMint returns the logged trades for a mint in sequence order.
// Returns an empty slice when no trade log is configured.
func (e *Engine) TradesByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error) {
	if e.trades == nil {
		return nil, nil
	}
	return e.trades.GetByMint(ctx, mint)
}

// mapStorageErr translates storage sentinels into the engine taxonomy.
func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrCurveNotFound
	case errors.Is(err, storage.ErrInvalidInput):
		return domain.ErrInvalidInput
	default:
		return err
	}
}

// checkedAdd adds two u64 amounts, failing instead of wrapping.
func checkedAdd(a, b uint64) (uint64, error) {
	if b > ^uint64(0)-a {
		return 0, domain.ErrArithmeticOverflow
	}
	return a + b, nil
}
