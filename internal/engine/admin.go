package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// InitProtocol creates the protocol singleton. It succeeds exactly once.
func (e *Engine) InitProtocol(ctx context.Context, authority string, defaultVSol, defaultVTok uint64, feeBps uint32) (*domain.Protocol, error) {
	now := e.nowFn()
	p := &domain.Protocol{
		Authority:           authority,
		DefaultVirtualSol:   defaultVSol,
		DefaultVirtualToken: defaultVTok,
		FeeBasisPoints:      feeBps,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if defaultVTok <= domain.SupplyCap {
		// Virtual token liquidity must exceed the cap so clamped buys
		// always have a finite repricing.
		return nil, domain.ErrInvalidInput
	}

	e.protoMu.Lock()
	defer e.protoMu.Unlock()

	if err := e.protocols.Init(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, domain.ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("persist protocol: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ProtocolInits.Inc()
	}
	e.log.Info("protocol initialized",
		zap.String("authority", authority),
		zap.Uint64("default_virtual_sol", defaultVSol),
		zap.Uint64("default_virtual_token", defaultVTok),
		zap.Uint32("fee_bps", feeBps))
	return p, nil
}

// LaunchCoin creates a curve for a new mint, seeded with the given virtual
// reserves or the protocol defaults when zero. Launching requires an
// initialized, unpaused protocol.
func (e *Engine) LaunchCoin(ctx context.Context, creator, mint string, seedVSol, seedVTok uint64) (*domain.Curve, error) {
	if err := domain.ValidateAddress(creator); err != nil {
		return nil, err
	}
	if err := domain.ValidateAddress(mint); err != nil {
		return nil, err
	}

	p, err := e.protocols.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrProtocolNotInitialized
		}
		return nil, fmt.Errorf("load protocol: %w", err)
	}
	if p.Paused {
		return nil, domain.ErrProtocolPaused
	}

	if seedVSol == 0 {
		seedVSol = p.DefaultVirtualSol
	}
	if seedVTok == 0 {
		seedVTok = p.DefaultVirtualToken
	}
	if seedVTok <= domain.SupplyCap {
		return nil, domain.ErrInvalidInput
	}

	now := e.nowFn()
	curve := &domain.Curve{
		Mint:                  mint,
		Creator:               creator,
		SeedVirtualSol:        seedVSol,
		SeedVirtualToken:      seedVTok,
		VirtualSolLiquidity:   seedVSol,
		VirtualTokenLiquidity: seedVTok,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := e.curves.Create(ctx, curve); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, domain.ErrDuplicateLaunch
		}
		return nil, fmt.Errorf("persist curve: %w", err)
	}

	if e.metrics != nil {
		e.metrics.CoinsLaunched.Inc()
	}
	e.log.Info("coin launched",
		zap.String("mint", mint),
		zap.String("creator", creator),
		zap.Uint64("virtual_sol", seedVSol),
		zap.Uint64("virtual_token", seedVTok))
	return curve, nil
}

// WithdrawFunds pays out collected lamports to the curve's creator.
// Legal while the curve is active and after deactivation.
func (e *Engine) WithdrawFunds(ctx context.Context, caller, mint string, amount uint64) error {
	if err := domain.ValidateAddress(caller); err != nil {
		return err
	}
	if mint == "" || amount == 0 {
		return domain.ErrInvalidInput
	}

	lock := e.mintLock(mint)
	lock.Lock()
	defer lock.Unlock()

	curve, vault, err := e.loadPair(ctx, mint)
	if err != nil {
		return err
	}
	if caller != curve.Creator {
		return domain.ErrUnauthorized
	}
	if amount > curve.RealSolReserve || amount > vault.Balance {
		return domain.ErrInsufficientEscrow
	}

	curve.RealSolReserve -= amount
	curve.UpdatedAt = e.nowFn()
	vault.Balance -= amount

	if err := e.curves.Update(ctx, curve, vault); err != nil {
		return fmt.Errorf("persist withdrawal: %w", mapStorageErr(err))
	}

	if e.metrics != nil {
		e.metrics.WithdrawalsTotal.Inc()
		e.metrics.WithdrawnLamports.Add(float64(amount))
		e.metrics.EscrowBalance.WithLabelValues(mint).Set(float64(curve.RealSolReserve))
	}
	e.log.Info("funds withdrawn",
		zap.String("mint", mint),
		zap.String("creator", caller),
		zap.Uint64("amount", amount),
		zap.Uint64("remaining_reserve", curve.RealSolReserve))
	return nil
}

// SetPaused flips the launch gate. Authority only. Trades are never paused.
func (e *Engine) SetPaused(ctx context.Context, authority string, paused bool) error {
	if err := domain.ValidateAddress(authority); err != nil {
		return err
	}

	e.protoMu.Lock()
	defer e.protoMu.Unlock()

	p, err := e.protocols.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrProtocolNotInitialized
		}
		return fmt.Errorf("load protocol: %w", err)
	}
	if authority != p.Authority {
		return domain.ErrUnauthorized
	}

	p.Paused = paused
	p.UpdatedAt = e.nowFn()
	if err := e.protocols.Update(ctx, p); err != nil {
		return fmt.Errorf("persist protocol: %w", err)
	}

	e.log.Info("protocol pause flag updated", zap.Bool("paused", paused))
	return nil
}

// UpdateDefaults replaces the virtual-reserve defaults seeded into new
// curves. Authority only; existing curves are unaffected.
func (e *Engine) UpdateDefaults(ctx context.Context, authority string, defaultVSol, defaultVTok uint64, feeBps uint32) error {
	if err := domain.ValidateAddress(authority); err != nil {
		return err
	}
	if defaultVSol == 0 || defaultVTok <= domain.SupplyCap || feeBps > domain.MaxFeeBasisPoints {
		return domain.ErrInvalidInput
	}

	e.protoMu.Lock()
	defer e.protoMu.Unlock()

	p, err := e.protocols.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrProtocolNotInitialized
		}
		return fmt.Errorf("load protocol: %w", err)
	}
	if authority != p.Authority {
		return domain.ErrUnauthorized
	}

	p.DefaultVirtualSol = defaultVSol
	p.DefaultVirtualToken = defaultVTok
	p.FeeBasisPoints = feeBps
	p.UpdatedAt = e.nowFn()
	if err := e.protocols.Update(ctx, p); err != nil {
		return fmt.Errorf("persist protocol: %w", err)
	}

	e.log.Info("protocol defaults updated",
		zap.Uint64("default_virtual_sol", defaultVSol),
		zap.Uint64("default_virtual_token", defaultVTok),
		zap.Uint32("fee_bps", feeBps))
	return nil
}
