package storage

import (
	"context"

	"solana-curve-engine/internal/domain"
)

// ProtocolStore provides access to the singleton protocol record.
type ProtocolStore interface {
	// Init creates the protocol record. Returns ErrDuplicateKey if it
	// already exists.
	Init(ctx context.Context, p *domain.Protocol) error

	// Get retrieves the protocol record. Returns ErrNotFound if init has
	// not run yet.
	Get(ctx context.Context) (*domain.Protocol, error)

	// Update replaces the protocol record. Returns ErrNotFound if it does
	// not exist.
	Update(ctx context.Context, p *domain.Protocol) error
}

// CurveStore provides access to curve records and their paired vaults.
// A curve and its vault are created and updated together: implementations
// must guarantee the pair is never observable half-written.
type CurveStore interface {
	// Create inserts a new curve together with an empty vault.
	// Returns ErrDuplicateKey if the mint already has a curve.
	Create(ctx context.Context, c *domain.Curve) error

	// Get retrieves a curve by mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string) (*domain.Curve, error)

	// GetVault retrieves the vault paired with the mint's curve.
	// Returns ErrNotFound if not exists.
	GetVault(ctx context.Context, mint string) (*domain.Vault, error)

	// Update persists the curve and its vault atomically.
	// Returns ErrNotFound if either record does not exist.
	Update(ctx context.Context, c *domain.Curve, v *domain.Vault) error
}

// TradeLogStore is the append-only log of executed trades.
type TradeLogStore interface {
	// Insert appends a trade event. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, e *domain.TradeEvent) error

	// GetByMint retrieves all events for a mint, ordered by sequence ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error)

	// MaxSeq returns the highest sequence number ever logged, 0 when the
	// log is empty. The engine resumes its counter from here so sequence
	// numbers and trade IDs stay unique across restarts.
	MaxSeq(ctx context.Context) (uint64, error)
}
