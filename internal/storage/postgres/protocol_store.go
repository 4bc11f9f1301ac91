package postgres

import (
	"context"
	"fmt"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// ProtocolStore implements storage.ProtocolStore using PostgreSQL.
// The protocol table is constrained to a single row.
type ProtocolStore struct {
	pool *Pool
}

// NewProtocolStore creates a new ProtocolStore.
func NewProtocolStore(pool *Pool) *ProtocolStore {
	return &ProtocolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProtocolStore = (*ProtocolStore)(nil)

// Init creates the protocol record. Returns ErrDuplicateKey if it exists.
func (s *ProtocolStore) Init(ctx context.Context, p *domain.Protocol) error {
	if p == nil || p.Authority == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO protocol (
			id, authority, paused, default_virtual_sol, default_virtual_token,
			fee_basis_points, created_at, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Authority, p.Paused, int64(p.DefaultVirtualSol), int64(p.DefaultVirtualToken),
		int32(p.FeeBasisPoints), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert protocol: %w", err)
	}
	return nil
}

// Get retrieves the protocol record. Returns ErrNotFound before Init.
func (s *ProtocolStore) Get(ctx context.Context) (*domain.Protocol, error) {
	query := `
		SELECT authority, paused, default_virtual_sol, default_virtual_token,
		       fee_basis_points, created_at, updated_at
		FROM protocol
		WHERE id = 1
	`

	var p domain.Protocol
	var vsol, vtok int64
	var feeBps int32
	err := s.pool.QueryRow(ctx, query).Scan(
		&p.Authority, &p.Paused, &vsol, &vtok, &feeBps, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select protocol: %w", err)
	}
	p.DefaultVirtualSol = uint64(vsol)
	p.DefaultVirtualToken = uint64(vtok)
	p.FeeBasisPoints = uint32(feeBps)
	return &p, nil
}

// Update replaces the protocol record. Returns ErrNotFound if it does not exist.
func (s *ProtocolStore) Update(ctx context.Context, p *domain.Protocol) error {
	if p == nil || p.Authority == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE protocol
		SET authority = $1, paused = $2, default_virtual_sol = $3,
		    default_virtual_token = $4, fee_basis_points = $5, updated_at = $6
		WHERE id = 1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.Authority, p.Paused, int64(p.DefaultVirtualSol), int64(p.DefaultVirtualToken),
		int32(p.FeeBasisPoints), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update protocol: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
