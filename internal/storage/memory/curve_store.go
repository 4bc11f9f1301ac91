package memory

import (
	"context"
	"sync"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// CurveStore is an in-memory implementation of storage.CurveStore.
// A single mutex covers curves and vaults so the pair always moves together.
type CurveStore struct {
	mu     sync.RWMutex
	curves map[string]*domain.Curve // keyed by mint
	vaults map[string]*domain.Vault // keyed by mint
}

// NewCurveStore creates a new in-memory curve store.
func NewCurveStore() *CurveStore {
	return &CurveStore{
		curves: make(map[string]*domain.Curve),
		vaults: make(map[string]*domain.Vault),
	}
}

// Compile-time interface check.
var _ storage.CurveStore = (*CurveStore)(nil)

// Create inserts a new curve with an empty paired vault.
func (s *CurveStore) Create(_ context.Context, c *domain.Curve) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.curves[c.Mint]; exists {
		return storage.ErrDuplicateKey
	}
	s.curves[c.Mint] = c.Clone()
	s.vaults[c.Mint] = &domain.Vault{Mint: c.Mint}
	return nil
}

// Get retrieves a curve by mint.
func (s *CurveStore) Get(_ context.Context, mint string) (*domain.Curve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.curves[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return c.Clone(), nil
}

// GetVault retrieves the vault paired with the mint's curve.
func (s *CurveStore) GetVault(_ context.Context, mint string) (*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.vaults[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return v.Clone(), nil
}

// Update persists the curve and its vault under one lock.
func (s *CurveStore) Update(_ context.Context, c *domain.Curve, v *domain.Vault) error {
	if c == nil || v == nil || c.Mint == "" || c.Mint != v.Mint {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.curves[c.Mint]; !exists {
		return storage.ErrNotFound
	}
	if _, exists := s.vaults[c.Mint]; !exists {
		return storage.ErrNotFound
	}
	s.curves[c.Mint] = c.Clone()
	s.vaults[c.Mint] = v.Clone()
	return nil
}
