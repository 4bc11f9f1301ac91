package memory

import (
	"context"
	"sync"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// ProtocolStore is an in-memory implementation of storage.ProtocolStore.
type ProtocolStore struct {
	mu     sync.RWMutex
	record *domain.Protocol
}

// NewProtocolStore creates a new in-memory protocol store.
func NewProtocolStore() *ProtocolStore {
	return &ProtocolStore{}
}

// Compile-time interface check.
var _ storage.ProtocolStore = (*ProtocolStore)(nil)

// Init creates the protocol record. Returns ErrDuplicateKey if it exists.
func (s *ProtocolStore) Init(_ context.Context, p *domain.Protocol) error {
	if p == nil || p.Authority == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record != nil {
		return storage.ErrDuplicateKey
	}
	s.record = p.Clone()
	return nil
}

// Get retrieves the protocol record. Returns ErrNotFound before Init.
func (s *ProtocolStore) Get(_ context.Context) (*domain.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, storage.ErrNotFound
	}
	return s.record.Clone(), nil
}

// Update replaces the protocol record.
func (s *ProtocolStore) Update(_ context.Context, p *domain.Protocol) error {
	if p == nil || p.Authority == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return storage.ErrNotFound
	}
	s.record = p.Clone()
	return nil
}
