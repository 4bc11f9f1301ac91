package memory

import (
	"context"
	"sort"
	"sync"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
type TradeLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by trade_id
}

// NewTradeLogStore creates a new in-memory trade log store.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Insert appends a trade event. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeLogStore) Insert(_ context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *e
	s.data[e.TradeID] = &copy
	return nil
}

// GetByMint retrieves all events for a mint, ordered by sequence ASC.
func (s *TradeLogStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.data {
		if e.Mint == mint {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

// MaxSeq returns the highest logged sequence number, 0 when empty.
func (s *TradeLogStore) MaxSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max uint64
	for _, e := range s.data {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max, nil
}
