package postgres

import (
	"context"
	"fmt"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Insert appends a trade event. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeLogStore) Insert(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_events (
			trade_id, mint, caller, direction, amount_in, amount_out, refund,
			virtual_sol, virtual_tok, real_sol, tokens_sold, is_active, seq, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.TradeID, e.Mint, e.Caller, string(e.Direction),
		int64(e.AmountIn), int64(e.AmountOut), int64(e.Refund),
		int64(e.VirtualSol), int64(e.VirtualTok), int64(e.RealSol), int64(e.TokensSold),
		e.IsActive, int64(e.Seq), e.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade event: %w", err)
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by sequence ASC.
func (s *TradeLogStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT trade_id, mint, caller, direction, amount_in, amount_out, refund,
		       virtual_sol, virtual_tok, real_sol, tokens_sold, is_active, seq, executed_at
		FROM trade_events
		WHERE mint = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("select trade events: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeEvent
	for rows.Next() {
		var e domain.TradeEvent
		var direction string
		var amountIn, amountOut, refund, vsol, vtok, realSol, sold, seq int64
		if err := rows.Scan(
			&e.TradeID, &e.Mint, &e.Caller, &direction,
			&amountIn, &amountOut, &refund,
			&vsol, &vtok, &realSol, &sold, &e.IsActive, &seq, &e.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade event: %w", err)
		}
		e.Direction = domain.Direction(direction)
		e.AmountIn = uint64(amountIn)
		e.AmountOut = uint64(amountOut)
		e.Refund = uint64(refund)
		e.VirtualSol = uint64(vsol)
		e.VirtualTok = uint64(vtok)
		e.RealSol = uint64(realSol)
		e.TokensSold = uint64(sold)
		e.Seq = uint64(seq)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade events: %w", err)
	}
	return result, nil
}

// MaxSeq returns the highest logged sequence number, 0 when empty.
func (s *TradeLogStore) MaxSeq(ctx context.Context) (uint64, error) {
	var max int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM trade_events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("select max seq: %w", err)
	}
	return uint64(max), nil
}
