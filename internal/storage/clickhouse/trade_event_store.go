package clickhouse

import (
	"context"
	"fmt"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

// TradeEventStore implements storage.TradeLogStore using ClickHouse.
// It is the analytics sink for executed trades; the MergeTree table does
// not enforce uniqueness, so duplicates are checked explicitly by trade_id.
type TradeEventStore struct {
	conn *Conn
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(conn *Conn) *TradeEventStore {
	return &TradeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeEventStore)(nil)

// Insert appends a trade event. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeEventStore) Insert(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.TradeID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_events (
			trade_id, mint, caller, direction, amount_in, amount_out, refund,
			virtual_sol, virtual_tok, real_sol, tokens_sold, is_active, seq, executed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	isActive := uint8(0)
	if e.IsActive {
		isActive = 1
	}
	if err := batch.Append(
		e.TradeID, e.Mint, e.Caller, string(e.Direction),
		e.AmountIn, e.AmountOut, e.Refund,
		e.VirtualSol, e.VirtualTok, e.RealSol, e.TokensSold,
		isActive, e.Seq, e.ExecutedAt,
	); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by sequence ASC.
func (s *TradeEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT trade_id, mint, caller, direction, amount_in, amount_out, refund,
		       virtual_sol, virtual_tok, real_sol, tokens_sold, is_active, seq, executed_at
		FROM trade_events
		WHERE mint = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("select trade events: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeEvent
	for rows.Next() {
		var e domain.TradeEvent
		var direction string
		var isActive uint8
		if err := rows.Scan(
			&e.TradeID, &e.Mint, &e.Caller, &direction,
			&e.AmountIn, &e.AmountOut, &e.Refund,
			&e.VirtualSol, &e.VirtualTok, &e.RealSol, &e.TokensSold,
			&isActive, &e.Seq, &e.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade event: %w", err)
		}
		e.Direction = domain.Direction(direction)
		e.IsActive = isActive == 1
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade events: %w", err)
	}
	return result, nil
}

// MaxSeq returns the highest logged sequence number, 0 when empty.
func (s *TradeEventStore) MaxSeq(ctx context.Context) (uint64, error) {
	var max uint64
	err := s.conn.QueryRow(ctx, `SELECT max(seq) FROM trade_events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("select max seq: %w", err)
	}
	return max, nil
}

// exists checks whether a trade_id is already present.
func (s *TradeEventStore) exists(ctx context.Context, tradeID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM trade_events WHERE trade_id = ?`, tradeID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
