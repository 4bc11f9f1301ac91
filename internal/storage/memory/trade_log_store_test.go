package memory

import (
	"context"
	"errors"
	"testing"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/storage"
)

func TestTradeLogStore_InsertAndGet(t *testing.T) {
	store := NewTradeLogStore()
	ctx := context.Background()

	events := []*domain.TradeEvent{
		{TradeID: "t3", Mint: "mint1", Direction: domain.DirectionSell, Seq: 3},
		{TradeID: "t1", Mint: "mint1", Direction: domain.DirectionBuy, Seq: 1},
		{TradeID: "t2", Mint: "mint2", Direction: domain.DirectionBuy, Seq: 2},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	// Ordered by sequence
	if got[0].TradeID != "t1" || got[1].TradeID != "t3" {
		t.Errorf("Wrong order: %s, %s", got[0].TradeID, got[1].TradeID)
	}
}

func TestTradeLogStore_Duplicate(t *testing.T) {
	store := NewTradeLogStore()
	ctx := context.Background()

	e := &domain.TradeEvent{TradeID: "t1", Mint: "mint1", Seq: 1}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, e)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeLogStore_EmptyMint(t *testing.T) {
	store := NewTradeLogStore()

	got, err := store.GetByMint(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no events, got %d", len(got))
	}
}

func TestTradeLogStore_MaxSeq(t *testing.T) {
	store := NewTradeLogStore()
	ctx := context.Background()

	max, err := store.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq failed: %v", err)
	}
	if max != 0 {
		t.Errorf("MaxSeq on empty log = %d, want 0", max)
	}

	for _, seq := range []uint64{2, 7, 4} {
		e := &domain.TradeEvent{TradeID: domain.ComputeTradeID("mint1", domain.DirectionBuy, "c", seq), Mint: "mint1", Seq: seq}
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	max, err = store.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq failed: %v", err)
	}
	if max != 7 {
		t.Errorf("MaxSeq = %d, want 7", max)
	}
}
