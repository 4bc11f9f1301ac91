package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Direction of a trade against the curve.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid reports whether the direction is a supported value.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TradeResult is returned to the caller of a successful trade.
type TradeResult struct {
	TradeID   string
	Mint      string
	Direction Direction
	AmountIn  uint64 // lamports charged (buy) or tokens taken (sell)
	AmountOut uint64 // tokens delivered (buy) or lamports paid (sell)
	Refund    uint64 // lamports returned when a buy is clamped at the cap
}

// TradeEvent is the append-only record of an executed trade, carrying the
// post-trade curve snapshot for analytics and feed consumers.
type TradeEvent struct {
	TradeID    string
	Mint       string
	Caller     string
	Direction  Direction
	AmountIn   uint64
	AmountOut  uint64
	Refund     uint64
	VirtualSol uint64 // post-trade virtual SOL liquidity
	VirtualTok uint64 // post-trade virtual token liquidity
	RealSol    uint64 // post-trade real reserve
	TokensSold uint64 // post-trade cumulative sold
	IsActive   bool
	Seq        uint64 // engine-wide sequence number
	ExecutedAt int64  // unix ms
}

// ComputeTradeID computes a deterministic trade ID using SHA256.
// Formula: SHA256(mint|direction|caller|seq)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(mint string, direction Direction, caller string, seq uint64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", mint, string(direction), caller, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
