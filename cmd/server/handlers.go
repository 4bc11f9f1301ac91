package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/engine"
	"solana-curve-engine/internal/feed"
	"solana-curve-engine/internal/observability"
)

type apiServer struct {
	engine  *engine.Engine
	hub     *feed.Hub
	started time.Time
	logger  *log.Logger
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/protocol/init", s.handleInitProtocol)
	mux.HandleFunc("/v1/protocol/pause", s.handleSetPaused)
	mux.HandleFunc("/v1/protocol/defaults", s.handleUpdateDefaults)
	mux.HandleFunc("/v1/protocol", s.handleGetProtocol)
	mux.HandleFunc("/v1/launch", s.handleLaunch)
	mux.HandleFunc("/v1/trade", s.handleTrade)
	mux.HandleFunc("/v1/withdraw", s.handleWithdraw)
	mux.HandleFunc("/v1/curve", s.handleGetCurve)
	mux.HandleFunc("/v1/trades", s.handleGetTrades)
	mux.Handle("/ws/trades", s.hub)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// Request/response shapes. Amounts travel as JSON numbers in lamports or raw
// token units.

type initProtocolRequest struct {
	Authority           string `json:"authority"`
	DefaultVirtualSol   uint64 `json:"default_virtual_sol"`
	DefaultVirtualToken uint64 `json:"default_virtual_token"`
	FeeBasisPoints      uint32 `json:"fee_basis_points"`
}

type setPausedRequest struct {
	Authority string `json:"authority"`
	Paused    bool   `json:"paused"`
}

type launchRequest struct {
	Creator          string `json:"creator"`
	Mint             string `json:"mint"`
	SeedVirtualSol   uint64 `json:"seed_virtual_sol"`
	SeedVirtualToken uint64 `json:"seed_virtual_token"`
}

type tradeRequest struct {
	Caller       string `json:"caller"`
	Mint         string `json:"mint"`
	Direction    string `json:"direction"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
}

type withdrawRequest struct {
	Caller string `json:"caller"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
}

type protocolResponse struct {
	Authority           string `json:"authority"`
	Paused              bool   `json:"paused"`
	DefaultVirtualSol   uint64 `json:"default_virtual_sol"`
	DefaultVirtualToken uint64 `json:"default_virtual_token"`
	FeeBasisPoints      uint32 `json:"fee_basis_points"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

type curveResponse struct {
	Mint                  string `json:"mint"`
	Creator               string `json:"creator"`
	SeedVirtualSol        uint64 `json:"seed_virtual_sol"`
	SeedVirtualToken      uint64 `json:"seed_virtual_token"`
	VirtualSolLiquidity   uint64 `json:"virtual_sol_liquidity"`
	VirtualTokenLiquidity uint64 `json:"virtual_token_liquidity"`
	RealSolReserve        uint64 `json:"real_sol_reserve"`
	TokensSold            uint64 `json:"tokens_sold"`
	IsActive              bool   `json:"is_active"`
	VaultBalance          uint64 `json:"vault_balance"`
	CreatedAt             int64  `json:"created_at"`
	UpdatedAt             int64  `json:"updated_at"`
}

type tradeResponse struct {
	TradeID   string `json:"trade_id"`
	Mint      string `json:"mint"`
	Direction string `json:"direction"`
	AmountIn  uint64 `json:"amount_in"`
	AmountOut uint64 `json:"amount_out"`
	Refund    uint64 `json:"refund"`
}

type tradeEventResponse struct {
	TradeID    string `json:"trade_id"`
	Mint       string `json:"mint"`
	Caller     string `json:"caller"`
	Direction  string `json:"direction"`
	AmountIn   uint64 `json:"amount_in"`
	AmountOut  uint64 `json:"amount_out"`
	Refund     uint64 `json:"refund"`
	VirtualSol uint64 `json:"virtual_sol"`
	VirtualTok uint64 `json:"virtual_tok"`
	RealSol    uint64 `json:"real_sol"`
	TokensSold uint64 `json:"tokens_sold"`
	IsActive   bool   `json:"is_active"`
	Seq        uint64 `json:"seq"`
	ExecutedAt int64  `json:"executed_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *apiServer) handleInitProtocol(w http.ResponseWriter, r *http.Request) {
	var req initProtocolRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	p, err := s.engine.InitProtocol(r.Context(), req.Authority, req.DefaultVirtualSol, req.DefaultVirtualToken, req.FeeBasisPoints)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, protocolToResponse(p))
}

func (s *apiServer) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	p, err := s.engine.Protocol(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocolToResponse(p))
}

func (s *apiServer) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req setPausedRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if err := s.engine.SetPaused(r.Context(), req.Authority, req.Paused); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *apiServer) handleUpdateDefaults(w http.ResponseWriter, r *http.Request) {
	var req initProtocolRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if err := s.engine.UpdateDefaults(r.Context(), req.Authority, req.DefaultVirtualSol, req.DefaultVirtualToken, req.FeeBasisPoints); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.engine.Protocol(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocolToResponse(p))
}

func (s *apiServer) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	c, err := s.engine.LaunchCoin(r.Context(), req.Creator, req.Mint, req.SeedVirtualSol, req.SeedVirtualToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, curveToResponse(c, 0))
}

func (s *apiServer) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	direction := domain.Direction(strings.ToUpper(req.Direction))
	res, err := s.engine.Trade(r.Context(), req.Caller, req.Mint, direction, req.AmountIn, req.MinAmountOut)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeResponse{
		TradeID:   res.TradeID,
		Mint:      res.Mint,
		Direction: string(res.Direction),
		AmountIn:  res.AmountIn,
		AmountOut: res.AmountOut,
		Refund:    res.Refund,
	})
}

func (s *apiServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if err := s.engine.WithdrawFunds(r.Context(), req.Caller, req.Mint, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"withdrawn": req.Amount})
}

func (s *apiServer) handleGetCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mint query parameter is required", Code: "invalid_input"})
		return
	}
	c, v, err := s.engine.CurveState(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, curveToResponse(c, v.Balance))
}

func (s *apiServer) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	mint := r.URL.Query().Get("mint")
	if mint == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mint query parameter is required", Code: "invalid_input"})
		return
	}
	events, err := s.engine.TradesByMint(r.Context(), mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]tradeEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, tradeEventResponse{
			TradeID:    e.TradeID,
			Mint:       e.Mint,
			Caller:     e.Caller,
			Direction:  string(e.Direction),
			AmountIn:   e.AmountIn,
			AmountOut:  e.AmountOut,
			Refund:     e.Refund,
			VirtualSol: e.VirtualSol,
			VirtualTok: e.VirtualTok,
			RealSol:    e.RealSol,
			TokensSold: e.TokensSold,
			IsActive:   e.IsActive,
			Seq:        e.Seq,
			ExecutedAt: e.ExecutedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":   int64(time.Since(s.started).Seconds()),
		"feed_subscribers": s.hub.SubscriberCount(),
	})
}

func protocolToResponse(p *domain.Protocol) protocolResponse {
	return protocolResponse{
		Authority:           p.Authority,
		Paused:              p.Paused,
		DefaultVirtualSol:   p.DefaultVirtualSol,
		DefaultVirtualToken: p.DefaultVirtualToken,
		FeeBasisPoints:      p.FeeBasisPoints,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func curveToResponse(c *domain.Curve, vaultBalance uint64) curveResponse {
	return curveResponse{
		Mint:                  c.Mint,
		Creator:               c.Creator,
		SeedVirtualSol:        c.SeedVirtualSol,
		SeedVirtualToken:      c.SeedVirtualToken,
		VirtualSolLiquidity:   c.VirtualSolLiquidity,
		VirtualTokenLiquidity: c.VirtualTokenLiquidity,
		RealSolReserve:        c.RealSolReserve,
		TokensSold:            c.TokensSold,
		IsActive:              c.IsActive,
		VaultBalance:          vaultBalance,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

func (s *apiServer) decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error(), Code: "invalid_input"})
		return false
	}
	return true
}

func (s *apiServer) methodNotAllowed(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

// writeError maps engine errors to HTTP statuses and stable error codes.
func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrArithmeticOverflow):
		status, code = http.StatusBadRequest, "arithmetic_overflow"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrCurveNotFound):
		status, code = http.StatusNotFound, "curve_not_found"
	case errors.Is(err, domain.ErrProtocolNotInitialized):
		status, code = http.StatusNotFound, "protocol_not_initialized"
	case errors.Is(err, domain.ErrAlreadyInitialized):
		status, code = http.StatusConflict, "already_initialized"
	case errors.Is(err, domain.ErrDuplicateLaunch):
		status, code = http.StatusConflict, "duplicate_launch"
	case errors.Is(err, domain.ErrProtocolPaused):
		status, code = http.StatusConflict, "protocol_paused"
	case errors.Is(err, domain.ErrCurveInactive):
		status, code = http.StatusConflict, "curve_inactive"
	case errors.Is(err, domain.ErrSlippageExceeded):
		status, code = http.StatusConflict, "slippage_exceeded"
	case errors.Is(err, domain.ErrInsufficientEscrow):
		status, code = http.StatusConflict, "insufficient_escrow"
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("internal error: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
