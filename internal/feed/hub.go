// Package feed broadcasts executed trades to websocket subscribers.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-curve-engine/internal/domain"
	"solana-curve-engine/internal/observability"
)

// Config tunes hub behavior. Zero values fall back to defaults.
type Config struct {
	// WriteTimeout bounds each frame write to a subscriber.
	WriteTimeout time.Duration
	// SendBuffer is the per-subscriber outbound queue; a subscriber whose
	// queue is full is disconnected rather than allowed to stall the hub.
	SendBuffer int

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

const (
	defaultWriteTimeout = 10 * time.Second
	defaultSendBuffer   = 256
)

// tradeMessage is the wire form of a trade event.
type tradeMessage struct {
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

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub fans executed trades out to connected websocket clients. Slow or dead
// subscribers are dropped; they never block trade execution.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// NewHub returns a hub ready to accept subscribers.
func NewHub(cfg Config) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log:  log,
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.FeedSubscribers.Set(float64(n))
	}
	h.log.Info("feed subscriber connected",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Int("subscribers", n))

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Publish broadcasts the event to all subscribers. It never blocks on a slow
// connection and is safe to call concurrently.
func (h *Hub) Publish(e *domain.TradeEvent) {
	payload, err := json.Marshal(tradeMessage{
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
	if err != nil {
		h.log.Error("marshal trade event", zap.Error(err))
		return
	}

	h.mu.Lock()
	var stalled []*subscriber
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.Unlock()

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.FeedPublished.Inc()
	}
	for _, sub := range stalled {
		h.log.Warn("dropping stalled feed subscriber",
			zap.String("remote", sub.conn.RemoteAddr().String()))
		h.drop(sub)
	}
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.drop(sub)
	}
}

// SubscriberCount reports the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()

	close(sub.done)
	sub.conn.Close()

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.FeedSubscribers.Set(float64(n))
		h.cfg.Metrics.FeedDropped.Inc()
	}
}

// writeLoop delivers queued payloads to one subscriber.
func (h *Hub) writeLoop(sub *subscriber) {
	for {
		select {
		case payload := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.drop(sub)
				return
			}
		case <-sub.done:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			sub.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readLoop discards inbound frames and detects disconnects. The feed is
// broadcast-only; clients are not expected to send anything.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			return
		}
	}
}
