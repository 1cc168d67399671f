// Package redis publishes a best-bid/best-ask snapshot, supplied by
// the caller, to Redis, giving read-side consumers (a market
// data feed, a UI) a cheap place to poll current top-of-book without
// going through the engine directly.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures the Redis connection. Mirrors the connection
// options the rest of the system's Redis-backed components use.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a go-redis client from opts.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

type topOfBook struct {
	BidPrice    uint32 `json:"bid_price,omitempty"`
	BidQuantity uint32 `json:"bid_quantity,omitempty"`
	HasBid      bool   `json:"has_bid"`
	AskPrice    uint32 `json:"ask_price,omitempty"`
	AskQuantity uint32 `json:"ask_quantity,omitempty"`
	HasAsk      bool   `json:"has_ask"`
}

// Publisher writes the current best bid/ask to a single Redis key as
// a JSON blob, overwriting it on every call.
type Publisher struct {
	client *redis.Client
	key    string
	logger *zap.Logger
	ttl    time.Duration
}

// New creates a Publisher for symbol, writing to "<symbol>:top" on
// client.
func New(client *redis.Client, symbol string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		key:    fmt.Sprintf("%s:top", symbol),
		logger: logger,
		ttl:    30 * time.Second,
	}
}

// Publish writes the top-of-book snapshot built from bid and ask.
// Errors are logged, not returned. The Redis write is synchronous and
// is bounded only by ctx.
func (p *Publisher) Publish(ctx context.Context, bid, ask core.PriceView, hasBid, hasAsk bool) {
	snap := topOfBook{HasBid: hasBid, HasAsk: hasAsk}
	if hasBid {
		snap.BidPrice, snap.BidQuantity = bid.Price, bid.TotalQuantity
	}
	if hasAsk {
		snap.AskPrice, snap.AskQuantity = ask.Price, ask.TotalQuantity
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		p.logger.Error("failed to marshal top-of-book snapshot", zap.Error(err))
		return
	}

	if err := p.client.Set(ctx, p.key, payload, p.ttl).Err(); err != nil {
		p.logger.Error("failed to publish top-of-book snapshot", zap.Error(err))
	}
}
