// Package engine implements the single-symbol, single-threaded limit
// order book and matching engine: price-time priority matching with
// self-match prevention, O(1) cancellation by order identifier, and a
// caller-supplied trade sink. It is a direct translation of the
// original reference implementation's OrderBook (order_book.h),
// generalized from raw pointers to the arena/book packages' stable
// slot-backed handles.
package engine

import (
	"context"

	"github.com/fleetmatch/limitbook/pkg/arena"
	"github.com/fleetmatch/limitbook/pkg/book"
	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/fleetmatch/limitbook/pkg/metrics"
	"github.com/rs/zerolog"
)

// defaultMaxPriceLevels is the capacity reservation for each side's
// SideBook when Config.MaxPriceLevels is left at zero. Matches the
// original reference implementation's detail::kDefaultMaxPriceLevels.
const defaultMaxPriceLevels = 4096

// TradeSink receives every trade the engine emits, synchronously, in
// fill order. It must not call back into the engine: matchIncoming is
// still mutating book state when it fires.
type TradeSink func(core.Trade)

// Config configures a new Engine. Capacity is required; the rest have
// sensible defaults.
type Config struct {
	// Capacity is the arena size: the peak number of simultaneously
	// live orders (resting on both sides, plus the one in-flight
	// incoming order). Required, must be positive.
	Capacity int
	// MaxPriceLevels is the capacity reservation for each SideBook.
	// Defaults to 4096 if zero.
	MaxPriceLevels int
	// Debug enables the arena's per-slot bit tracking, which panics on
	// double-release (use of a released handle is not detected).
	// Defaults to false (production mode).
	Debug bool
	// Logger receives optional debug-level tracing of add/cancel/match
	// activity. Leave nil to discard everything through zerolog.Nop's
	// disabled-level fast path, which costs nothing on the hot path.
	Logger *zerolog.Logger
	// Metrics receives optional counters for orders added/cancelled,
	// trades emitted, and self-match cancellations. Leave nil to skip
	// instrumentation entirely.
	Metrics *metrics.EngineMetrics
}

// Engine owns the order arena, both SideBooks, the order-identifier
// index, and the sequence counter. There is exactly one instance per
// symbol; a multi-symbol deployment runs one Engine per symbol behind
// its own goroutine, since nothing here is safe for concurrent use.
type Engine struct {
	pool *arena.Arena
	bids *book.SideBook
	asks *book.SideBook

	index map[uint64]*arena.Order

	sequence uint64
	onTrade  TradeSink
	log      zerolog.Logger
	metrics  *metrics.EngineMetrics
}

// New creates an Engine with the given configuration and trade sink.
// The sink is invoked synchronously from within AddLimitOrder for
// every fill; it must never call back into the engine.
func New(cfg Config, sink TradeSink) (*Engine, error) {
	if cfg.Capacity <= 0 {
		return nil, core.ErrInvalidCapacity
	}
	if sink == nil {
		sink = func(core.Trade) {}
	}

	maxLevels := cfg.MaxPriceLevels
	if maxLevels <= 0 {
		maxLevels = defaultMaxPriceLevels
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Engine{
		pool:    arena.New(cfg.Capacity, cfg.Debug),
		bids:    book.NewSideBook(core.Buy, maxLevels),
		asks:    book.NewSideBook(core.Sell, maxLevels),
		index:   make(map[uint64]*arena.Order, cfg.Capacity),
		onTrade: sink,
		log:     log,
		metrics: cfg.Metrics,
	}, nil
}

// BestBid returns a read-only snapshot of the best (highest) resting
// buy level, or false if there are no bids. The returned view is a
// copy, but reflects state only as of this call. It is stale the
// instant another order is added or cancelled.
func (e *Engine) BestBid() (core.PriceView, bool) {
	return bestView(e.bids)
}

// BestAsk returns a read-only snapshot of the best (lowest) resting
// sell level, or false if there are no asks.
func (e *Engine) BestAsk() (core.PriceView, bool) {
	return bestView(e.asks)
}

func bestView(sb *book.SideBook) (core.PriceView, bool) {
	pl := sb.Best()
	if pl == nil {
		return core.PriceView{}, false
	}
	return core.PriceView{Price: pl.Price, TotalQuantity: pl.TotalQuantity}, true
}

// FreeCapacity returns the arena's current free slot count.
func (e *Engine) FreeCapacity() int {
	return e.pool.FreeCount()
}

// AddLimitOrder submits a new limit order. It may fully or partially
// fill against the opposite side, rest (all or the remainder) on its
// own side, or be fully cancelled by self-match prevention, never a
// mix of resting and cancellation for the same residual quantity.
func (e *Engine) AddLimitOrder(side core.Side, price, quantity uint32, orderID, participantID uint64) {
	if price == 0 || quantity == 0 {
		panic("engine: addLimitOrder requires positive price and quantity")
	}

	o := e.pool.Allocate()
	o.ID = orderID
	o.Price = price
	o.Quantity = quantity
	o.ParticipantID = participantID
	o.Side = side
	o.Sequence = e.sequence
	e.sequence++

	e.log.Debug().
		Uint64("order_id", orderID).
		Str("side", side.String()).
		Uint32("price", price).
		Uint32("quantity", quantity).
		Msg("order received")

	switch side {
	case core.Buy:
		if best := e.asks.Best(); best != nil && price >= best.Price {
			e.matchIncoming(o, e.asks)
		}
	case core.Sell:
		if best := e.bids.Best(); best != nil && price <= best.Price {
			e.matchIncoming(o, e.bids)
		}
	}

	if e.metrics != nil {
		e.metrics.IncOrdersAdded(context.Background())
	}

	if o.Quantity > 0 {
		e.sideBookFor(side).FindOrCreate(price).PushBack(o)
		e.index[orderID] = o
		e.log.Debug().Uint64("order_id", orderID).Uint32("remaining", o.Quantity).Msg("order rested")
		return
	}

	e.pool.Release(o)
}

// CancelOrder removes the order with orderID from the book, if it is
// currently resting. Cancel of an unknown or already-cancelled order
// id is a silent no-op.
func (e *Engine) CancelOrder(orderID uint64) {
	o, ok := e.index[orderID]
	if !ok {
		return
	}

	sb := e.sideBookFor(o.Side)
	pl := sb.Find(o.Price)
	if pl == nil {
		panic("engine: cancel found indexed order with no matching price level")
	}

	pl.Remove(o)
	if pl.IsEmpty() {
		sb.EraseAt(o.Price)
	}

	delete(e.index, orderID)
	e.pool.Release(o)

	e.log.Debug().Uint64("order_id", orderID).Msg("order cancelled")

	if e.metrics != nil {
		e.metrics.IncOrdersCancelled(context.Background())
	}
}

func (e *Engine) sideBookFor(side core.Side) *book.SideBook {
	if side == core.Buy {
		return e.bids
	}
	return e.asks
}

// matchIncoming runs the match loop for incoming against the opposite
// side book (asks for a buy, bids for a sell). It mutates
// incoming.Quantity in place and returns once incoming is exhausted,
// self-match-cancelled, or the opposite side no longer crosses.
func (e *Engine) matchIncoming(incoming *arena.Order, opposite *book.SideBook) {
	isBuy := incoming.Side == core.Buy

	for incoming.Quantity > 0 {
		pl := opposite.Best()
		if pl == nil {
			return
		}

		crosses := false
		if isBuy {
			crosses = incoming.Price >= pl.Price
		} else {
			crosses = incoming.Price <= pl.Price
		}
		if !crosses {
			return
		}

		resting := pl.Front()

		if resting.ParticipantID == incoming.ParticipantID {
			incoming.Quantity = 0
			e.log.Debug().
				Uint64("incoming_order_id", incoming.ID).
				Uint64("resting_order_id", resting.ID).
				Uint64("participant_id", incoming.ParticipantID).
				Msg("self-match prevention: incoming cancelled")
			if e.metrics != nil {
				e.metrics.IncSelfMatchCancels(context.Background())
			}
			return
		}

		fillQty := min(incoming.Quantity, resting.Quantity) // built-in min (go1.21+)
		incoming.Quantity -= fillQty
		resting.Quantity -= fillQty
		pl.TotalQuantity -= fillQty

		var trade core.Trade
		if isBuy {
			trade = core.Trade{BuyOrderID: incoming.ID, SellOrderID: resting.ID, Price: pl.Price, Quantity: fillQty}
		} else {
			trade = core.Trade{BuyOrderID: resting.ID, SellOrderID: incoming.ID, Price: pl.Price, Quantity: fillQty}
		}
		e.onTrade(trade)
		if e.metrics != nil {
			e.metrics.IncTradesEmitted(context.Background(), 1)
		}

		if resting.Quantity == 0 {
			pl.Remove(resting)
			delete(e.index, resting.ID)
			e.pool.Release(resting)
		}

		if pl.IsEmpty() {
			opposite.PopBest()
		}
	}
}
