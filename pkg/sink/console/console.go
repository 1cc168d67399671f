// Package console implements an engine.TradeSink that logs every fill
// through zerolog, the way the rest of the system logs everything
// else.
package console

import (
	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/rs/zerolog"
)

// Sink logs each trade at info level and appends it to an in-memory
// slice, returned by Trades, so callers can inspect fill order
// without scraping log output.
type Sink struct {
	log     zerolog.Logger
	capture []core.Trade
}

// New creates a Sink that logs through log.
func New(log zerolog.Logger) *Sink {
	return &Sink{log: log}
}

// Trade implements engine.TradeSink.
func (s *Sink) Trade(t core.Trade) {
	s.log.Info().
		Uint64("buy_order_id", t.BuyOrderID).
		Uint64("sell_order_id", t.SellOrderID).
		Uint32("price", t.Price).
		Uint32("quantity", t.Quantity).
		Msg("trade")
	s.capture = append(s.capture, t)
}

// Trades returns every trade logged so far.
func (s *Sink) Trades() []core.Trade {
	return s.capture
}
