// Package kafka implements an engine.TradeSink that publishes every
// fill to a Kafka topic, for downstream settlement or audit consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// wireTrade is the JSON shape published to the topic. Kept separate
// from core.Trade so the wire format doesn't silently change shape if
// the engine's internal struct ever does.
type wireTrade struct {
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       uint32 `json:"price"`
	Quantity    uint32 `json:"quantity"`
}

// Producer publishes trades to Kafka via the segmentio client. Writes
// are synchronous from the caller's perspective: Trade blocks until
// the broker acknowledges the message or the write timeout elapses.
type Producer struct {
	writer  *kafkago.Writer
	log     zerolog.Logger
	timeout time.Duration
}

// New creates a Producer writing to topic on the given broker.
func New(brokerAddr, topic string, log zerolog.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokerAddr),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Trade implements engine.TradeSink. Errors are logged, not returned
// or panicked, since the sink runs synchronously inside the engine's
// hot path and must not unwind into it.
func (p *Producer) Trade(t core.Trade) {
	payload, err := json.Marshal(wireTrade{
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price,
		Quantity:    t.Quantity,
	})
	if err != nil {
		p.log.Error().Err(err).Msg("failed to marshal trade for kafka")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(fmt.Sprintf("%d-%d", t.BuyOrderID, t.SellOrderID)),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Msg("failed to publish trade to kafka")
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
