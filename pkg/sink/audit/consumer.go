// Package audit consumes the trade topic a kafka.Producer publishes
// to and replays it for reconciliation, using a sarama consumer group
// rather than the segmentio client the producer side uses: one client
// per role, segmentio/kafka-go for writes and IBM/sarama for consumer
// groups.
package audit

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Record is the decoded shape of a trade read back off the topic.
type Record struct {
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       uint32 `json:"price"`
	Quantity    uint32 `json:"quantity"`
}

// Handler is invoked once per consumed trade record. Returning an
// error does not stop consumption; it is logged and the message is
// still marked consumed, since audit replay should not stall on one
// bad record.
type Handler func(Record) error

// Consumer wraps a sarama consumer group reading one topic.
type Consumer struct {
	group sarama.ConsumerGroup
	topic string
	log   zerolog.Logger
}

// New creates a Consumer for groupID reading topic from brokers.
func New(brokers []string, groupID, topic string, log zerolog.Logger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Version = sarama.V2_8_0_0

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{group: group, topic: topic, log: log}, nil
}

// Run blocks, dispatching every trade record on the topic to handle,
// until ctx is cancelled or the consumer group errors out.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error().Err(err).Msg("audit consumer group error")
		}
	}()

	h := &groupHandler{handle: handle, log: c.log}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handle Handler
	log    zerolog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var rec Record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			h.log.Error().Err(err).Msg("failed to decode audit record")
			sess.MarkMessage(msg, "")
			continue
		}
		if err := h.handle(rec); err != nil {
			h.log.Error().Err(err).Msg("audit handler failed")
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
