package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/fleetmatch/limitbook/pkg/testutil"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireTradeJSONShape(t *testing.T) {
	payload, err := json.Marshal(wireTrade{
		BuyOrderID:  1,
		SellOrderID: 2,
		Price:       100,
		Quantity:    5,
	})
	require.NoError(t, err)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, float64(1), decoded["buy_order_id"])
	assert.Equal(t, float64(2), decoded["sell_order_id"])
	assert.Equal(t, float64(100), decoded["price"])
	assert.Equal(t, float64(5), decoded["quantity"])
}

// TestProducerPublishesTradeToRealBroker requires a Kafka broker on
// localhost:9092 and is skipped otherwise, using the same
// skip-if-unavailable integration style as the rest of the domain
// packages.
func TestProducerPublishesTradeToRealBroker(t *testing.T) {
	const brokerAddr = "localhost:9092"
	const topic = "limitbook.trades"
	testutil.SkipIfKafkaUnavailable(t, brokerAddr)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{brokerAddr},
		Topic:       topic,
		StartOffset: kafkago.LastOffset,
	})
	defer reader.Close()

	// give the reader a moment to settle at the tail before publishing,
	// so FetchMessage below picks up only the trade this test writes.
	time.Sleep(100 * time.Millisecond)

	p := New(brokerAddr, topic, zerolog.Nop())
	defer p.Close()

	p.Trade(core.Trade{BuyOrderID: 11, SellOrderID: 22, Price: 150, Quantity: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := reader.FetchMessage(ctx)
	require.NoError(t, err)

	var decoded wireTrade
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, uint64(11), decoded.BuyOrderID)
	assert.Equal(t, uint64(22), decoded.SellOrderID)
	assert.Equal(t, uint32(150), decoded.Price)
	assert.Equal(t, uint32(3), decoded.Quantity)
}
