package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/fleetmatch/limitbook/pkg/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClaim and fakeSession stand in for a real broker so
// groupHandler.ConsumeClaim can be exercised without one.
type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (f *fakeClaim) Topic() string                             { return "limitbook.trades" }
func (f *fakeClaim) Partition() int32                          { return 0 }
func (f *fakeClaim) InitialOffset() int64                      { return 0 }
func (f *fakeClaim) HighWaterMarkOffset() int64                { return 0 }
func (f *fakeClaim) Messages() <-chan *sarama.ConsumerMessage  { return f.messages }

type fakeSession struct {
	marked []int64
}

func (f *fakeSession) Claims() map[string][]int32               { return nil }
func (f *fakeSession) MemberID() string                         { return "fake" }
func (f *fakeSession) GenerationID() int32                      { return 0 }
func (f *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (f *fakeSession) Commit()                                  {}
func (f *fakeSession) ResetOffset(string, int32, int64, string) {}
func (f *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	f.marked = append(f.marked, msg.Offset)
}
func (f *fakeSession) Context() context.Context { return context.Background() }

func TestGroupHandlerConsumeClaimRoundTrip(t *testing.T) {
	var got []Record
	handle := func(r Record) error {
		got = append(got, r)
		return nil
	}
	h := &groupHandler{handle: handle, log: zerolog.Nop()}

	rec := Record{BuyOrderID: 1, SellOrderID: 2, Price: 100, Quantity: 5}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Value: payload, Offset: 42}
	close(claim.messages)

	sess := &fakeSession{}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
	assert.Equal(t, []int64{42}, sess.marked)
}

func TestGroupHandlerConsumeClaimSkipsMalformedRecord(t *testing.T) {
	var calls int
	handle := func(Record) error {
		calls++
		return nil
	}
	h := &groupHandler{handle: handle, log: zerolog.Nop()}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Value: []byte("not json"), Offset: 1}
	close(claim.messages)

	sess := &fakeSession{}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Zero(t, calls, "a malformed record must not reach the handler")
	assert.Equal(t, []int64{1}, sess.marked, "a malformed record is still marked so it is not retried forever")
}

func TestGroupHandlerConsumeClaimLogsHandlerError(t *testing.T) {
	handle := func(Record) error { return assert.AnError }
	h := &groupHandler{handle: handle, log: zerolog.Nop()}

	rec := Record{BuyOrderID: 7, SellOrderID: 8, Price: 1, Quantity: 1}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Value: payload, Offset: 5}
	close(claim.messages)

	sess := &fakeSession{}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Equal(t, []int64{5}, sess.marked, "a failed handler call still advances the offset")
}

// TestConsumerConnectsToRealBroker requires a Kafka broker on
// localhost:9092 and is skipped otherwise, using the same
// skip-if-unavailable integration style as the rest of the domain
// packages.
func TestConsumerConnectsToRealBroker(t *testing.T) {
	const brokerAddr = "localhost:9092"
	testutil.SkipIfKafkaUnavailable(t, brokerAddr)

	c, err := New([]string{brokerAddr}, "limitbook-audit-test", "limitbook.trades", zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Run(ctx, func(Record) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
