package engine

import (
	"math/rand"
	"testing"

	"github.com/fleetmatch/limitbook/pkg/book"
	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants walks the engine's internal state after every
// operation in a random sequence: arena/FIFO slot conservation, no
// cycles, strict per-side sort order, no empty levels, an uncrossed
// book, and an order index whose domain exactly matches what's resting.
func checkInvariants(t *testing.T, e *Engine, capacity int, lastSeq map[uint64]uint64) {
	t.Helper()

	seenInIndex := make(map[uint64]bool, len(e.index))
	for orderID := range e.index {
		seenInIndex[orderID] = true
	}

	liveOrders := 0
	checkSide := func(sb *book.SideBook, ascending bool) {
		var prevPrice uint32
		for i := 0; i < sb.Len(); i++ {
			pl := sb.At(i)
			require.False(t, pl.IsEmpty(), "no empty level may be stored")

			if i > 0 {
				if ascending {
					assert.Less(t, prevPrice, pl.Price, "bids must be strictly ascending")
				} else {
					assert.Greater(t, prevPrice, pl.Price, "asks must be strictly descending")
				}
			}
			prevPrice = pl.Price

			var sum uint32
			var ids []uint64
			for cur := pl.Front(); cur != nil; cur = cur.Next {
				sum += cur.Quantity
				liveOrders++
				ids = append(ids, cur.ID)
				require.True(t, seenInIndex[cur.ID], "every resting order must be indexed")
				delete(seenInIndex, cur.ID)

				if want, ok := lastSeq[cur.ID]; ok {
					assert.Equal(t, want, cur.Sequence)
				}
			}
			assert.Equal(t, sum, pl.TotalQuantity, "totalQuantity must equal the sum over its FIFO")

			// Backward traversal from the last-seen node must retrace the
			// same identifiers in reverse, proving there's no cycle.
			if len(ids) > 0 {
				tail := pl.Front()
				for tail.Next != nil {
					tail = tail.Next
				}
				var rev []uint64
				for cur := tail; cur != nil; cur = cur.Prev {
					rev = append(rev, cur.ID)
					require.LessOrEqual(t, len(rev), len(ids), "FIFO must not cycle")
				}
				for i, id := range ids {
					assert.Equal(t, id, rev[len(rev)-1-i])
				}
			}
		}
	}

	checkSide(e.bids, true)
	checkSide(e.asks, false)

	assert.Empty(t, seenInIndex, "index domain must equal the union of both books' FIFOs")
	assert.Equal(t, capacity, e.FreeCapacity()+liveOrders, "arena free count plus resting orders must equal capacity")

	bid, hasBid := e.BestBid()
	ask, hasAsk := e.BestAsk()
	if hasBid && hasAsk {
		assert.Less(t, bid.Price, ask.Price, "book must never be crossed")
	}
}

func TestPropertyRandomSequence(t *testing.T) {
	const capacity = 4000
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		e, err := New(Config{Capacity: capacity, Debug: true}, func(core.Trade) {})
		require.NoError(t, err)

		lastSeq := map[uint64]uint64{}
		var liveIDs []uint64
		var nextID uint64 = 1

		for op := 0; op < 300; op++ {
			if len(liveIDs) > 0 && rng.Intn(3) == 0 {
				i := rng.Intn(len(liveIDs))
				id := liveIDs[i]
				liveIDs = append(liveIDs[:i], liveIDs[i+1:]...)
				e.CancelOrder(id)
			} else {
				side := core.Buy
				if rng.Intn(2) == 1 {
					side = core.Sell
				}
				price := uint32(95 + rng.Intn(10))
				qty := uint32(1 + rng.Intn(20))
				pid := uint64(rng.Intn(5))
				id := nextID
				nextID++

				e.AddLimitOrder(side, price, qty, id, pid)
				if o, ok := e.index[id]; ok {
					lastSeq[id] = o.Sequence
					liveIDs = append(liveIDs, id)
				}
			}

			checkInvariants(t, e, capacity, lastSeq)
		}
	}
}

// TestPropertySequenceNumbersMonotonicAcrossAdds checks that the
// sequence counter strictly increases with every accepted add,
// independent of matching or resting outcome.
func TestPropertySequenceNumbersMonotonicAcrossAdds(t *testing.T) {
	e, err := New(Config{Capacity: 100}, nil)
	require.NoError(t, err)

	seen := e.sequence
	for i := uint64(0); i < 50; i++ {
		e.AddLimitOrder(core.Buy, 100, 1, i+1, 1)
		assert.Greater(t, e.sequence, seen)
		seen = e.sequence
	}
}

// TestLawQuantityConservation checks that an aggressive order's original
// quantity is fully accounted for by the sum of what it filled plus
// whatever remains resting.
func TestLawQuantityConservation(t *testing.T) {
	e, trades := newTestEngine(t, 100)

	e.AddLimitOrder(core.Sell, 100, 10, 1, 1)
	e.AddLimitOrder(core.Sell, 100, 15, 2, 2)
	e.AddLimitOrder(core.Buy, 100, 18, 3, 3)

	var filled uint32
	for _, tr := range *trades {
		if tr.BuyOrderID == 3 {
			filled += tr.Quantity
		}
	}

	var resting uint32
	if bid, ok := e.BestBid(); ok {
		resting = bid.TotalQuantity
	}

	assert.Equal(t, uint32(18), filled+resting)
}
