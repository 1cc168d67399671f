// Package arena provides the fixed-capacity order pool the matching
// engine draws order handles from. It is a direct translation of the
// original reference implementation's OrderPool (order_pool.h/.cpp):
// a contiguous slice of Order records threaded into a free list
// through each record's own next pointer.
//
// Capacity is fixed at construction. The engine is responsible for
// sizing it to the peak number of simultaneously live orders (resting
// plus the one in-flight incoming order); Allocate panics if the pool
// is exhausted, since that means the caller under-sized capacity, a
// programmer error, not a recoverable condition.
package arena

import "github.com/fleetmatch/limitbook/pkg/core"

// Order is a single resting or in-flight order record. Next/Prev are
// intrusive links: while free, they thread the arena's free list;
// while allocated and resting, they thread the owning PriceLevel's
// FIFO (package book). An Order never belongs to both at once.
type Order struct {
	ID            uint64
	Price         uint32
	Quantity      uint32
	Sequence      uint64
	Side          core.Side
	ParticipantID uint64

	Next *Order
	Prev *Order

	slot int // fixed index into the owning Arena's backing slice
}

// Arena is a fixed-capacity pool of Order records with O(1)
// acquire/release via an intrusive free list. The backing slice is
// allocated once, at construction, and never grows. Pointers into it
// are stable for the arena's lifetime.
type Arena struct {
	orders    []Order
	freeList  *Order
	freeCount int
	allocated []bool // debug-only double-release guard, checked in Release
	debug     bool
}

// New creates an Arena with room for exactly capacity orders. debug
// enables a parallel allocation bit per slot that Release checks to
// catch double-release during testing; reads or writes through a
// released handle are not detected. Production callers should pass
// false to skip the extra bookkeeping.
func New(capacity int, debug bool) *Arena {
	if capacity <= 0 {
		panic("arena: capacity must be positive")
	}

	a := &Arena{
		orders:    make([]Order, capacity),
		freeCount: capacity,
		debug:     debug,
	}
	if debug {
		a.allocated = make([]bool, capacity)
	}

	// Thread every slot onto the free list. Order of threading doesn't
	// matter for correctness, only that every slot ends up reachable.
	for i := range a.orders {
		a.orders[i].slot = i
		a.orders[i].Next = a.freeList
		a.freeList = &a.orders[i]
	}

	return a
}

// Capacity returns the arena's fixed slot count.
func (a *Arena) Capacity() int {
	return len(a.orders)
}

// FreeCount returns the number of slots not currently linked into any
// FIFO. FreeCount plus the number of orders resting across both sides
// always equals Capacity.
func (a *Arena) FreeCount() int {
	return a.freeCount
}

// Allocate returns a free Order handle, with Next/Prev reset to nil.
// Panics if the pool is exhausted. Callers must size capacity to the
// peak number of simultaneously live orders.
func (a *Arena) Allocate() *Order {
	if a.freeList == nil {
		panic("arena: capacity exceeded")
	}

	o := a.freeList
	a.freeList = o.Next
	a.freeCount--

	o.Next = nil
	o.Prev = nil

	if a.debug {
		a.allocated[o.slot] = true
	}

	return o
}

// Release returns an order's slot to the free list. The caller must
// have already unlinked it from any PriceLevel FIFO and erased it
// from the order index. Panics on a nil handle or on double-release
// when debug tracking is enabled.
func (a *Arena) Release(o *Order) {
	if o == nil {
		panic("arena: release of nil order")
	}

	if a.debug {
		if !a.allocated[o.slot] {
			panic("arena: double release")
		}
		a.allocated[o.slot] = false
	}

	o.Next = a.freeList
	o.Prev = nil
	a.freeList = o
	a.freeCount++
}
