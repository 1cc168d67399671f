// Package book implements the price-level FIFO and the per-side
// sorted sequence of price levels the matching engine matches against.
// Both are translated directly from the original reference
// implementation's price_level.h/.cpp and the vector<PriceLevel>
// side books in order_book.h.
package book

import "github.com/fleetmatch/limitbook/pkg/arena"

// PriceLevel is the FIFO of resting orders at one price, on one side.
// Orders are linked through their own Next/Prev fields (package
// arena). The level holds no order storage of its own, only head and
// tail pointers and a cached aggregate quantity.
type PriceLevel struct {
	Price         uint32
	TotalQuantity uint32

	head *arena.Order
	tail *arena.Order
}

// Front returns the head of the FIFO (the next order to match, by
// time priority), or nil if the level is empty.
func (pl *PriceLevel) Front() *arena.Order {
	return pl.head
}

// IsEmpty reports whether the level has no resting orders.
func (pl *PriceLevel) IsEmpty() bool {
	return pl.head == nil
}

// PushBack appends o to the tail of the FIFO and adds its quantity to
// TotalQuantity. o must not already be linked into any FIFO.
func (pl *PriceLevel) PushBack(o *arena.Order) {
	o.Next = nil
	o.Prev = pl.tail

	if pl.tail == nil {
		pl.head = o
		pl.tail = o
	} else {
		pl.tail.Next = o
		pl.tail = o
	}

	pl.TotalQuantity += o.Quantity
}

// Remove splices o out of the FIFO, wherever it is, and subtracts its
// quantity from TotalQuantity. o must already be linked into this
// level; this is not checked.
func (pl *PriceLevel) Remove(o *arena.Order) {
	if o.Prev != nil {
		o.Prev.Next = o.Next
	} else {
		pl.head = o.Next
	}

	if o.Next != nil {
		o.Next.Prev = o.Prev
	} else {
		pl.tail = o.Prev
	}

	pl.TotalQuantity -= o.Quantity

	o.Next = nil
	o.Prev = nil
}
