package book

import (
	"sort"

	"github.com/fleetmatch/limitbook/pkg/core"
)

// SideBook is the sorted sequence of PriceLevels for one side of the
// book. Levels are ordered so the best price is always at the back:
// bids ascending (highest bid at the back), asks descending (lowest
// ask at the back). That convention makes Best and PopBest O(1) and
// lets the match loop drain levels from the best end without shifting
// anything.
//
// The backing slice is allocated with capacity for the expected
// distinct-price working set up front (see NewSideBook) so that
// inserting a new level during steady-state operation does not
// reallocate and invalidate a *PriceLevel a caller is holding onto
// for the duration of one match cycle.
type SideBook struct {
	side   core.Side
	levels []PriceLevel
}

// NewSideBook creates an empty SideBook for side with room for
// maxLevels distinct prices before the backing slice would need to
// grow.
func NewSideBook(side core.Side, maxLevels int) *SideBook {
	return &SideBook{
		side:   side,
		levels: make([]PriceLevel, 0, maxLevels),
	}
}

// Len returns the number of distinct price levels currently resting.
func (sb *SideBook) Len() int {
	return len(sb.levels)
}

// Best returns the level at the designated-best end, or nil if the
// side is empty.
func (sb *SideBook) Best() *PriceLevel {
	if len(sb.levels) == 0 {
		return nil
	}
	return &sb.levels[len(sb.levels)-1]
}

// PopBest removes the best-end level. O(1): no other level moves.
// Callers must ensure the level is already empty. No empty level is
// ever stored.
func (sb *SideBook) PopBest() {
	if len(sb.levels) == 0 {
		return
	}
	sb.levels = sb.levels[:len(sb.levels)-1]
}

// At returns the level at position i, where i=0 is the worst price and
// i=Len()-1 is Best(). Used by tests that need to walk every level
// rather than just the best one.
func (sb *SideBook) At(i int) *PriceLevel {
	return &sb.levels[i]
}

// Find returns the level at price, or nil if no order rests there.
func (sb *SideBook) Find(price uint32) *PriceLevel {
	idx, found := sb.search(price)
	if !found {
		return nil
	}
	return &sb.levels[idx]
}

// FindOrCreate returns the level at price, creating and inserting an
// empty one at the correct sorted position if none exists yet.
func (sb *SideBook) FindOrCreate(price uint32) *PriceLevel {
	idx, found := sb.search(price)
	if found {
		return &sb.levels[idx]
	}
	return sb.insertAt(idx, price)
}

// EraseAt removes the level at an arbitrary position (not necessarily
// the best end), shifting the levels after it down by one. O(L).
func (sb *SideBook) EraseAt(price uint32) {
	idx, found := sb.search(price)
	if !found {
		return
	}
	copy(sb.levels[idx:], sb.levels[idx+1:])
	sb.levels = sb.levels[:len(sb.levels)-1]
}

// search performs a binary search for price under this side's sort
// order. It returns the index where price is (found=true) or where it
// should be inserted to keep the slice sorted (found=false).
func (sb *SideBook) search(price uint32) (idx int, found bool) {
	var pred func(int) bool
	if sb.side == core.Buy {
		// ascending: first index whose price is >= the target.
		pred = func(i int) bool { return sb.levels[i].Price >= price }
	} else {
		// descending: first index whose price is <= the target.
		pred = func(i int) bool { return sb.levels[i].Price <= price }
	}

	idx = sort.Search(len(sb.levels), pred)
	found = idx < len(sb.levels) && sb.levels[idx].Price == price
	return idx, found
}

// insertAt grows the backing slice by one level and shifts everything
// from idx onward up by one slot, in place. Capacity was reserved at
// construction so this does not reallocate in steady state.
func (sb *SideBook) insertAt(idx int, price uint32) *PriceLevel {
	sb.levels = append(sb.levels, PriceLevel{})
	copy(sb.levels[idx+1:], sb.levels[idx:len(sb.levels)-1])
	sb.levels[idx] = PriceLevel{Price: price}
	return &sb.levels[idx]
}
