package book

import (
	"container/list"

	"github.com/ratikiyer/hft-exchange/internal/common"
)

// PriceLevel is the time-ordered FIFO queue of resting orders at one
// (symbol, side, price). It is backed by container/list so that the handle
// returned by Insert (a *list.Element) survives any other insertion or
// erasure in the same level, a stable handle a plain growable slice cannot
// give without invalidating indices on unrelated removals.
type PriceLevel struct {
	orders   *list.List
	totalQty uint64
}

// NewPriceLevel allocates an empty level.
func NewPriceLevel() *PriceLevel {
	return &PriceLevel{orders: list.New()}
}

// Insert appends order to the tail of the level, enforcing time priority,
// and returns a handle stable across subsequent inserts/erases in this
// level.
func (l *PriceLevel) Insert(order *common.Order) *list.Element {
	l.totalQty += uint64(order.Qty)
	return l.orders.PushBack(order)
}

// Erase removes the order referenced by handle in O(1).
func (l *PriceLevel) Erase(handle *list.Element) {
	order := handle.Value.(*common.Order)
	l.totalQty -= uint64(order.Qty)
	l.orders.Remove(handle)
}

// Front returns the oldest resting order, or nil if the level is empty.
func (l *PriceLevel) Front() *common.Order {
	e := l.orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*common.Order)
}

// FrontHandle returns the handle of the oldest resting order, or nil if the
// level is empty. Used by the matching loop to erase the head once filled.
func (l *PriceLevel) FrontHandle() *list.Element {
	return l.orders.Front()
}

// Empty reports whether the level currently holds no resting orders. An
// empty level may remain allocated but is treated as absent by best-price
// maintenance.
func (l *PriceLevel) Empty() bool {
	return l.orders.Len() == 0
}

// TotalQty returns the cached sum of resting quantities at this level.
func (l *PriceLevel) TotalQty() uint64 {
	return l.totalQty
}

// adjustQty updates the cached total when an order's resting quantity
// changes in place (used by Execute's fill accounting and by decrement on
// partial match).
func (l *PriceLevel) adjustQty(delta int64) {
	l.totalQty = uint64(int64(l.totalQty) + delta)
}
