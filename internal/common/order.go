package common

import "fmt"

// Order is the identity-plus-bookkeeping record the book operates on. ID is
// immutable once accepted; Price/Qty/Side may change under Modify, and Qty
// is decremented in place by Execute.
type Order struct {
	ID        OrderID
	Symbol    string
	Side      Side
	Type      OrderType
	Price     uint32 // ticks, 0 <= Price <= MaxPrice
	Qty       uint32 // remaining quantity; > 0 while resting
	Timestamp uint64 // nanoseconds since a monotonic epoch
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s symbol=%s side=%s type=%s price=%d qty=%d ts=%d}",
		o.ID, o.Symbol, o.Side, o.Type, o.Price, o.Qty, o.Timestamp,
	)
}
