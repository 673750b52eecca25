// Package book implements the per-symbol limit order book: the bid/ask
// ladders, the order-id index, best-bid/best-ask maintenance, and price-time
// priority matching.
package book

import (
	"container/list"
	"errors"

	"github.com/ratikiyer/hft-exchange/internal/audit"
	"github.com/ratikiyer/hft-exchange/internal/common"
	"github.com/ratikiyer/hft-exchange/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Error taxonomy at the book API: returned values, not exceptional control
// flow. No error leaves the book in an inconsistent state; every check runs
// before any mutation for that path.
var (
	ErrDuplicateID   = errors.New("duplicate order id")
	ErrInvalidSide   = errors.New("invalid side")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrOrderNotFound = errors.New("order not found")
)

// orderLocation is the OrderIdIndex's value: where in the book an id
// currently lives, and a stable handle into that level's order sequence.
type orderLocation struct {
	side   common.Side
	price  uint32
	handle *list.Element
}

// OrderBook owns the bid ladder and ask ladder for one symbol, the order-id
// index, and the best-bid/best-ask cursors. Single-writer: every exported
// method is expected to run serially on the goroutine owning this symbol's
// partition; OrderBook performs no internal locking.
type OrderBook struct {
	Symbol string

	bids Ladder
	asks Ladder

	index map[common.OrderID]orderLocation

	// bestBidPrice uses the sentinel "0, with bids[0] empty" to mean "no
	// bids"; bestAskPrice uses the explicit sentinel MaxPrice+1.
	bestBidPrice uint32
	bestAskPrice uint32

	sink audit.Sink
}

// New constructs an empty book for symbol, with audit events routed to
// sink. A nil sink is replaced with audit.Discard so tests and tools that
// don't care about the audit trail don't need to wire one up.
func New(symbol string, sink audit.Sink) *OrderBook {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &OrderBook{
		Symbol:       symbol,
		index:        make(map[common.OrderID]orderLocation),
		bestBidPrice: 0,
		bestAskPrice: common.MaxPrice + 1,
		sink:         sink,
	}
}

// Contains reports whether id currently rests in this book.
func (b *OrderBook) Contains(id common.OrderID) bool {
	_, ok := b.index[id]
	return ok
}

// QtyRemaining returns the resting quantity of id, or 0 if it is not
// present (fully filled or never existed).
func (b *OrderBook) QtyRemaining(id common.OrderID) uint32 {
	loc, ok := b.index[id]
	if !ok {
		return 0
	}
	return loc.handle.Value.(*common.Order).Qty
}

// BestBid returns the best (highest) resting bid price, or ok=false if the
// book currently holds no bids.
func (b *OrderBook) BestBid() (price uint32, ok bool) {
	lvl := b.bids.get(b.bestBidPrice)
	if lvl == nil || lvl.Empty() {
		return 0, false
	}
	return b.bestBidPrice, true
}

// BestAsk returns the best (lowest) resting ask price, or ok=false if the
// book currently holds no asks.
func (b *OrderBook) BestAsk() (price uint32, ok bool) {
	if b.bestAskPrice > common.MaxPrice {
		return 0, false
	}
	lvl := b.asks.get(b.bestAskPrice)
	if lvl == nil || lvl.Empty() {
		return 0, false
	}
	return b.bestAskPrice, true
}

// ladderFor returns the ladder an order of the given side rests on.
func (b *OrderBook) ladderFor(side common.Side) *Ladder {
	if side == common.Buy {
		return &b.bids
	}
	return &b.asks
}

// Add inserts a new order into the book. Rejects a duplicate id, an invalid
// side, or a price above MaxPrice, leaving the book untouched in every
// rejection case (checks run before any mutation).
func (b *OrderBook) Add(order common.Order) error {
	if !order.Side.Valid() {
		return ErrInvalidSide
	}
	if order.Price > common.MaxPrice {
		return ErrInvalidPrice
	}
	if b.Contains(order.ID) {
		return ErrDuplicateID
	}

	stored := order
	ladder := b.ladderFor(order.Side)
	level := ladder.at(order.Price)
	handle := level.Insert(&stored)

	b.index[order.ID] = orderLocation{side: order.Side, price: order.Price, handle: handle}
	b.updateBestOnInsert(order.Side, order.Price)

	b.sink.Enqueue(audit.Event{
		Timestamp: order.Timestamp,
		ID:        order.ID,
		Kind:      audit.Add,
		Price:     order.Price,
		Qty:       uint64(order.Qty),
		Side:      order.Side,
	})
	b.publishBestPriceMetrics()
	return nil
}

// publishBestPriceMetrics refreshes the Prometheus best-bid/best-ask gauges
// for this symbol. Called after every operation that can move a cursor.
func (b *OrderBook) publishBestPriceMetrics() {
	if p, ok := b.BestBid(); ok {
		metrics.BestBid.WithLabelValues(b.Symbol).Set(float64(p))
	} else {
		metrics.BestBid.DeleteLabelValues(b.Symbol)
	}
	if p, ok := b.BestAsk(); ok {
		metrics.BestAsk.WithLabelValues(b.Symbol).Set(float64(p))
	} else {
		metrics.BestAsk.DeleteLabelValues(b.Symbol)
	}
}

// updateBestOnInsert widens the best-price cursor if price improves on it.
func (b *OrderBook) updateBestOnInsert(side common.Side, price uint32) {
	if side == common.Buy {
		if price > b.bestBidPrice {
			b.bestBidPrice = price
		}
		return
	}
	if price < b.bestAskPrice {
		b.bestAskPrice = price
	}
}

// Cancel removes an order from the book and purges it from the id index.
func (b *OrderBook) Cancel(id common.OrderID) error {
	loc, ok := b.index[id]
	if !ok {
		return ErrOrderNotFound
	}
	if loc.price > common.MaxPrice {
		// Defensive check on the stored location; should be unreachable
		// given Add/Modify validate price before storing it.
		return ErrInvalidPrice
	}

	ladder := b.ladderFor(loc.side)
	level := ladder.get(loc.price)
	order := *loc.handle.Value.(*common.Order)

	level.Erase(loc.handle)
	delete(b.index, id)

	if level.Empty() {
		b.repairBestAfterEmpty(loc.side, loc.price)
	}

	b.sink.Enqueue(audit.Event{
		Timestamp: order.Timestamp,
		ID:        order.ID,
		Kind:      audit.Cancel,
		Price:     order.Price,
		Qty:       uint64(order.Qty),
		Side:      order.Side,
	})
	b.publishBestPriceMetrics()
	return nil
}

// Modify changes an existing order's price/side/qty. Two regimes: an
// in-place modify (same price and side) erases and reinserts within the
// same level, which loses time priority by design, since the old handle
// cannot be reused once the order's indexing fields change. A relocating
// modify removes from the old level (repairing best price if it empties)
// and inserts into the new one.
func (b *OrderBook) Modify(id common.OrderID, newOrder common.Order) error {
	loc, ok := b.index[id]
	if !ok {
		return ErrOrderNotFound
	}
	if !newOrder.Side.Valid() {
		return ErrInvalidSide
	}
	if newOrder.Price > common.MaxPrice {
		return ErrInvalidPrice
	}

	oldSnapshot := *loc.handle.Value.(*common.Order)

	result := newOrder
	result.ID = id

	oldLadder := b.ladderFor(loc.side)
	oldLevel := oldLadder.get(loc.price)
	oldLevel.Erase(loc.handle)

	samePlace := loc.side == result.Side && loc.price == result.Price
	if !samePlace && oldLevel.Empty() {
		b.repairBestAfterEmpty(loc.side, loc.price)
	}

	newLadder := b.ladderFor(result.Side)
	newLevel := newLadder.at(result.Price)
	handle := newLevel.Insert(&result)

	b.index[id] = orderLocation{side: result.Side, price: result.Price, handle: handle}
	b.updateBestOnInsert(result.Side, result.Price)

	b.sink.Enqueue(audit.Event{
		Timestamp: result.Timestamp,
		ID:        result.ID,
		Kind:      audit.Modify,
		Price:     result.Price,
		Qty:       uint64(result.Qty),
		Side:      result.Side,
		ID2:       oldSnapshot.ID,
		Price2:    oldSnapshot.Price,
		Qty2:      uint64(oldSnapshot.Qty),
		Side2:     oldSnapshot.Side,
	})
	b.publishBestPriceMetrics()
	return nil
}

// repairBestAfterEmpty scans outward from a just-emptied best price until it
// finds a non-empty level or hits the sentinel.
func (b *OrderBook) repairBestAfterEmpty(side common.Side, emptied uint32) {
	if side == common.Buy {
		if emptied != b.bestBidPrice {
			return
		}
		for p := emptied; ; p-- {
			lvl := b.bids.get(p)
			if lvl != nil && !lvl.Empty() {
				b.bestBidPrice = p
				return
			}
			if p == 0 {
				b.bestBidPrice = 0
				return
			}
		}
	}

	if emptied != b.bestAskPrice {
		return
	}
	for p := emptied; p <= common.MaxPrice; p++ {
		lvl := b.asks.get(p)
		if lvl != nil && !lvl.Empty() {
			b.bestAskPrice = p
			return
		}
	}
	b.bestAskPrice = common.MaxPrice + 1
}

// Execute runs the matching loop: while the book is crossed (best bid >=
// best ask) and both levels are non-empty, it takes the head order from
// each (FIFO, enforcing time priority), fills the smaller remaining
// quantity, and emits a MATCH audit event per step. Fully-filled orders are
// removed from their level and the id index. Loop terminates when the book
// is no longer crossed or one side empties.
func (b *OrderBook) Execute() {
	defer b.publishBestPriceMetrics()
	for {
		bidPrice, bidOk := b.BestBid()
		askPrice, askOk := b.BestAsk()
		if !bidOk || !askOk || bidPrice < askPrice {
			return
		}

		bidLevel := b.bids.get(bidPrice)
		askLevel := b.asks.get(askPrice)
		bidHandle := bidLevel.FrontHandle()
		askHandle := askLevel.FrontHandle()
		if bidHandle == nil || askHandle == nil {
			b.checkFatal(bidLevel, askLevel)
			return
		}

		bidOrder := bidHandle.Value.(*common.Order)
		askOrder := askHandle.Value.(*common.Order)

		matchQty := min32(bidOrder.Qty, askOrder.Qty)

		bidOrder.Qty -= matchQty
		askOrder.Qty -= matchQty
		bidLevel.adjustQty(-int64(matchQty))
		askLevel.adjustQty(-int64(matchQty))

		metrics.Matches.WithLabelValues(b.Symbol).Inc()

		b.sink.Enqueue(audit.Event{
			Timestamp: bidOrder.Timestamp,
			ID:        bidOrder.ID,
			Kind:      audit.Match,
			Price:     bidOrder.Price,
			Qty:       uint64(matchQty),
			Side:      common.Buy,
			ID2:       askOrder.ID,
			Price2:    askOrder.Price,
			Qty2:      uint64(matchQty),
			Side2:     common.Sell,
		})

		if bidOrder.Qty == 0 {
			bidLevel.Erase(bidHandle)
			delete(b.index, bidOrder.ID)
		}
		if askOrder.Qty == 0 {
			askLevel.Erase(askHandle)
			delete(b.index, askOrder.ID)
		}

		if bidLevel.Empty() {
			b.repairBestAfterEmpty(common.Buy, bidPrice)
		}
		if askLevel.Empty() {
			b.repairBestAfterEmpty(common.Sell, askPrice)
		}
	}
}

// checkFatal is reached only if a level's cached emptiness and its front
// handle disagree, an index/ladder invariant violation and a programmer
// error: abort rather than attempt to self-repair.
func (b *OrderBook) checkFatal(bidLevel, askLevel *PriceLevel) {
	log.Fatal().
		Str("symbol", b.Symbol).
		Bool("bidEmpty", bidLevel.Empty()).
		Bool("askEmpty", askLevel.Empty()).
		Msg("order book invariant violation: crossed levels with no front order")
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
