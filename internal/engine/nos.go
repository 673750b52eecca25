package engine

import (
	"github.com/ratikiyer/hft-exchange/internal/common"
	"github.com/ratikiyer/hft-exchange/internal/metrics"
)

// NOS is the normalized New-Order-Single record, already decoded from
// whatever wire format internal/net used to receive it.
type NOS struct {
	OrderID   common.OrderID
	Symbol    string
	Side      common.Side
	Type      common.OrderType
	Price     uint32
	Qty       uint32
	Timestamp uint64
}

// ExecID identifies the order an ExecutionReport describes: the composite
// of symbol and 16-byte order id.
type ExecID struct {
	Symbol string
	ID     common.OrderID
}

// ExecutionReport is the outbound record describing a NOS's outcome.
type ExecutionReport struct {
	OrderID   ExecID
	FillPx    uint32
	FillQty   uint32
	LeavesQty uint32
	Reject    bool
	Text      string
}

// OnNOS resolves/creates the book for nos.Symbol, applies the type-specific
// price pre-processing (LIMIT as given, MARKET repriced to the opposing
// best, IOC as a limit followed by a residual cancel), calls Add then
// Execute, and returns exactly one ExecutionReport describing the outcome.
// A reject is any non-nil error from Add; no order ever reaches Execute in
// that case.
func (e *MatchingEngine) OnNOS(nos NOS) ExecutionReport {
	b := e.bookFor(nos.Symbol)
	id := ExecID{Symbol: nos.Symbol, ID: nos.OrderID}

	order := common.Order{
		ID:        nos.OrderID,
		Symbol:    nos.Symbol,
		Side:      nos.Side,
		Type:      nos.Type,
		Price:     nos.Price,
		Qty:       nos.Qty,
		Timestamp: nos.Timestamp,
	}

	switch nos.Type {
	case common.Market:
		order.Price = marketPrice(b, nos.Side)
	case common.IOC, common.Limit:
		// Inserted at the supplied limit price.
	}

	if err := b.Add(order); err != nil {
		metrics.Rejects.WithLabelValues(err.Error()).Inc()
		return ExecutionReport{
			OrderID: id,
			Reject:  true,
			Text:    err.Error(),
		}
	}

	b.Execute()

	remaining := b.QtyRemaining(order.ID)

	if nos.Type == common.IOC && b.Contains(order.ID) {
		// Immediate-Or-Cancel: match what could be matched now, cancel the
		// rest rather than letting it rest on the book. remaining was
		// already captured above, so the cancel doesn't erase the fill
		// accounting.
		_ = b.Cancel(order.ID)
	}

	return ExecutionReport{
		OrderID:   id,
		FillPx:    order.Price,
		FillQty:   nos.Qty - remaining,
		LeavesQty: remaining,
	}
}

// marketPrice rewrites a market order's price to the current best of the
// opposing side: BUY -> best ask if present else MaxPrice; SELL -> best bid
// if present else 0.
func marketPrice(b bookQuerier, side common.Side) uint32 {
	if side == common.Buy {
		if p, ok := b.BestAsk(); ok {
			return p
		}
		return common.MaxPrice
	}
	if p, ok := b.BestBid(); ok {
		return p
	}
	return 0
}

// bookQuerier is the minimal surface marketPrice needs, kept as an
// interface purely so it is trivially testable in isolation.
type bookQuerier interface {
	BestBid() (uint32, bool)
	BestAsk() (uint32, bool)
}

// CancelOrder removes a resting order from the named symbol's book. Unlike
// OnNOS this does not produce an ExecutionReport; internal/net maps the
// returned error onto its own error-report wire message.
func (e *MatchingEngine) CancelOrder(symbol string, id common.OrderID) error {
	b := e.bookFor(symbol)
	return b.Cancel(id)
}
