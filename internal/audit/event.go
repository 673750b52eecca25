// Package audit implements the durable, append-only event log the book
// writes every state-changing operation to: ADD, CANCEL, MODIFY, MATCH.
package audit

import "github.com/ratikiyer/hft-exchange/internal/common"

// Kind tags the sort of state change an Event records.
type Kind uint8

const (
	Add Kind = iota
	Cancel
	Modify
	Match
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "ADD"
	case Cancel:
		return "CANCEL"
	case Modify:
		return "MODIFY"
	case Match:
		return "MATCH"
	default:
		return "UNKNOWN"
	}
}

// Event is the tagged audit record: primary fields describe the order the
// operation is about, secondary fields carry the old-order snapshot
// (MODIFY) or the opposing-side order (MATCH). Secondary fields are zero
// for ADD/CANCEL.
type Event struct {
	Timestamp uint64
	ID        common.OrderID
	Kind      Kind
	Price     uint32
	Qty       uint64
	Side      common.Side

	ID2    common.OrderID
	Price2 uint32
	Qty2   uint64
	Side2  common.Side
}

// Sink is the producer-facing interface the book depends on. Decoupling the
// book from a concrete sink implementation keeps the matching core free of
// any dependency on how (or whether) events are persisted.
type Sink interface {
	Enqueue(Event)
}

// Discard is a no-op Sink, useful for tests that don't care about the audit
// trail.
type Discard struct{}

func (Discard) Enqueue(Event) {}
