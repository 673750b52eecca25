// Package engine implements the MatchingEngine: a symbol-to-OrderBook
// registry that ingests normalized NOS messages, dispatches to the
// per-symbol book, runs a matching pass, and emits one ExecutionReport per
// message.
package engine

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"

	"github.com/ratikiyer/hft-exchange/internal/audit"
	"github.com/ratikiyer/hft-exchange/internal/book"
)

// symbolBook pairs a symbol with its book for the ordered registry below.
type symbolBook struct {
	symbol string
	book   *book.OrderBook
}

// MatchingEngine holds one OrderBook per symbol, created lazily on first
// reference. The registry is a tidwall/btree.BTreeG ordered by symbol name
// rather than a plain Go map, so that Snapshot() below (used by
// internal/net's LogBook handler and by tests) iterates symbols
// deterministically — Go map iteration order is randomized per-run, which
// would make repeatable multi-symbol assertions awkward.
type MatchingEngine struct {
	mu    sync.Mutex
	books *btree.BTreeG[*symbolBook]
	sink  audit.Sink
}

// New constructs an engine with no books yet created; each symbol's book
// comes into existence the first time a NOS or query references it.
func New(sink audit.Sink) *MatchingEngine {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &MatchingEngine{
		books: btree.NewBTreeG(func(a, b *symbolBook) bool { return a.symbol < b.symbol }),
		sink:  sink,
	}
}

// bookFor returns the OrderBook for symbol, creating it on first reference.
// Each book is otherwise single-writer; the engine's own registry mutation
// (creating a book) is the one place multiple callers could race, so it is
// guarded by a short-lived mutex that is never held across a book
// operation.
func (e *MatchingEngine) bookFor(symbol string) *book.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.books.Get(&symbolBook{symbol: symbol}); ok {
		return existing.book
	}

	log.Info().Str("symbol", symbol).Msg("creating order book for new symbol")
	b := book.New(symbol, e.sink)
	e.books.Set(&symbolBook{symbol: symbol, book: b})
	return b
}

// Snapshot returns every known symbol's book in symbol order, for
// diagnostics (internal/net's LogBook handler, tests).
func (e *MatchingEngine) Snapshot() []*book.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.books.Items()
	out := make([]*book.OrderBook, len(items))
	for i, it := range items {
		out[i] = it.book
	}
	return out
}
