package book

import "github.com/ratikiyer/hft-exchange/internal/common"

// Ladder is the dense, price-indexed array of PriceLevels for one side of
// one symbol's book. Prices are small, bounded integers, so a dense array
// gives O(1) level lookup and an O(price span) worst case for best-price
// rescans, which is cheap given the bound on price. Levels are lazily
// allocated on first insertion at that price and then persist (possibly
// empty) for the book's lifetime.
type Ladder [common.MaxPrice + 1]*PriceLevel

// at returns the level at price, creating it if this is the first reference.
func (l *Ladder) at(price uint32) *PriceLevel {
	if l[price] == nil {
		l[price] = NewPriceLevel()
	}
	return l[price]
}

// get returns the level at price without creating it, or nil.
func (l *Ladder) get(price uint32) *PriceLevel {
	return l[price]
}
