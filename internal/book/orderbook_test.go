package book

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratikiyer/hft-exchange/internal/common"
)

func newOrder(side common.Side, price, qty uint32) common.Order {
	return common.Order{
		ID:     uuid.New(),
		Symbol: "AAPL",
		Side:   side,
		Type:   common.Limit,
		Price:  price,
		Qty:    qty,
	}
}

// S1: a resting ask crossed by an incoming bid matches in full.
func TestExecute_BasicCross(t *testing.T) {
	b := New("AAPL", nil)

	ask := newOrder(common.Sell, 100, 10)
	require.NoError(t, b.Add(ask))

	bid := newOrder(common.Buy, 100, 10)
	require.NoError(t, b.Add(bid))

	b.Execute()

	assert.False(t, b.Contains(ask.ID))
	assert.False(t, b.Contains(bid.ID))
	_, hasBid := b.BestBid()
	_, hasAsk := b.BestAsk()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

// S2: one large incoming order cascades across several resting levels.
func TestExecute_CascadingMatch(t *testing.T) {
	b := New("AAPL", nil)

	require.NoError(t, b.Add(newOrder(common.Sell, 100, 5)))
	require.NoError(t, b.Add(newOrder(common.Sell, 101, 5)))
	top := newOrder(common.Sell, 102, 5)
	require.NoError(t, b.Add(top))

	bid := newOrder(common.Buy, 102, 12)
	require.NoError(t, b.Add(bid))

	b.Execute()

	// The bid fills 5+5+2 and is gone; 3 remain on the ask at 102.
	assert.Equal(t, uint32(3), b.QtyRemaining(top.ID))
	price, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint32(102), price)
}

// S3: invalid inputs are rejected without mutating the book.
func TestAdd_InvalidInputsRejected(t *testing.T) {
	b := New("AAPL", nil)

	bad := newOrder(common.Buy, 100, 10)
	bad.Side = common.Side(7)
	assert.ErrorIs(t, b.Add(bad), ErrInvalidSide)

	tooHigh := newOrder(common.Buy, common.MaxPrice+1, 10)
	assert.ErrorIs(t, b.Add(tooHigh), ErrInvalidPrice)

	dup := newOrder(common.Buy, 100, 10)
	require.NoError(t, b.Add(dup))
	assert.ErrorIs(t, b.Add(dup), ErrDuplicateID)

	_, hasBid := b.BestBid()
	assert.True(t, hasBid)
}

// S4: a modify that relocates an order to a new price moves it to that
// level; the order left at the better price keeps the best bid and fills
// first.
func TestModify_Relocates(t *testing.T) {
	b := New("AAPL", nil)

	first := newOrder(common.Buy, 100, 10)
	second := newOrder(common.Buy, 100, 10)
	require.NoError(t, b.Add(first))
	require.NoError(t, b.Add(second))

	moved := second
	moved.Price = 99
	require.NoError(t, b.Modify(second.ID, moved))

	price, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint32(100), price)
	assert.Equal(t, uint32(10), b.QtyRemaining(second.ID))

	ask := newOrder(common.Sell, 99, 20)
	require.NoError(t, b.Add(ask))
	b.Execute()

	// first (still at 100, queued before second's relocation) fills before
	// the order resting at 99.
	assert.Equal(t, uint32(0), b.QtyRemaining(first.ID))
}

// S5: observers on a newly constructed, empty book see no best price either
// side.
func TestEmptyBook_NoObservableBest(t *testing.T) {
	b := New("AAPL", nil)

	_, hasBid := b.BestBid()
	_, hasAsk := b.BestAsk()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
	assert.False(t, b.Contains(uuid.New()))
	assert.Equal(t, uint32(0), b.QtyRemaining(uuid.New()))
}

// S6: orders sitting exactly at the MaxPrice boundary are accepted and
// matchable.
func TestBoundary_AtMaxPrice(t *testing.T) {
	b := New("AAPL", nil)

	ask := newOrder(common.Sell, common.MaxPrice, 5)
	require.NoError(t, b.Add(ask))

	bid := newOrder(common.Buy, common.MaxPrice, 5)
	require.NoError(t, b.Add(bid))

	b.Execute()

	assert.False(t, b.Contains(ask.ID))
	assert.False(t, b.Contains(bid.ID))
}

// Cancel removes the order and, if it was the lone order at the best price,
// repairs the best-price cursor.
func TestCancel_RepairsBestPrice(t *testing.T) {
	b := New("AAPL", nil)

	top := newOrder(common.Buy, 100, 10)
	under := newOrder(common.Buy, 99, 10)
	require.NoError(t, b.Add(top))
	require.NoError(t, b.Add(under))

	require.NoError(t, b.Cancel(top.ID))

	price, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint32(99), price)
}

func TestCancel_UnknownOrder(t *testing.T) {
	b := New("AAPL", nil)
	assert.ErrorIs(t, b.Cancel(uuid.New()), ErrOrderNotFound)
}

// Partial fills leave the resting order queued with reduced quantity, still
// at the front of its level.
func TestExecute_PartialFillRemainsQueued(t *testing.T) {
	b := New("AAPL", nil)

	resting := newOrder(common.Sell, 100, 10)
	require.NoError(t, b.Add(resting))

	incoming := newOrder(common.Buy, 100, 4)
	require.NoError(t, b.Add(incoming))

	b.Execute()

	assert.True(t, b.Contains(resting.ID))
	assert.Equal(t, uint32(6), b.QtyRemaining(resting.ID))
	assert.False(t, b.Contains(incoming.ID))
}
