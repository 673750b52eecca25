package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratikiyer/hft-exchange/internal/common"
)

func TestOnNOS_LimitRestsThenMatches(t *testing.T) {
	e := New(nil)

	ask := NOS{OrderID: uuid.New(), Symbol: "AAPL", Side: common.Sell, Type: common.Limit, Price: 100, Qty: 10}
	rep := e.OnNOS(ask)
	assert.False(t, rep.Reject)
	assert.Equal(t, uint32(0), rep.FillQty)
	assert.Equal(t, uint32(10), rep.LeavesQty)

	bid := NOS{OrderID: uuid.New(), Symbol: "AAPL", Side: common.Buy, Type: common.Limit, Price: 100, Qty: 10}
	rep = e.OnNOS(bid)
	assert.False(t, rep.Reject)
	assert.Equal(t, uint32(10), rep.FillQty)
	assert.Equal(t, uint32(0), rep.LeavesQty)
}

func TestOnNOS_MarketBuyRepricedToBestAsk(t *testing.T) {
	e := New(nil)

	require.False(t, e.OnNOS(NOS{
		OrderID: uuid.New(), Symbol: "AAPL", Side: common.Sell, Type: common.Limit, Price: 105, Qty: 10,
	}).Reject)

	rep := e.OnNOS(NOS{OrderID: uuid.New(), Symbol: "AAPL", Side: common.Buy, Type: common.Market, Qty: 10})
	assert.Equal(t, uint32(105), rep.FillPx)
	assert.Equal(t, uint32(10), rep.FillQty)
}

func TestOnNOS_MarketBuyNoLiquidityUsesMaxPrice(t *testing.T) {
	e := New(nil)
	rep := e.OnNOS(NOS{OrderID: uuid.New(), Symbol: "AAPL", Side: common.Buy, Type: common.Market, Qty: 10})
	assert.False(t, rep.Reject)
	assert.Equal(t, common.MaxPrice, rep.FillPx)
	assert.Equal(t, uint32(10), rep.LeavesQty)
}

func TestOnNOS_IOCResidualIsCancelled(t *testing.T) {
	e := New(nil)

	require.False(t, e.OnNOS(NOS{
		OrderID: uuid.New(), Symbol: "AAPL", Side: common.Sell, Type: common.Limit, Price: 100, Qty: 4,
	}).Reject)

	id := uuid.New()
	rep := e.OnNOS(NOS{OrderID: id, Symbol: "AAPL", Side: common.Buy, Type: common.IOC, Price: 100, Qty: 10})

	assert.Equal(t, uint32(4), rep.FillQty)
	assert.Equal(t, uint32(6), rep.LeavesQty)

	b := e.bookFor("AAPL")
	assert.False(t, b.Contains(id))
}

func TestOnNOS_RejectOnDuplicateID(t *testing.T) {
	e := New(nil)
	id := uuid.New()

	nos := NOS{OrderID: id, Symbol: "AAPL", Side: common.Buy, Type: common.Limit, Price: 100, Qty: 1}
	require.False(t, e.OnNOS(nos).Reject)

	rep := e.OnNOS(nos)
	assert.True(t, rep.Reject)
	assert.NotEmpty(t, rep.Text)
}

func TestCancelOrder_UnknownSymbolCreatesEmptyBook(t *testing.T) {
	e := New(nil)
	err := e.CancelOrder("MSFT", uuid.New())
	assert.Error(t, err)
	require.Len(t, e.Snapshot(), 1)
	assert.Equal(t, "MSFT", e.Snapshot()[0].Symbol)
}

func TestSnapshot_OrderedBySymbol(t *testing.T) {
	e := New(nil)
	e.bookFor("MSFT")
	e.bookFor("AAPL")
	e.bookFor("GOOG")

	snap := e.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "AAPL", snap[0].Symbol)
	assert.Equal(t, "GOOG", snap[1].Symbol)
	assert.Equal(t, "MSFT", snap[2].Symbol)
}
