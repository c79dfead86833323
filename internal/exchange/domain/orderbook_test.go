package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestOrder(id string, side Side, price, qty string) *Order {
	return NewOrder(id, "BTC-USD", side, dec(price), dec(qty), "PF1")
}

func TestOrderBookBestBidAndAsk(t *testing.T) {
	book := NewOrderBook("BTC-USD")

	assert.Nil(t, book.BestBid())
	assert.Nil(t, book.BestAsk())

	book.Insert(newTestOrder("b1", SideBid, "100", "1"))
	book.Insert(newTestOrder("b2", SideBid, "102", "1"))
	book.Insert(newTestOrder("b3", SideBid, "101", "1"))
	book.Insert(newTestOrder("a1", SideAsk, "105", "1"))
	book.Insert(newTestOrder("a2", SideAsk, "103", "1"))

	require.NotNil(t, book.BestBid())
	assert.True(t, book.BestBid().Price.Equal(dec("102")))
	require.NotNil(t, book.BestAsk())
	assert.True(t, book.BestAsk().Price.Equal(dec("103")))
}

func TestOrderBookSpread(t *testing.T) {
	book := NewOrderBook("BTC-USD")

	assert.Nil(t, book.Spread())

	book.Insert(newTestOrder("b1", SideBid, "100", "1"))
	assert.Nil(t, book.Spread())

	book.Insert(newTestOrder("a1", SideAsk, "103", "1"))
	spread := book.Spread()
	require.NotNil(t, spread)
	assert.True(t, spread.Equal(dec("3")))
}

func TestOrderBookSameLevelKeepsArrivalOrder(t *testing.T) {
	book := NewOrderBook("BTC-USD")

	book.Insert(newTestOrder("first", SideBid, "100", "1"))
	book.Insert(newTestOrder("second", SideBid, "100", "1"))

	require.NotNil(t, book.BestBid())
	assert.Equal(t, "first", book.BestBid().OrderID)
}

func TestOrderBookRemove(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Insert(newTestOrder("b1", SideBid, "100", "1"))

	removed, ok := book.Remove("b1")
	require.True(t, ok)
	assert.Equal(t, "b1", removed.OrderID)
	assert.Nil(t, book.BestBid())
	assert.Equal(t, 0, book.Size())

	// 重复摘除与摘除不存在的订单都是无副作用的空操作
	_, ok = book.Remove("b1")
	assert.False(t, ok)
	_, ok = book.Remove("ghost")
	assert.False(t, ok)
}

func TestOrderBookEmptyLevelIsDropped(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Insert(newTestOrder("b1", SideBid, "100", "1"))
	book.Insert(newTestOrder("b2", SideBid, "99", "1"))

	_, ok := book.Remove("b1")
	require.True(t, ok)

	depth := book.GetDepth(10)
	require.Len(t, depth.Bids, 1)
	assert.True(t, depth.Bids[0].Price.Equal(dec("99")))
}

func TestOrderBookDepthAggregatesQuantities(t *testing.T) {
	book := NewOrderBook("BTC-USD")

	book.Insert(newTestOrder("b1", SideBid, "101", "2"))
	book.Insert(newTestOrder("b2", SideBid, "101", "3"))
	book.Insert(newTestOrder("b3", SideBid, "100", "1"))
	book.Insert(newTestOrder("a1", SideAsk, "102", "4"))

	depth := book.GetDepth(10)
	require.Len(t, depth.Bids, 2)
	assert.True(t, depth.Bids[0].Price.Equal(dec("101")))
	assert.True(t, depth.Bids[0].Quantity.Equal(dec("5")))
	assert.True(t, depth.Bids[1].Price.Equal(dec("100")))
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Quantity.Equal(dec("4")))
}

func TestOrderBookDepthClampsLevels(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	for i := 0; i < 5; i++ {
		book.Insert(newTestOrder(fmt.Sprintf("b%d", i), SideBid, fmt.Sprintf("%d", 100+i), "1"))
	}

	depth := book.GetDepth(3)
	assert.Len(t, depth.Bids, 3)
	// 买盘降序：最优价在前
	assert.True(t, depth.Bids[0].Price.Equal(dec("104")))

	depth = book.GetDepth(0)
	assert.Len(t, depth.Bids, 1)

	depth = book.GetDepth(100)
	assert.Len(t, depth.Bids, 5)
}

func TestOrderBookDrain(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Insert(newTestOrder("b1", SideBid, "100", "1"))
	book.Insert(newTestOrder("a1", SideAsk, "103", "1"))

	removed := book.Drain()
	assert.Len(t, removed, 2)
	assert.Equal(t, 0, book.Size())
	assert.Nil(t, book.BestBid())
	assert.Nil(t, book.BestAsk())

	assert.Empty(t, book.Drain())
}
