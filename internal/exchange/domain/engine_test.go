package domain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarket() *MarketInfo {
	return &MarketInfo{
		Symbol:         "BTC-USD",
		PriceIncrement: dec("0.01"),
		QtyIncrement:   dec("0.0001"),
		MaxQuantity:    dec("1000"),
		Active:         true,
	}
}

func newTestEngine(t *testing.T, sink MatchSink) *MatchingEngine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewMatchingEngine(testMarket(), 64, sink, logger)
	e.Start()
	t.Cleanup(e.Shutdown)
	return e
}

func place(t *testing.T, e *MatchingEngine, id string, side Side, price, qty string) *MatchResult {
	t.Helper()
	o := NewOrder(id, "BTC-USD", side, dec(price), dec(qty), "PF-"+id)
	result, err := e.SubmitOrder(context.Background(), o)
	require.NoError(t, err)
	return result
}

func TestEngineRestsWhenNoOpposingLiquidity(t *testing.T) {
	e := newTestEngine(t, nil)

	result := place(t, e, "b1", SideBid, "100.00", "1")
	assert.Equal(t, "RESTING", result.Status)
	assert.Empty(t, result.Trades)
	require.NotNil(t, result.Resting)
	assert.True(t, e.Book().Contains("b1"))
}

func TestEngineMatchesAtMakerPrice(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "100.00", "1")
	// taker 出价更高，但以 maker 的挂单价 100 成交
	result := place(t, e, "b1", SideBid, "101.00", "1")

	assert.Equal(t, "FILLED", result.Status)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Price.Equal(dec("100.00")))
	assert.True(t, result.Trades[0].Quantity.Equal(dec("1")))
	assert.Equal(t, "b1", result.Trades[0].TakerOrderID)
	assert.Equal(t, "a1", result.Trades[0].MakerOrderID)
	assert.Equal(t, 0, e.Book().Size())
}

func TestEnginePriceTimePriority(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "101.00", "1")
	place(t, e, "a2", SideAsk, "100.00", "1")
	place(t, e, "a3", SideAsk, "100.00", "1")

	result := place(t, e, "b1", SideBid, "101.00", "3")

	require.Len(t, result.Trades, 3)
	// 更优价格先成交；同价位按到达顺序
	assert.Equal(t, "a2", result.Trades[0].MakerOrderID)
	assert.Equal(t, "a3", result.Trades[1].MakerOrderID)
	assert.Equal(t, "a1", result.Trades[2].MakerOrderID)
	assert.Equal(t, "FILLED", result.Status)
}

func TestEnginePartialFillDeterminism(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "100.00", "10")
	result := place(t, e, "b1", SideBid, "100.00", "4")

	assert.Equal(t, "FILLED", result.Status)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Quantity.Equal(dec("4")))

	// 部分成交的 maker 保留队首位置与剩余量
	best := e.Book().BestAsk()
	require.NotNil(t, best)
	assert.Equal(t, "a1", best.OrderID)
	assert.True(t, best.Remaining.Equal(dec("6")))
	assert.Equal(t, StatusPartiallyFilled, best.Status)
}

func TestEnginePartialFillMakerKeepsQueuePosition(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "100.00", "10")
	place(t, e, "a2", SideAsk, "100.00", "5")
	place(t, e, "b1", SideBid, "100.00", "4")

	// a1 部分成交后仍在 a2 之前
	result := place(t, e, "b2", SideBid, "100.00", "7")
	require.Len(t, result.Trades, 2)
	assert.Equal(t, "a1", result.Trades[0].MakerOrderID)
	assert.True(t, result.Trades[0].Quantity.Equal(dec("6")))
	assert.Equal(t, "a2", result.Trades[1].MakerOrderID)
	assert.True(t, result.Trades[1].Quantity.Equal(dec("1")))
}

func TestEngineResidualRestsWithFreshSequence(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "100.00", "2")
	earlier := place(t, e, "b0", SideBid, "99.00", "1")

	// taker 吃掉 2 手后剩 3 手挂入，到达序号晚于 b0
	result := place(t, e, "b1", SideBid, "100.00", "5")
	assert.Equal(t, "PARTIALLY_FILLED", result.Status)
	require.NotNil(t, result.Resting)
	assert.True(t, result.Resting.Remaining.Equal(dec("3")))
	assert.Greater(t, result.Resting.Sequence, earlier.Resting.Sequence)
}

func TestEngineSelfTradeAllowed(t *testing.T) {
	e := newTestEngine(t, nil)

	maker := NewOrder("a1", "BTC-USD", SideAsk, dec("100.00"), dec("1"), "PF-same")
	_, err := e.SubmitOrder(context.Background(), maker)
	require.NoError(t, err)

	taker := NewOrder("b1", "BTC-USD", SideBid, dec("100.00"), dec("1"), "PF-same")
	result, err := e.SubmitOrder(context.Background(), taker)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "PF-same", result.Trades[0].TakerPortfolioID)
	assert.Equal(t, "PF-same", result.Trades[0].MakerPortfolioID)
}

func TestEngineRejectsInvalidOrders(t *testing.T) {
	e := newTestEngine(t, nil)

	cases := []struct {
		name  string
		side  Side
		price string
		qty   string
		want  error
	}{
		{"zero quantity", SideBid, "100.00", "0", ErrInvalidQuantity},
		{"negative quantity", SideBid, "100.00", "-1", ErrInvalidQuantity},
		{"zero price", SideBid, "0", "1", ErrInvalidPrice},
		{"misaligned price", SideBid, "100.001", "1", ErrPriceNotAligned},
		{"misaligned quantity", SideBid, "100.00", "0.00005", ErrQuantityNotAligned},
		{"oversized quantity", SideBid, "100.00", "1001", ErrQuantityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrder("o-"+tc.name, "BTC-USD", tc.side, dec(tc.price), dec(tc.qty), "PF1")
			_, err := e.SubmitOrder(context.Background(), o)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// 拒绝的订单不会进簿
	assert.Equal(t, 0, e.Book().Size())
}

func TestEngineRejectsWhenMarketInactive(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "b1", SideBid, "100.00", "1")

	inactive := *testMarket()
	inactive.Active = false
	e.UpdateMarket(&inactive)

	o := NewOrder("b2", "BTC-USD", SideBid, dec("100.00"), dec("1"), "PF1")
	_, err := e.SubmitOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrMarketInactive)

	// 停市只拒绝新订单，存量挂单保留
	assert.True(t, e.Book().Contains("b1"))
}

func TestEngineCancelIsIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "b1", SideBid, "100.00", "1")

	ok, err := e.CancelOrder(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, e.Book().Contains("b1"))

	ok, err = e.CancelOrder(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.CancelOrder(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngineClear(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "b1", SideBid, "100.00", "1")
	place(t, e, "a1", SideAsk, "103.00", "1")

	require.NoError(t, e.Clear(context.Background()))
	assert.Equal(t, 0, e.Book().Size())
	assert.Nil(t, e.Book().Spread())
}

func TestEngineNoCrossedBookAfterOperations(t *testing.T) {
	e := newTestEngine(t, nil)

	ops := []struct {
		id    string
		side  Side
		price string
		qty   string
	}{
		{"o1", SideBid, "100.00", "1"},
		{"o2", SideAsk, "101.00", "2"},
		{"o3", SideBid, "101.00", "1"},
		{"o4", SideAsk, "99.00", "3"},
		{"o5", SideBid, "98.00", "2"},
		{"o6", SideAsk, "98.00", "5"},
	}

	for _, op := range ops {
		place(t, e, op.id, op.side, op.price, op.qty)

		bid := e.Book().BestBid()
		ask := e.Book().BestAsk()
		if bid != nil && ask != nil {
			assert.True(t, bid.Price.LessThan(ask.Price),
				"book crossed after %s: bid=%s ask=%s", op.id, bid.Price, ask.Price)
		}
	}
}

func TestEngineHaltRejectsSubmissions(t *testing.T) {
	e := newTestEngine(t, nil)

	e.Halt()
	o := NewOrder("b1", "BTC-USD", SideBid, dec("100.00"), dec("1"), "PF1")
	_, err := e.SubmitOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrEngineHalted)
}

func TestEngineReplayRebuildsBook(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewMatchingEngine(testMarket(), 64, nil, logger)

	o1 := NewOrder("b1", "BTC-USD", SideBid, dec("100.00"), dec("1"), "PF1")
	o1.Sequence = 5
	o2 := NewOrder("a1", "BTC-USD", SideAsk, dec("101.00"), dec("2"), "PF2")
	o2.Sequence = 9

	e.Replay(o1)
	e.Replay(o2)
	e.Start()
	t.Cleanup(e.Shutdown)

	assert.True(t, e.Book().Contains("b1"))
	assert.True(t, e.Book().Contains("a1"))

	// 回放后新订单的序号必须晚于已回放的最大序号
	result := place(t, e, "b2", SideBid, "99.00", "1")
	assert.Greater(t, result.Resting.Sequence, uint64(9))
}

// 端到端场景：双边挂单、成交、余量与价差
func TestEngineEndToEndScenario(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "50000.00", "1.5")
	result := place(t, e, "b1", SideBid, "50000.00", "1.0")

	assert.Equal(t, "FILLED", result.Status)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Price.Equal(dec("50000.00")))
	assert.True(t, result.Trades[0].Quantity.Equal(dec("1.0")))

	best := e.Book().BestAsk()
	require.NotNil(t, best)
	assert.True(t, best.Remaining.Equal(dec("0.5")))
	assert.Nil(t, e.Book().Spread())
}

func TestSideOppositeAndParse(t *testing.T) {
	assert.Equal(t, SideAsk, SideBid.Opposite())
	assert.Equal(t, SideBid, SideAsk.Opposite())

	s, ok := ParseSide("BUY")
	require.True(t, ok)
	assert.Equal(t, SideBid, s)

	s, ok = ParseSide("sell")
	require.True(t, ok)
	assert.Equal(t, SideAsk, s)

	_, ok = ParseSide("sideways")
	assert.False(t, ok)
}

func TestTradeSettlementViews(t *testing.T) {
	trade := &Trade{
		TakerPortfolioID: "taker",
		MakerPortfolioID: "maker",
		TakerSide:        SideBid,
		Quantity:         dec("2"),
		Price:            dec("100"),
	}

	assert.Equal(t, "taker", trade.BuyerPortfolioID())
	assert.Equal(t, "maker", trade.SellerPortfolioID())
	assert.True(t, trade.Amount().Equal(dec("200")))

	trade.TakerSide = SideAsk
	assert.Equal(t, "maker", trade.BuyerPortfolioID())
	assert.Equal(t, "taker", trade.SellerPortfolioID())
}

func TestMatchResultReportsMakers(t *testing.T) {
	e := newTestEngine(t, nil)

	place(t, e, "a1", SideAsk, "100.00", "1")
	place(t, e, "a2", SideAsk, "100.00", "2")

	result := place(t, e, "b1", SideBid, "100.00", "2")
	require.Len(t, result.Makers, 2)
	assert.Equal(t, "a1", result.Makers[0].OrderID)
	assert.Equal(t, StatusFilled, result.Makers[0].Status)
	assert.Equal(t, "a2", result.Makers[1].OrderID)
	assert.Equal(t, StatusPartiallyFilled, result.Makers[1].Status)
	assert.True(t, result.Makers[1].Remaining.Equal(dec("1")))
}

func TestMatchResultIsolatedFromBookMutations(t *testing.T) {
	e := newTestEngine(t, nil)

	rested := place(t, e, "a1", SideAsk, "100.00", "10")
	require.NotNil(t, rested.Resting)

	first := place(t, e, "b1", SideBid, "100.00", "4")
	require.Len(t, first.Makers, 1)
	assert.True(t, first.Makers[0].Remaining.Equal(dec("6")))

	// 先前返回的结果是值快照，不随簿内订单继续成交而变化
	assert.True(t, rested.Resting.Remaining.Equal(dec("10")))
	assert.Equal(t, StatusOpen, rested.Resting.Status)

	bookView := e.Book().BestAsk()
	require.NotNil(t, bookView)
	assert.True(t, bookView.Remaining.Equal(dec("6")))

	place(t, e, "b2", SideBid, "100.00", "2")
	assert.True(t, first.Makers[0].Remaining.Equal(dec("6")))
	assert.True(t, bookView.Remaining.Equal(dec("6")))

	best := e.Book().BestAsk()
	require.NotNil(t, best)
	assert.True(t, best.Remaining.Equal(dec("4")))
}

// serialSink 断言同一市场的撮合副作用永远不会并发执行
type serialSink struct {
	NopSink
	t      *testing.T
	active atomic.Int32
}

func (s *serialSink) OnMatch(context.Context, *MatchResult) error {
	if s.active.Add(1) != 1 {
		s.t.Error("sink invoked concurrently")
	}
	defer s.active.Add(-1)
	return nil
}

func TestEngineConcurrentSubmissionsAndQueries(t *testing.T) {
	e := newTestEngine(t, &serialSink{t: t})

	const (
		submitters      = 4
		ordersPerWorker = 50
	)

	results := make(chan *MatchResult, submitters*ordersPerWorker)

	stopQueries := make(chan struct{})
	var queryWG sync.WaitGroup
	for i := 0; i < 2; i++ {
		queryWG.Add(1)
		go func() {
			defer queryWG.Done()
			for {
				select {
				case <-stopQueries:
					return
				default:
				}
				depth := e.Book().GetDepth(5)
				for _, level := range depth.Bids {
					assert.True(t, level.Quantity.Sign() > 0)
				}
				for _, level := range depth.Asks {
					assert.True(t, level.Quantity.Sign() > 0)
				}
				e.Book().Spread()
				if bid := e.Book().BestBid(); bid != nil {
					assert.True(t, bid.Remaining.Sign() > 0)
				}
			}
		}()
	}

	var submitWG sync.WaitGroup
	for w := 0; w < submitters; w++ {
		submitWG.Add(1)
		go func(w int) {
			defer submitWG.Done()
			for i := 0; i < ordersPerWorker; i++ {
				side, price := SideBid, "99.00"
				if i%2 == 0 {
					side, price = SideAsk, "101.00"
				}
				if i%5 == 0 {
					price = "100.00"
				}
				o := NewOrder(
					fmt.Sprintf("o-%d-%d", w, i), "BTC-USD",
					side, dec(price), dec("1"), fmt.Sprintf("PF-%d", w),
				)
				result, err := e.SubmitOrder(context.Background(), o)
				if assert.NoError(t, err) {
					results <- result
				}
			}
		}(w)
	}

	submitWG.Wait()
	close(stopQueries)
	queryWG.Wait()
	close(results)

	// 撮合串行：挂入与成交共用的序号在全部结果中不得重复
	seen := make(map[uint64]bool)
	for result := range results {
		filled := decimal.Zero
		for _, trade := range result.Trades {
			assert.False(t, seen[trade.Sequence])
			seen[trade.Sequence] = true
			filled = filled.Add(trade.Quantity)
		}
		if result.Resting != nil {
			assert.False(t, seen[result.Resting.Sequence])
			seen[result.Resting.Sequence] = true
			filled = filled.Add(result.Resting.Remaining)
		}
		assert.True(t, filled.Equal(dec("1")))
	}

	bid := e.Book().BestBid()
	ask := e.Book().BestAsk()
	if bid != nil && ask != nil {
		assert.True(t, bid.Price.LessThan(ask.Price))
	}
}

func TestEngineSubmitAfterShutdownReturnsError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewMatchingEngine(testMarket(), 64, nil, logger)
	e.Start()
	e.Shutdown()

	o := NewOrder("b1", "BTC-USD", SideBid, dec("100.00"), dec("1"), "PF1")
	done := make(chan error, 1)
	go func() {
		_, err := e.SubmitOrder(context.Background(), o)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrEngineStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("submission blocked after shutdown")
	}
}
