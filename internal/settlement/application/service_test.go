package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exchange "github.com/wyfcoding/exchangesim/internal/exchange/domain"
	portfolio "github.com/wyfcoding/exchangesim/internal/portfolio/domain"
	"github.com/wyfcoding/exchangesim/internal/settlement/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memRecordRepo 内存结算记录仓储；WithTx 模拟事务回滚语义
type memRecordRepo struct {
	records map[string]*domain.Record
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[string]*domain.Record)}
}

func (r *memRecordRepo) Save(_ context.Context, record *domain.Record) error {
	r.records[record.TradeID] = record
	return nil
}

func (r *memRecordRepo) GetByTradeID(_ context.Context, tradeID string) (*domain.Record, error) {
	return r.records[tradeID], nil
}

func (r *memRecordRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// memPortfolioRepo 内存组合仓储，含余额/持仓不足校验
type memPortfolioRepo struct {
	balances map[string]decimal.Decimal
	holdings map[string]decimal.Decimal
}

func newMemPortfolioRepo() *memPortfolioRepo {
	return &memPortfolioRepo{
		balances: make(map[string]decimal.Decimal),
		holdings: make(map[string]decimal.Decimal),
	}
}

func holdingKey(portfolioID, symbol string) string {
	return portfolioID + "/" + symbol
}

func (r *memPortfolioRepo) Create(_ context.Context, p *portfolio.Portfolio) error {
	r.balances[p.PortfolioID] = p.Balance
	return nil
}

func (r *memPortfolioRepo) Get(_ context.Context, portfolioID string) (*portfolio.Portfolio, error) {
	balance, ok := r.balances[portfolioID]
	if !ok {
		return nil, portfolio.ErrPortfolioNotFound
	}
	return &portfolio.Portfolio{PortfolioID: portfolioID, Balance: balance}, nil
}

func (r *memPortfolioRepo) GetHolding(_ context.Context, portfolioID, symbol string) (*portfolio.Holding, error) {
	return &portfolio.Holding{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Quantity:    r.holdings[holdingKey(portfolioID, symbol)],
	}, nil
}

func (r *memPortfolioRepo) AdjustBalance(_ context.Context, portfolioID string, delta decimal.Decimal) error {
	balance, ok := r.balances[portfolioID]
	if !ok {
		return portfolio.ErrPortfolioNotFound
	}
	next := balance.Add(delta)
	if next.Sign() < 0 {
		return portfolio.ErrInsufficientFunds
	}
	r.balances[portfolioID] = next
	return nil
}

func (r *memPortfolioRepo) AdjustHolding(_ context.Context, portfolioID, symbol string, delta decimal.Decimal) error {
	key := holdingKey(portfolioID, symbol)
	next := r.holdings[key].Add(delta)
	if next.Sign() < 0 {
		return portfolio.ErrInsufficientHoldings
	}
	r.holdings[key] = next
	return nil
}

func testTrade(id string) *exchange.Trade {
	return &exchange.Trade{
		TradeID:          id,
		Symbol:           "BTC-USD",
		TakerOrderID:     "t-order",
		MakerOrderID:     "m-order",
		TakerPortfolioID: "buyer",
		MakerPortfolioID: "seller",
		TakerSide:        exchange.SideBid,
		Quantity:         dec("2"),
		Price:            dec("100"),
	}
}

func newService(records *memRecordRepo, portfolios *memPortfolioRepo) *SettlementService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSettlementService(records, portfolios, logger)
}

func TestApplyTradeEffectsTransfersCashAndHoldings(t *testing.T) {
	records := newMemRecordRepo()
	portfolios := newMemPortfolioRepo()
	portfolios.balances["buyer"] = dec("1000")
	portfolios.balances["seller"] = dec("50")
	portfolios.holdings[holdingKey("seller", "BTC-USD")] = dec("5")

	svc := newService(records, portfolios)
	require.NoError(t, svc.ApplyTradeEffects(context.Background(), testTrade("t1")))

	// 买方付 200 得 2 手，卖方收 200 出 2 手
	assert.True(t, portfolios.balances["buyer"].Equal(dec("800")))
	assert.True(t, portfolios.balances["seller"].Equal(dec("250")))
	assert.True(t, portfolios.holdings[holdingKey("buyer", "BTC-USD")].Equal(dec("2")))
	assert.True(t, portfolios.holdings[holdingKey("seller", "BTC-USD")].Equal(dec("3")))

	record, err := records.GetByTradeID(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsSettled())
	assert.True(t, record.Amount.Equal(dec("200")))
}

func TestApplyTradeEffectsIsIdempotent(t *testing.T) {
	records := newMemRecordRepo()
	portfolios := newMemPortfolioRepo()
	portfolios.balances["buyer"] = dec("1000")
	portfolios.balances["seller"] = dec("0")
	portfolios.holdings[holdingKey("seller", "BTC-USD")] = dec("5")

	svc := newService(records, portfolios)
	require.NoError(t, svc.ApplyTradeEffects(context.Background(), testTrade("t1")))
	require.NoError(t, svc.ApplyTradeEffects(context.Background(), testTrade("t1")))

	// 重复提交不会重复划转
	assert.True(t, portfolios.balances["buyer"].Equal(dec("800")))
	assert.True(t, portfolios.balances["seller"].Equal(dec("200")))
}

func TestApplyTradeEffectsFailsOnInsufficientFunds(t *testing.T) {
	records := newMemRecordRepo()
	portfolios := newMemPortfolioRepo()
	portfolios.balances["buyer"] = dec("100")
	portfolios.balances["seller"] = dec("0")
	portfolios.holdings[holdingKey("seller", "BTC-USD")] = dec("5")

	svc := newService(records, portfolios)
	err := svc.ApplyTradeEffects(context.Background(), testTrade("t1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrInsufficientFunds)

	// 失败的成交没有结算记录，后续可重新提交
	record, _ := records.GetByTradeID(context.Background(), "t1")
	assert.Nil(t, record)
}

func TestApplyTradeEffectsSellerSideTaker(t *testing.T) {
	records := newMemRecordRepo()
	portfolios := newMemPortfolioRepo()
	portfolios.balances["buyer"] = dec("1000")
	portfolios.balances["seller"] = dec("0")
	portfolios.holdings[holdingKey("seller", "BTC-USD")] = dec("2")

	// taker 为卖方：buyer/seller 角色由成交方向推导
	trade := testTrade("t1")
	trade.TakerSide = exchange.SideAsk
	trade.TakerPortfolioID = "seller"
	trade.MakerPortfolioID = "buyer"

	svc := newService(records, portfolios)
	require.NoError(t, svc.ApplyTradeEffects(context.Background(), trade))

	assert.True(t, portfolios.balances["buyer"].Equal(dec("800")))
	assert.True(t, portfolios.balances["seller"].Equal(dec("200")))
	assert.True(t, portfolios.holdings[holdingKey("buyer", "BTC-USD")].Equal(dec("2")))
	assert.True(t, portfolios.holdings[holdingKey("seller", "BTC-USD")].IsZero())
}
