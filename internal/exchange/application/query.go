package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

// ExchangeQueryService 处理所有交易所相关的只读查询（Queries）。
// 订单簿查询走引擎内存快照，最近成交走缓存优先、数据库兜底。
type ExchangeQueryService struct {
	registry   *MarketRegistry
	tradeRepo  domain.TradeRepository
	tradeCache TradeCache
	logger     *slog.Logger
}

func NewExchangeQueryService(
	registry *MarketRegistry,
	tradeRepo domain.TradeRepository,
	tradeCache TradeCache,
	logger *slog.Logger,
) *ExchangeQueryService {
	return &ExchangeQueryService{
		registry:   registry,
		tradeRepo:  tradeRepo,
		tradeCache: tradeCache,
		logger:     logger.With("module", "exchange_query"),
	}
}

// GetBestBid 返回最高买价队首挂单的视图，空侧返回 nil
func (s *ExchangeQueryService) GetBestBid(ctx context.Context, symbol string) (*RestingView, error) {
	engine, err := s.registry.Engine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return newRestingView(engine.Book().BestBid()), nil
}

// GetBestAsk 返回最低卖价队首挂单的视图，空侧返回 nil
func (s *ExchangeQueryService) GetBestAsk(ctx context.Context, symbol string) (*RestingView, error) {
	engine, err := s.registry.Engine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return newRestingView(engine.Book().BestAsk()), nil
}

// GetSpread 返回买卖价差，任一侧为空时返回 nil
func (s *ExchangeQueryService) GetSpread(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	engine, err := s.registry.Engine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return engine.Book().Spread(), nil
}

// GetTicker 返回单市场的盘口行情聚合视图
func (s *ExchangeQueryService) GetTicker(ctx context.Context, symbol string) (*TickerView, error) {
	engine, err := s.registry.Engine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return newTickerView(symbol, engine.Book()), nil
}

// GetDepth 返回两侧各 levels 档的聚合深度快照
func (s *ExchangeQueryService) GetDepth(ctx context.Context, symbol string, levels int) (*domain.Depth, error) {
	engine, err := s.registry.Engine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return engine.Book().GetDepth(levels), nil
}

// GetMarketIDs 列出全部已注册市场的标识
func (s *ExchangeQueryService) GetMarketIDs(ctx context.Context) ([]string, error) {
	return s.registry.MarketIDs(ctx)
}

// GetRecentTrades 查询最近成交。缓存命中直接返回，
// 未命中（或缓存不可用）回退数据库查询。
func (s *ExchangeQueryService) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = 20
	}

	if s.tradeCache != nil {
		trades, err := s.tradeCache.RecentTrades(ctx, symbol, limit)
		if err != nil {
			s.logger.Warn("trade cache read failed, falling back to database", "symbol", symbol, "error", err)
		} else if len(trades) > 0 {
			return trades, nil
		}
	}

	return s.tradeRepo.GetLatestTrades(ctx, symbol, limit)
}
