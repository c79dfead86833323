package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
	market "github.com/wyfcoding/exchangesim/internal/market/domain"
)

// MarketRegistry 维护市场标识到撮合引擎的映射。
// 引擎在市场首次被引用时惰性创建，创建时从持久层回放该市场的
// 全部挂单重建内存订单簿，再启动撮合 Worker。
type MarketRegistry struct {
	mu      sync.RWMutex
	engines map[string]*domain.MatchingEngine

	markets       market.MarketRepository
	orders        domain.OrderRepository
	sink          domain.MatchSink
	queueCapacity int
	logger        *slog.Logger
}

// NewMarketRegistry 构造函数
func NewMarketRegistry(
	markets market.MarketRepository,
	orders domain.OrderRepository,
	queueCapacity int,
	logger *slog.Logger,
) *MarketRegistry {
	return &MarketRegistry{
		engines:       make(map[string]*domain.MatchingEngine),
		markets:       markets,
		orders:        orders,
		queueCapacity: queueCapacity,
		logger:        logger.With("module", "market_registry"),
	}
}

// SetSink 设置撮合副作用消费者；必须在首个引擎创建之前调用
func (r *MarketRegistry) SetSink(sink domain.MatchSink) {
	r.sink = sink
}

// Engine 返回指定市场的撮合引擎，必要时创建并恢复状态
func (r *MarketRegistry) Engine(ctx context.Context, symbol string) (*domain.MatchingEngine, error) {
	r.mu.RLock()
	engine, ok := r.engines[symbol]
	r.mu.RUnlock()
	if ok {
		return engine, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if engine, ok := r.engines[symbol]; ok {
		return engine, nil
	}

	engine, err := r.createEngine(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.engines[symbol] = engine
	return engine, nil
}

// createEngine 创建引擎并从持久层回放挂单（调用方必须持有写锁）
func (r *MarketRegistry) createEngine(ctx context.Context, symbol string) (*domain.MatchingEngine, error) {
	m, err := r.markets.GetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, market.ErrMarketNotFound) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("failed to load market %s: %w", symbol, err)
	}

	engine := domain.NewMatchingEngine(toMarketInfo(m), r.queueCapacity, r.sink, r.logger)

	open, err := r.orders.FindOpenBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders for %s: %w", symbol, err)
	}
	for _, o := range open {
		engine.Replay(o)
	}

	engine.Start()
	r.logger.Info("matching engine started",
		"symbol", symbol,
		"replayed_orders", len(open),
	)
	return engine, nil
}

// RefreshMarket 重新加载市场交易参数到已运行的引擎
func (r *MarketRegistry) RefreshMarket(ctx context.Context, symbol string) error {
	r.mu.RLock()
	engine, ok := r.engines[symbol]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	m, err := r.markets.GetBySymbol(ctx, symbol)
	if err != nil {
		return err
	}
	engine.UpdateMarket(toMarketInfo(m))
	return nil
}

// Halt 熔断指定市场的引擎
func (r *MarketRegistry) Halt(symbol string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if engine, ok := r.engines[symbol]; ok {
		engine.Halt()
	}
}

// MarketIDs 返回全部已注册市场标识
func (r *MarketRegistry) MarketIDs(ctx context.Context) ([]string, error) {
	return r.markets.ListSymbols(ctx)
}

// Shutdown 停止全部撮合引擎
func (r *MarketRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for symbol, engine := range r.engines {
		engine.Shutdown()
		delete(r.engines, symbol)
	}
}

func toMarketInfo(m *market.Market) *domain.MarketInfo {
	return &domain.MarketInfo{
		Symbol:         m.Symbol,
		PriceIncrement: m.PriceIncrement,
		QtyIncrement:   m.QtyIncrement,
		MaxQuantity:    m.MaxQuantity,
		Active:         m.Active,
	}
}
