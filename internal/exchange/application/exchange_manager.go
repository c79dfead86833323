package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
	"github.com/wyfcoding/exchangesim/pkg/logger"
)

// TradeCache 查询侧的最近成交缓存
type TradeCache interface {
	PushTrades(ctx context.Context, symbol string, trades []*domain.Trade) error
	RecentTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
}

// ExchangeManager 处理所有交易所相关的写入操作（Commands）。
// 同时作为撮合引擎的 MatchSink：在市场 Worker 内同步完成
// 成交持久化、逐笔结算与事件发布。
type ExchangeManager struct {
	registry   *MarketRegistry
	uow        domain.UnitOfWork
	orderRepo  domain.OrderRepository
	tradeRepo  domain.TradeRepository
	settlement domain.SettlementCoordinator
	publisher  domain.EventPublisher
	tradeCache TradeCache
	logger     *slog.Logger
}

// NewExchangeManager 构造函数；会将自身注册为 registry 的 MatchSink
func NewExchangeManager(
	registry *MarketRegistry,
	uow domain.UnitOfWork,
	orderRepo domain.OrderRepository,
	tradeRepo domain.TradeRepository,
	settlement domain.SettlementCoordinator,
	publisher domain.EventPublisher,
	tradeCache TradeCache,
	logger *slog.Logger,
) *ExchangeManager {
	m := &ExchangeManager{
		registry:   registry,
		uow:        uow,
		orderRepo:  orderRepo,
		tradeRepo:  tradeRepo,
		settlement: settlement,
		publisher:  publisher,
		tradeCache: tradeCache,
		logger:     logger.With("module", "exchange_manager"),
	}
	registry.SetSink(m)
	return m
}

// PlaceOrder 提交限价单进行撮合。
// 校验失败同步拒绝且无副作用；返回 *domain.SettlementError 时撮合已
// 发生且不可回滚，错误中标明已结算与未结算的成交。
func (m *ExchangeManager) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	defer logger.LogDuration(ctx, "order placement finished",
		"symbol", req.Symbol,
		"portfolio_id", req.PortfolioID,
	)()

	side, ok := domain.ParseSide(req.Side)
	if !ok {
		return nil, fmt.Errorf("invalid side %q", req.Side)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}

	engine, err := m.registry.Engine(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(uuid.NewString(), req.Symbol, side, price, quantity, req.PortfolioID)

	result, err := engine.SubmitOrder(ctx, order)
	if err != nil {
		if result != nil {
			// 撮合已发生，结算部分失败：结果与错误同时返回
			return newPlaceOrderResponse(result), err
		}
		return nil, err
	}
	return newPlaceOrderResponse(result), nil
}

// CancelOrder 撤销挂单。未知或已成交的订单返回 false（幂等空操作）。
func (m *ExchangeManager) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	engine, err := m.registry.Engine(ctx, symbol)
	if err != nil {
		return false, err
	}
	return engine.CancelOrder(ctx, orderID)
}

// ClearOrderBook 管理性清空指定市场的订单簿，绕过撮合语义
func (m *ExchangeManager) ClearOrderBook(ctx context.Context, symbol string) error {
	engine, err := m.registry.Engine(ctx, symbol)
	if err != nil {
		return err
	}
	return engine.Clear(ctx)
}

// RecoverState 预热全部市场的引擎：首次引用即触发挂单回放
func (m *ExchangeManager) RecoverState(ctx context.Context) error {
	symbols, err := m.registry.MarketIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list markets for recovery: %w", err)
	}
	for _, symbol := range symbols {
		if _, err := m.registry.Engine(ctx, symbol); err != nil {
			return fmt.Errorf("failed to recover market %s: %w", symbol, err)
		}
	}
	m.logger.Info("exchange state recovery finished", "markets", len(symbols))
	return nil
}

// OnMatch 实现 domain.MatchSink：持久化、结算、广播。
// 持久化失败立即熔断该市场引擎（内存簿与数据库已分歧，必须停止交易）。
func (m *ExchangeManager) OnMatch(ctx context.Context, result *domain.MatchResult) error {
	symbol := result.Order.Symbol

	err := m.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := m.orderRepo.Save(txCtx, result.Order); err != nil {
			return fmt.Errorf("failed to persist order %s: %w", result.Order.OrderID, err)
		}
		for _, maker := range result.Makers {
			if err := m.orderRepo.Update(txCtx, maker); err != nil {
				return fmt.Errorf("failed to update maker order %s: %w", maker.OrderID, err)
			}
		}
		for _, t := range result.Trades {
			if err := m.tradeRepo.Save(txCtx, t); err != nil {
				return fmt.Errorf("failed to persist trade %s: %w", t.TradeID, err)
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("CRITICAL: failed to persist matching result, halting market",
			"symbol", symbol,
			"order_id", result.Order.OrderID,
			"error", err,
		)
		// 内存订单簿已变更而数据库写入失败：熔断该市场，等待人工介入
		m.registry.Halt(symbol)
		return err
	}

	if err := m.settleTrades(ctx, result.Trades); err != nil {
		return err
	}

	m.broadcast(ctx, symbol, result)
	return nil
}

// settleTrades 按成交顺序逐笔同步结算。
// 一旦某笔失败：该笔与其后的成交不再结算，撮合不回滚，
// 返回的 SettlementError 标明三类成交供外部对账。结算绝不自动重试。
func (m *ExchangeManager) settleTrades(ctx context.Context, trades []*domain.Trade) error {
	committed := make([]string, 0, len(trades))
	for i, t := range trades {
		if err := m.settlement.ApplyTradeEffects(ctx, t); err != nil {
			unprocessed := make([]string, 0, len(trades)-i-1)
			for _, rest := range trades[i+1:] {
				unprocessed = append(unprocessed, rest.TradeID)
			}
			return &domain.SettlementError{
				Committed:   committed,
				Failed:      t.TradeID,
				Unprocessed: unprocessed,
				Err:         err,
			}
		}
		committed = append(committed, t.TradeID)
	}
	return nil
}

// broadcast 尽力而为地发布事件并更新查询缓存，失败只记录不传播
func (m *ExchangeManager) broadcast(ctx context.Context, symbol string, result *domain.MatchResult) {
	for _, t := range result.Trades {
		if err := m.publisher.PublishTradeExecuted(ctx, domain.NewTradeExecutedEvent(t)); err != nil {
			m.logger.Warn("failed to publish trade event", "trade_id", t.TradeID, "error", err)
		}
	}

	reason := "rested"
	if len(result.Trades) > 0 {
		reason = "matched"
	}
	event := &domain.BookChangedEvent{Symbol: symbol, Reason: reason, ChangedAt: time.Now().UnixNano()}
	if err := m.publisher.PublishBookChanged(ctx, event); err != nil {
		m.logger.Warn("failed to publish book changed event", "symbol", symbol, "error", err)
	}

	if len(result.Trades) > 0 && m.tradeCache != nil {
		if err := m.tradeCache.PushTrades(ctx, symbol, result.Trades); err != nil {
			m.logger.Warn("failed to update trade cache", "symbol", symbol, "error", err)
		}
	}
}

// OnCancel 实现 domain.MatchSink：持久化撤单状态并广播
func (m *ExchangeManager) OnCancel(ctx context.Context, order *domain.Order) error {
	if err := m.orderRepo.Update(ctx, order); err != nil {
		m.logger.Error("failed to persist order cancellation",
			"order_id", order.OrderID,
			"error", err,
		)
		return err
	}

	event := &domain.BookChangedEvent{Symbol: order.Symbol, Reason: "cancelled", ChangedAt: time.Now().UnixNano()}
	if err := m.publisher.PublishBookChanged(ctx, event); err != nil {
		m.logger.Warn("failed to publish book changed event", "symbol", order.Symbol, "error", err)
	}
	return nil
}

// OnClear 实现 domain.MatchSink：批量落库撤单状态并广播清簿事件
func (m *ExchangeManager) OnClear(ctx context.Context, symbol string, orders []*domain.Order) error {
	err := m.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, o := range orders {
			if err := m.orderRepo.Update(txCtx, o); err != nil {
				return fmt.Errorf("failed to update cleared order %s: %w", o.OrderID, err)
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("failed to persist order book clear", "symbol", symbol, "error", err)
		return err
	}

	event := &domain.BookChangedEvent{Symbol: symbol, Reason: "cleared", ChangedAt: time.Now().UnixNano()}
	if err := m.publisher.PublishBookChanged(ctx, event); err != nil {
		m.logger.Warn("failed to publish book changed event", "symbol", symbol, "error", err)
	}
	return nil
}
